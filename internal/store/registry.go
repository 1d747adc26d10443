package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/bokbank/server/internal/domain"
)

// ErrInvalidTenant is returned when a tenant identifier can't be used to
// address a partition. Identifiers become database filenames, so anything
// outside a safe character set is rejected rather than escaped. Escaping
// could silently alias two tenants onto one file.
var ErrInvalidTenant = errors.New("store: invalid tenant identifier")

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Registry maps tenant identifiers to their lazily-created partition
// stores. Each tenant's store is constructed and migrated exactly once,
// even under concurrent first access, and lives for the process lifetime.
type Registry struct {
	dir string

	mu         sync.Mutex
	partitions map[string]*partition
}

// partition is a registry entry. The once guard means concurrent first
// accesses for the same tenant wait for a single construction instead of
// racing, without the registry lock being held across the open/migrate.
type partition struct {
	once  sync.Once
	store *Store
	err   error
}

// NewRegistry creates a Registry keeping partition databases under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:        dir,
		partitions: make(map[string]*partition),
	}
}

// Store returns the partition store for the given tenant, constructing
// and migrating it on first access. A construction failure is returned to
// every waiting caller and the entry is discarded, so a later call
// re-attempts construction.
func (r *Registry) Store(ctx context.Context, tenant string) (*Store, error) {
	if !tenantPattern.MatchString(tenant) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenant)
	}

	r.mu.Lock()
	p, ok := r.partitions[tenant]
	if !ok {
		p = &partition{}
		r.partitions[tenant] = p
	}
	r.mu.Unlock()

	p.once.Do(func() {
		p.store, p.err = r.open(ctx, tenant)
	})

	if p.err != nil {
		// Don't poison the registry: drop the failed entry so a retry
		// constructs a fresh one.
		r.mu.Lock()
		if r.partitions[tenant] == p {
			delete(r.partitions, tenant)
		}
		r.mu.Unlock()
		return nil, p.err
	}
	return p.store, nil
}

func (r *Registry) open(ctx context.Context, tenant string) (*Store, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}
	return Open(ctx, filepath.Join(r.dir, tenant+".sqlite"), tenant)
}

// Transfer implements domain.PaymentsRepository against the tenant's
// partition.
func (r *Registry) Transfer(ctx context.Context, tenant, source, target string, amount domain.Money) (domain.TransferDetails, error) {
	s, err := r.Store(ctx, tenant)
	if err != nil {
		return domain.TransferDetails{}, err
	}
	return s.Transfer(ctx, source, target, amount)
}

// Close closes every open partition.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for tenant, p := range r.partitions {
		if p.store != nil {
			if err := p.store.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(r.partitions, tenant)
	}
	return firstErr
}
