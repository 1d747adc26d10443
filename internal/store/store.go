// Package store implements the partitioned ledger storage layer.
//
// Each tenant gets its own SQLite database file. A Store serializes writes
// against its partition, gives reads a consistent snapshot, and notifies
// registered observers after every committed write so that live queries
// can re-evaluate.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	// ErrReentrantAccess is returned when Read or Write is called from
	// inside another Read or Write on the same store. The store is not
	// reentrant; nesting would deadlock on the write mutex, so it fails
	// fast instead.
	ErrReentrantAccess = errors.New("store: database access methods are not reentrant")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("store: closed")
)

// accessKey marks a context as being inside a store read or write.
type accessKey struct{}

// Store is the durable, transactional storage for one tenant's partition.
type Store struct {
	tenant string
	db     *sql.DB

	// writeMu serializes write transactions against this partition.
	writeMu sync.Mutex

	obsMu     sync.Mutex
	observers map[*observer]struct{}

	closeOnce sync.Once
	closing   chan struct{}
}

// Open opens (creating if necessary) the partition database at path and
// brings its schema up to date.
func Open(ctx context.Context, path, tenant string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{
		tenant:    tenant,
		db:        db,
		observers: make(map[*observer]struct{}),
		closing:   make(chan struct{}),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Tenant returns the tenant identifier this partition belongs to.
func (s *Store) Tenant() string { return s.tenant }

// Close closes the partition. Any live observations finish cleanly.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
	})
	return s.db.Close()
}

// Tx is a handle to an in-progress store transaction. Mutation helpers
// record which tables they touch so that only affected observers are
// notified after commit.
type Tx struct {
	tx      *sql.Tx
	touched map[string]struct{}
}

func (t *Tx) touch(table string) {
	t.touched[table] = struct{}{}
}

// Exec executes a statement within the transaction.
func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

// Query executes a query within the transaction.
func (t *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRow executes a single-row query within the transaction.
func (t *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Read executes fn within a read transaction. The transaction sees a
// consistent point-in-time snapshot of the partition and runs without
// holding the write mutex, so reads never block writes (or each other).
//
// Calling Read from inside another Read or Write on the same store is a
// programmer error and returns ErrReentrantAccess.
func (s *Store) Read(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if ctx.Value(accessKey{}) != nil {
		return ErrReentrantAccess
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin read: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{tx: sqlTx, touched: make(map[string]struct{})}
	return fn(context.WithValue(ctx, accessKey{}, struct{}{}), tx)
}

// Write executes fn within a write transaction. All changes made by fn
// commit together; if fn returns an error the transaction is rolled back
// and the error is returned. Writes to the same partition are serialized.
//
// After a successful commit, observers whose dependency tables intersect
// the tables touched by fn are notified. A write that recorded no touched
// tables conservatively notifies every observer.
//
// Calling Write from inside another Read or Write on the same store is a
// programmer error and returns ErrReentrantAccess.
func (s *Store) Write(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if ctx.Value(accessKey{}) != nil {
		return ErrReentrantAccess
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin write: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{tx: sqlTx, touched: make(map[string]struct{})}
	if err := fn(context.WithValue(ctx, accessKey{}, struct{}{}), tx); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}

	s.notify(tx.touched)
	return nil
}

// observer is a registered dependency on a set of tables. The dirty
// channel has capacity one: signalling it never blocks the committer, and
// multiple commits between re-evaluations coalesce into a single signal.
type observer struct {
	tables map[string]struct{}
	dirty  chan struct{}
}

func (ob *observer) affectedBy(touched map[string]struct{}) bool {
	if len(touched) == 0 || len(ob.tables) == 0 {
		return true
	}
	for table := range touched {
		if _, ok := ob.tables[table]; ok {
			return true
		}
	}
	return false
}

func (s *Store) addObserver(ob *observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers[ob] = struct{}{}
}

func (s *Store) removeObserver(ob *observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	delete(s.observers, ob)
}

// notify signals every observer affected by the given tables. The send is
// non-blocking: a commit never waits for a slow subscriber.
func (s *Store) notify(touched map[string]struct{}) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for ob := range s.observers {
		if ob.affectedBy(touched) {
			select {
			case ob.dirty <- struct{}{}:
			default:
			}
		}
	}
}

func (s *Store) isClosing() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}
