package store

import (
	"context"
	"sync"
)

// Observation is a live sequence of query results. It emits the initial
// result of the query, then a new result each time a write transaction
// commits that could affect it. Consecutive value-equal results are
// coalesced into one emission.
//
// Delivery uses latest-value semantics: the values channel has capacity
// one and older undelivered results are dropped in favour of newer ones,
// so a slow subscriber can skip intermediate snapshots but always
// converges to the terminal state, and never blocks the committer.
//
// The sequence ends when the subscriber's context is cancelled or the
// store is closed (channel closed, Err returns nil), or when a query
// re-evaluation fails (channel closed, Err returns the failure).
type Observation[T any] struct {
	values chan T
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Observe registers a live query against the store. The observation
// re-evaluates query after any commit touching one of tables; an empty
// tables list means any commit. equal is used to coalesce consecutive
// value-equal results.
func Observe[T any](ctx context.Context, s *Store, tables []string, equal func(T, T) bool, query func(ctx context.Context, tx *Tx) (T, error)) *Observation[T] {
	ctx, cancel := context.WithCancel(ctx)

	ob := &observer{
		tables: make(map[string]struct{}, len(tables)),
		dirty:  make(chan struct{}, 1),
	}
	for _, table := range tables {
		ob.tables[table] = struct{}{}
	}

	o := &Observation[T]{
		values: make(chan T, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// Register before the initial evaluation so that a commit landing
	// between the two marks the observation dirty rather than being lost.
	s.addObserver(ob)
	go o.run(ctx, s, ob, equal, query)
	return o
}

// Values returns the channel of observed results. It is closed when the
// observation ends; check Err afterwards to distinguish cancellation from
// failure.
func (o *Observation[T]) Values() <-chan T { return o.values }

// Err returns the error that terminated the observation, if any. It is
// only meaningful after Values has been closed.
func (o *Observation[T]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Stop cancels the observation. Safe to call multiple times.
func (o *Observation[T]) Stop() {
	o.cancel()
}

func (o *Observation[T]) run(ctx context.Context, s *Store, ob *observer, equal func(T, T) bool, query func(ctx context.Context, tx *Tx) (T, error)) {
	defer close(o.done)
	defer close(o.values)
	defer s.removeObserver(ob)
	defer o.cancel()

	last, err := o.evaluate(ctx, s, query)
	if err != nil {
		o.fail(ctx, s, err)
		return
	}
	o.deliver(last)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case <-ob.dirty:
			next, err := o.evaluate(ctx, s, query)
			if err != nil {
				o.fail(ctx, s, err)
				return
			}
			if !equal(next, last) {
				last = next
				o.deliver(next)
			}
		}
	}
}

func (o *Observation[T]) evaluate(ctx context.Context, s *Store, query func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	var out T
	err := s.Read(ctx, func(ctx context.Context, tx *Tx) error {
		value, err := query(ctx, tx)
		if err != nil {
			return err
		}
		out = value
		return nil
	})
	return out, err
}

// fail records a query evaluation error, unless the observation was being
// torn down anyway (cancelled subscriber or closing store).
func (o *Observation[T]) fail(ctx context.Context, s *Store, err error) {
	if ctx.Err() != nil || s.isClosing() {
		return
	}
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// deliver places a value on the channel, displacing an undelivered older
// value if the subscriber hasn't caught up. Only the run goroutine sends,
// so after draining the buffered slot the send always succeeds.
func (o *Observation[T]) deliver(value T) {
	for {
		select {
		case o.values <- value:
			return
		default:
			select {
			case <-o.values:
			default:
			}
		}
	}
}
