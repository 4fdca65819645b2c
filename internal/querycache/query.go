package querycache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Fetcher loads the value of a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is a snapshot of a query.
type State[T any] struct {
	Data       T
	HasData    bool
	IsLoading  bool // no data yet and a fetch is in flight
	IsFetching bool
	Err        error
	UpdatedAt  time.Time
}

// Query returns the value for key, fetching it when needed.
//
// A fresh entry is served from the cache. A stale entry is served as well,
// and a background refetch is started. A missing or invalidated entry is
// fetched before returning; concurrent callers for the same key share one
// fetch. Failures are reported in State.Err together with any previous
// value, never as a panic.
//
// Fetches are detached from ctx cancellation: a caller that gives up gets
// ctx.Err() back, but the fetch completes and populates the cache.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) State[T] {
	c.mu.Lock()
	id, e := c.lookup(key)
	switch {
	case c.isFresh(e):
		st := stateOf[T](e)
		c.mu.Unlock()
		return st
	case e.hasValue && !e.invalidated():
		st := stateOf[T](e)
		flight := flightID(id, e)
		c.mu.Unlock()
		c.refetch(ctx, flight, key, erase(fetch))
		st.IsFetching = true
		return st
	}
	flight := flightID(id, e)
	c.mu.Unlock()

	ch := c.group.DoChan(flight, func() (any, error) {
		return c.run(context.WithoutCancel(ctx), key, erase(fetch))
	})

	var err error
	select {
	case r := <-ch:
		err = r.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, e = c.lookup(key)
	st := stateOf[T](e)
	if err != nil {
		st.Err = err
	}
	return st
}

// Peek returns the cached state for key without fetching.
func Peek[T any](c *Cache, key Key) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, e := c.lookup(key)
	return stateOf[T](e)
}

// Prefetch loads key unless a fresh entry exists and reports the error.
func Prefetch[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) error {
	return Query(ctx, c, key, fetch).Err
}

func (c *Cache) refetch(ctx context.Context, flight string, key Key, fetch func(context.Context) (any, error)) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		_, err, _ := c.group.Do(flight, func() (any, error) {
			return c.run(context.WithoutCancel(ctx), key, fetch)
		})
		if err != nil {
			c.logger.Warn("background refetch failed", zap.Stringer("key", key), zap.Error(err))
		}
	}()
}

func erase[T any](fetch Fetcher[T]) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

// stateOf must be called with c.mu held.
func stateOf[T any](e *entry) State[T] {
	st := State[T]{
		IsFetching: e.fetching > 0,
		IsLoading:  e.fetching > 0 && !e.hasValue,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
	}
	if e.hasValue {
		v, ok := e.value.(T)
		if !ok {
			st.Err = fmt.Errorf("query %s holds %T, not %T", e.key, e.value, st.Data)
			return st
		}
		st.Data = v
		st.HasData = true
	}
	return st
}

// Mutation runs a write and invalidates related queries when it succeeds.
type Mutation[A, R any] struct {
	cache       *Cache
	fn          func(context.Context, A) (R, error)
	invalidates []Key
	pending     atomic.Int64
}

// NewMutation creates a Mutation that invalidates the given key prefixes
// after every successful call.
func NewMutation[A, R any](c *Cache, fn func(context.Context, A) (R, error), invalidates ...Key) *Mutation[A, R] {
	return &Mutation[A, R]{cache: c, fn: fn, invalidates: invalidates}
}

// Mutate runs the write. A failed write leaves the cache untouched.
func (m *Mutation[A, R]) Mutate(ctx context.Context, arg A) (R, error) {
	m.pending.Add(1)
	defer m.pending.Add(-1)

	r, err := m.fn(ctx, arg)
	if err != nil {
		return r, err
	}
	for _, k := range m.invalidates {
		m.cache.Invalidate(k)
	}
	return r, nil
}

// IsPending reports whether a call is in progress.
func (m *Mutation[A, R]) IsPending() bool {
	return m.pending.Load() > 0
}
