// Package binding defines the async operation contracts a form dispatches to
// on submit. Mutations perform writes (create, update, delete) and queries
// perform reads (search, get by id). Both expose an observable status so
// callers can surface pending and failure states independently of the form.
package binding

import (
	"context"
	"errors"
	"sync"
)

// ErrNotBound is returned by helpers that require a binding which was not
// supplied.
var ErrNotBound = errors.New("binding: operation not bound")

// MutationStatus is a snapshot of a mutation's last invocation.
type MutationStatus struct {
	IsPending bool
	IsError   bool
	IsSuccess bool
	Error     error
}

// Mutation performs an async write with variables V returning data D.
type Mutation[V, D any] interface {
	MutateAsync(ctx context.Context, variables V) (D, error)
	Status() MutationStatus
}

// QueryStatus is a snapshot of a query's last fetch.
type QueryStatus struct {
	IsLoading bool
	IsError   bool
	Error     error
}

// Query performs an async read producing T.
type Query[T any] interface {
	Data() T
	Status() QueryStatus
	Refetch(ctx context.Context) error
}

// MutationFunc is the function shape wrapped by NewMutation.
type MutationFunc[V, D any] func(ctx context.Context, variables V) (D, error)

// FuncMutation adapts a function into a Mutation and tracks its status.
type FuncMutation[V, D any] struct {
	fn MutationFunc[V, D]

	mu     sync.RWMutex
	status MutationStatus
	calls  int
}

// NewMutation wraps fn. A nil fn yields a mutation that always fails with
// ErrNotBound.
func NewMutation[V, D any](fn MutationFunc[V, D]) *FuncMutation[V, D] {
	return &FuncMutation[V, D]{fn: fn}
}

// MutateAsync runs the wrapped function. Despite the name the call blocks
// until the function returns; callers wanting concurrency run it in a
// goroutine.
func (m *FuncMutation[V, D]) MutateAsync(ctx context.Context, variables V) (D, error) {
	var zero D
	if m == nil || m.fn == nil {
		return zero, ErrNotBound
	}

	m.mu.Lock()
	m.status = MutationStatus{IsPending: true}
	m.calls++
	m.mu.Unlock()

	data, err := m.fn(ctx, variables)

	m.mu.Lock()
	if err != nil {
		m.status = MutationStatus{IsError: true, Error: err}
	} else {
		m.status = MutationStatus{IsSuccess: true}
	}
	m.mu.Unlock()

	return data, err
}

// Status reports the state of the most recent call.
func (m *FuncMutation[V, D]) Status() MutationStatus {
	if m == nil {
		return MutationStatus{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Calls reports how many times MutateAsync ran the wrapped function.
func (m *FuncMutation[V, D]) Calls() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Reset clears the recorded status.
func (m *FuncMutation[V, D]) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.status = MutationStatus{}
	m.mu.Unlock()
}

// QueryFunc is the function shape wrapped by NewQuery.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// FuncQuery adapts a function into a Query caching the last successful
// result.
type FuncQuery[T any] struct {
	fn QueryFunc[T]

	mu     sync.RWMutex
	data   T
	status QueryStatus
}

// NewQuery wraps fn. Data stays at the zero value until the first Refetch.
func NewQuery[T any](fn QueryFunc[T]) *FuncQuery[T] {
	return &FuncQuery[T]{fn: fn}
}

// Data returns the last successfully fetched value.
func (q *FuncQuery[T]) Data() T {
	if q == nil {
		var zero T
		return zero
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.data
}

// Status reports the state of the most recent fetch.
func (q *FuncQuery[T]) Status() QueryStatus {
	if q == nil {
		return QueryStatus{}
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.status
}

// Refetch runs the wrapped function, keeping the previous data on failure.
func (q *FuncQuery[T]) Refetch(ctx context.Context) error {
	if q == nil || q.fn == nil {
		return ErrNotBound
	}

	q.mu.Lock()
	q.status = QueryStatus{IsLoading: true}
	q.mu.Unlock()

	data, err := q.fn(ctx)

	q.mu.Lock()
	defer q.mu.Unlock()
	if err != nil {
		q.status = QueryStatus{IsError: true, Error: err}
		return err
	}
	q.data = data
	q.status = QueryStatus{}
	return nil
}
