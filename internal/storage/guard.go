package storage

import (
	"context"
	"errors"

	"github.com/aryan0dhankhar/companyhub/internal/reliability/circuitbreaker"
)

// GuardedStore fails fast with ErrUnavailable while the backend keeps failing.
// Not-found, duplicate and cancellation outcomes count as healthy responses.
type GuardedStore struct {
	inner   Store
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedStore wraps inner with breaker
func NewGuardedStore(inner Store, breaker *circuitbreaker.CircuitBreaker) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker}
}

// Collection returns a guarded handle on the named collection
func (g *GuardedStore) Collection(name string) Collection {
	return &guardedCollection{inner: g.inner.Collection(name), breaker: g.breaker}
}

// Ping bypasses the breaker so readiness reflects the backend itself
func (g *GuardedStore) Ping(ctx context.Context) error {
	return g.inner.Ping(ctx)
}

// Close closes the wrapped store
func (g *GuardedStore) Close() error {
	return g.inner.Close()
}

type guardedCollection struct {
	inner   Collection
	breaker *circuitbreaker.CircuitBreaker
}

func (c *guardedCollection) Insert(ctx context.Context, doc Document) (string, error) {
	return guard(c.breaker, func() (string, error) { return c.inner.Insert(ctx, doc) })
}

func (c *guardedCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	return guard(c.breaker, func() (Document, error) { return c.inner.FindOne(ctx, filter) })
}

func (c *guardedCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	return guard(c.breaker, func() ([]Document, error) { return c.inner.Find(ctx, filter) })
}

func (c *guardedCollection) UpdateOne(ctx context.Context, filter Filter, set Document) (int64, error) {
	return guard(c.breaker, func() (int64, error) { return c.inner.UpdateOne(ctx, filter, set) })
}

func (c *guardedCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	return guard(c.breaker, func() (int64, error) { return c.inner.DeleteOne(ctx, filter) })
}

func guard[T any](breaker *circuitbreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if !breaker.AllowRequest() {
		return zero, ErrUnavailable
	}
	result, err := fn()
	if isBackendFailure(err) {
		breaker.RecordFailure()
	} else {
		breaker.RecordSuccess()
	}
	return result, err
}

func isBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNoDocument) &&
		!errors.Is(err, ErrDuplicate) &&
		!errors.Is(err, context.Canceled)
}
