package query

import (
	"context"
	"fmt"
)

// FetchFn is the typed form of Fetcher.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Fetcher adapts fn to the untyped form the Client and Observer take.
func (fn FetchFn[T]) Fetcher() Fetcher {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// Get is a type-safe wrapper around Client.Query.
func Get[T any](ctx context.Context, c *Client, key Key, fn FetchFn[T], opts Options) (T, error) {
	v, err := c.Query(ctx, key, fn.Fetcher(), opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// Refetch is a type-safe wrapper around Client.Refetch.
func Refetch[T any](ctx context.Context, c *Client, key Key, fn FetchFn[T], opts Options) (T, error) {
	v, err := c.Refetch(ctx, key, fn.Fetcher(), opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return cast[T](key, v)
}

// Prefetch is a type-safe wrapper around Client.Prefetch.
func Prefetch[T any](c *Client, key Key, fn FetchFn[T], opts Options) bool {
	return c.Prefetch(key, fn.Fetcher(), opts)
}

// Data extracts typed data from a state snapshot.
func Data[T any](s State) (T, bool) {
	v, ok := s.Data.(T)
	return v, ok && s.HasData()
}

func cast[T any](key Key, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w: %T", key, ErrUnexpectedType, v)
	}
	return t, nil
}
