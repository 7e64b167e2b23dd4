package query

import (
	"context"
	"time"
)

// Fetcher loads the value for a key. It must honour ctx cancellation.
type Fetcher func(ctx context.Context) (any, error)

type Options struct {
	// StaleTime is how long a stored value counts as fresh. Zero means
	// every read refetches.
	StaleTime time.Duration
	// Timeout bounds a single fetch, retries included. Expiry fails the
	// fetch with ErrTimeout.
	Timeout time.Duration
	// Retry is the number of extra attempts after a failed one.
	Retry      int
	RetryDelay time.Duration
	// ShouldRetry filters which errors are retried; nil retries all.
	ShouldRetry func(error) bool
	// KeepPreviousData makes an Observer show the last key's data while the
	// new key has none.
	KeepPreviousData bool
}

func (o Options) shouldRetry(err error) bool {
	if o.ShouldRetry == nil {
		return true
	}
	return o.ShouldRetry(err)
}
