package query

import (
	"context"
	"sync"
)

// Result is what a view renders: the entry state for the observed key, or
// the previous key's data when KeepPreviousData applies.
type Result struct {
	State
	IsPlaceholderData bool
}

// Observer follows one key at a time on behalf of a view.
type Observer struct {
	client *Client
	opts   Options

	mu       sync.Mutex
	key      Key
	fn       Fetcher
	hasKey   bool
	previous *Result
}

func (c *Client) Observe(opts Options) *Observer {
	return &Observer{client: c, opts: opts}
}

// SetKey switches the observed key. The last result under the old key is
// kept as placeholder data for the new one.
func (o *Observer) SetKey(key Key, fn Fetcher) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.hasKey && !o.key.Equal(key) {
		last := o.resultLocked()
		if last.HasData() && last.IsSuccess() {
			o.previous = &last
		}
	}
	o.key = key
	o.fn = fn
	o.hasKey = true
}

func (o *Observer) Key() Key {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.key
}

// Load reads the observed key through the cache and returns the resulting view state.
func (o *Observer) Load(ctx context.Context) (Result, error) {
	key, fn := o.current()
	_, err := o.client.Query(ctx, key, fn, o.opts)
	return o.Result(), err
}

// Refetch forces a fetch of the observed key.
func (o *Observer) Refetch(ctx context.Context) (Result, error) {
	key, fn := o.current()
	_, err := o.client.Refetch(ctx, key, fn, o.opts)
	return o.Result(), err
}

func (o *Observer) Cancel() bool {
	key, _ := o.current()
	return o.client.Cancel(key)
}

func (o *Observer) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resultLocked()
}

func (o *Observer) resultLocked() Result {
	state, _ := o.client.State(o.key)
	r := Result{State: state}
	if !o.opts.KeepPreviousData || state.HasData() || state.IsError() || o.previous == nil {
		return r
	}
	r.Data = o.previous.Data
	r.UpdatedAt = o.previous.UpdatedAt
	r.Status = StatusSuccess
	r.IsPlaceholderData = true
	return r
}

func (o *Observer) current() (Key, Fetcher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.key, o.fn
}
