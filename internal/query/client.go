package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"student-console/internal/metrics"
)

const (
	defaultCacheTime  = 5 * time.Minute
	defaultGCInterval = time.Minute
)

type Config struct {
	// CacheTime is how long an entry nobody reads survives; 0 => 5m.
	CacheTime time.Duration
	// GCInterval is how often unused entries are swept; 0 => 1m, <0 disables.
	GCInterval time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool

	cacheTime time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type entry struct {
	state      State
	gen        uint64
	fetch      *fetch
	invalidSeq uint64
	lastAccess time.Time
}

// fetch is one run of a Fetcher. Readers wait on done; if next is set when
// done closes, the fetch was superseded and readers follow next instead.
type fetch struct {
	gen    uint64
	seq    uint64
	cancel context.CancelFunc
	// prev is the entry state before the first fetch in a superseding chain
	// started; prevSeq is the sequence number it was taken at.
	prev    State
	prevSeq uint64

	once sync.Once
	done chan struct{}
	data any
	err  error
	next *fetch
}

func (f *fetch) resolve(data any, err error) {
	f.once.Do(func() {
		f.data = data
		f.err = err
		close(f.done)
	})
}

func NewClient(cfg Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		entries:   make(map[string]*entry),
		ctx:       ctx,
		cancel:    cancel,
		cacheTime: coalesce(cfg.CacheTime, defaultCacheTime),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}

	interval := coalesce(cfg.GCInterval, defaultGCInterval)
	if interval > 0 {
		c.ticker = time.NewTicker(interval)
		c.stopCh = make(chan struct{})
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			for {
				select {
				case <-c.ticker.C:
					c.collect()
				case <-c.stopCh:
					return
				}
			}
		}()
	}
	return c
}

// Query returns the cached value for key when it is fresh under
// opts.StaleTime and otherwise fetches it, joining a fetch already in flight.
// Returning early because ctx ended does not abort the shared fetch.
func (c *Client) Query(ctx context.Context, key Key, fn Fetcher, opts Options) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key)
	if !e.state.IsStale(opts.StaleTime, c.now()) {
		data := e.state.Data
		c.mu.Unlock()
		c.metrics.RecordHit(ctx, key.Kind)
		return data, nil
	}
	f := e.fetch
	if f == nil {
		f = c.startLocked(key, e, fn, opts)
	}
	c.mu.Unlock()

	c.metrics.RecordMiss(ctx, key.Kind)
	return wait(ctx, f)
}

// Refetch fetches key regardless of freshness. A fetch already in flight is
// canceled and its readers receive this fetch's result.
func (c *Client) Refetch(ctx context.Context, key Key, fn Fetcher, opts Options) (any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entryLocked(key)
	f := c.startLocked(key, e, fn, opts)
	c.mu.Unlock()

	return wait(ctx, f)
}

// Prefetch starts a background fetch unless the entry is fresh under
// opts.StaleTime or already fetching. It never blocks.
func (c *Client) Prefetch(key Key, fn Fetcher, opts Options) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	e := c.entryLocked(key)
	if e.fetch != nil || !e.state.IsStale(opts.StaleTime, c.now()) {
		return false
	}
	c.startLocked(key, e, fn, opts)
	return true
}

// Invalidate marks the entry stale so the next read refetches. A fetch in
// flight still stores its result but leaves the entry stale.
func (c *Client) Invalidate(key Key) bool {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	if ok {
		c.seq++
		e.invalidSeq = c.seq
		e.state.Invalidated = true
	}
	c.mu.Unlock()

	if ok {
		c.metrics.RecordInvalidation(c.ctx, key.Kind)
		c.logger.Debug("query invalidated", "key", key.String())
	}
	return ok
}

// Cancel aborts the in-flight fetch for key. Readers get ErrCanceled and the
// entry returns to the state it had before the fetch started.
func (c *Client) Cancel(key Key) bool {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return false
	}
	f := e.fetch
	e.gen++
	e.fetch = nil
	e.state = f.prev
	// an invalidation made while the fetch ran must survive the revert
	e.state.Invalidated = e.state.Invalidated || e.invalidSeq > f.prevSeq
	c.mu.Unlock()

	f.cancel()
	f.resolve(nil, ErrCanceled)
	c.metrics.RecordCancellation(c.ctx, key.Kind)
	c.logger.Debug("query canceled", "key", key.String())
	return true
}

// SetEntry stores value as fresh data for key. It supersedes any fetch in
// flight; that fetch's readers receive value.
func (c *Client) SetEntry(key Key, value any) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.gen++
	f := e.fetch
	e.fetch = nil
	e.state = State{
		Key:       key,
		Status:    StatusSuccess,
		Data:      value,
		UpdatedAt: c.now(),
	}
	c.mu.Unlock()

	if f != nil {
		f.cancel()
		f.resolve(value, nil)
	}
}

// State returns a snapshot of the entry for key.
func (c *Client) State(key Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return State{Key: key, Status: StatusIdle, FetchStatus: FetchIdle}, false
	}
	e.lastAccess = c.now()
	return e.snapshot(), true
}

// Remove drops the entry, canceling its fetch.
func (c *Client) Remove(key Key) bool {
	c.mu.Lock()
	e, ok := c.entries[key.String()]
	var f *fetch
	if ok {
		delete(c.entries, key.String())
		e.gen++
		f = e.fetch
		e.fetch = nil
	}
	c.mu.Unlock()

	if f != nil {
		f.cancel()
		f.resolve(nil, ErrCanceled)
	}
	return ok
}

func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweeper and aborts every fetch in flight.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var pending []*fetch
	for _, e := range c.entries {
		if e.fetch != nil {
			pending = append(pending, e.fetch)
			e.fetch = nil
			e.gen++
		}
	}
	c.mu.Unlock()

	c.cancel()
	for _, f := range pending {
		f.resolve(nil, ErrClosed)
	}
	if c.stopCh != nil {
		close(c.stopCh)
		c.ticker.Stop()
		c.wg.Wait()
	}
	return nil
}

func (e *entry) snapshot() State {
	s := e.state
	s.FetchStatus = FetchIdle
	if e.fetch != nil {
		s.FetchStatus = FetchFetching
	}
	return s
}

func (c *Client) entryLocked(key Key) *entry {
	k := key.String()
	e, ok := c.entries[k]
	if !ok {
		e = &entry{state: State{Key: key, Status: StatusIdle}}
		c.entries[k] = e
	}
	e.lastAccess = c.now()
	return e
}

// startLocked begins a new fetch generation for e, superseding the current one.
func (c *Client) startLocked(key Key, e *entry, fn Fetcher, opts Options) *fetch {
	c.seq++
	e.gen++

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}

	f := &fetch{
		gen:     e.gen,
		seq:     c.seq,
		cancel:  cancel,
		prev:    e.state,
		prevSeq: c.seq,
		done:    make(chan struct{}),
	}

	if old := e.fetch; old != nil {
		f.prev = old.prev
		f.prevSeq = old.prevSeq
		old.next = f
		old.cancel()
		old.resolve(nil, ErrCanceled)
		c.metrics.RecordCancellation(c.ctx, key.Kind)
	}
	e.fetch = f

	if !e.state.HasData() {
		e.state.Status = StatusLoading
		e.state.Err = nil
	}

	go c.run(ctx, key, e, f, fn, opts)
	return f
}

func (c *Client) run(ctx context.Context, key Key, e *entry, f *fetch, fn Fetcher, opts Options) {
	defer f.cancel()

	start := c.now()
	var (
		data     any
		err      error
		failures int
	)
	for {
		data, err = fn(ctx)
		if err == nil {
			break
		}
		failures++
		if ctx.Err() != nil || failures > opts.Retry || !opts.shouldRetry(err) {
			break
		}
		if !sleep(ctx, opts.RetryDelay) {
			break
		}
	}
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %w", ErrTimeout, opts.Timeout, err)
	}
	c.metrics.RecordFetch(c.ctx, key.Kind, c.now().Sub(start), err)

	c.mu.Lock()
	current := e.fetch == f && e.gen == f.gen
	if current {
		e.fetch = nil
		now := c.now()
		if err == nil {
			e.state.Status = StatusSuccess
			e.state.Data = data
			e.state.UpdatedAt = now
			e.state.Err = nil
			e.state.FailureCount = 0
			e.state.Invalidated = e.invalidSeq > f.seq
		} else {
			e.state.Status = StatusError
			e.state.Err = err
			e.state.ErrorAt = now
			e.state.FailureCount = failures
		}
	}
	c.mu.Unlock()

	if !current {
		c.logger.Debug("discarding superseded fetch result", "key", key.String())
		// readers were already resolved by whoever superseded this fetch
		f.resolve(nil, ErrCanceled)
		return
	}
	if err != nil {
		c.logger.Warn("query fetch failed", "key", key.String(), "attempts", failures, "error", err)
	}
	f.resolve(data, err)
}

func wait(ctx context.Context, f *fetch) (any, error) {
	for {
		select {
		case <-f.done:
			if f.next != nil {
				f = f.next
				continue
			}
			return f.data, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// collect removes entries that have not been read for cacheTime.
func (c *Client) collect() {
	cutoff := c.now().Add(-c.cacheTime)

	c.mu.Lock()
	removed := 0
	for k, e := range c.entries {
		if e.fetch == nil && e.lastAccess.Before(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.logger.Debug("query cache sweep", "removed", removed)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
