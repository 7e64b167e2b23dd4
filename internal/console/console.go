package console

import (
	"context"
	"log/slog"
	"time"

	"student-console/internal/messaging"
	"student-console/internal/metrics"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"
)

const (
	KindStudents = "students"
	KindStudent  = "student"
)

// ListKey identifies one page of the student list in the cache.
func ListKey(page int) query.Key {
	return query.NewKey(KindStudents, page)
}

// DetailKey identifies one student record in the cache.
func DetailKey(id int) query.Key {
	return query.NewKey(KindStudent, id)
}

// Backend is the REST API the views read and mutate through.
type Backend interface {
	ListStudents(ctx context.Context, page, limit int) (studentclient.Page, error)
	GetStudent(ctx context.Context, id int) (student.Student, error)
	CreateStudent(ctx context.Context, draft student.Draft) (student.Student, error)
	UpdateStudent(ctx context.Context, id int, s student.Student) (student.Student, error)
	DeleteStudent(ctx context.Context, id int) error
}

// Publisher receives an event after every successful mutation.
type Publisher interface {
	Publish(ctx context.Context, e messaging.Event) error
}

type Options struct {
	PageSize        int
	ListTimeout     time.Duration
	ListStaleTime   time.Duration
	DetailStaleTime time.Duration
	DetailRetry     int
	// DetailRetryDelay is the pause between detail fetch attempts.
	DetailRetryDelay time.Duration
}

func DefaultOptions() Options {
	return Options{
		PageSize:         10,
		ListTimeout:      3 * time.Second,
		DetailStaleTime:  10 * time.Second,
		DetailRetry:      3,
		DetailRetryDelay: 200 * time.Millisecond,
	}
}

// Console builds list and form views that share one query cache.
type Console struct {
	backend   Backend
	cache     *query.Client
	opts      Options
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns a Console. publisher and m may be nil.
func New(backend Backend, cache *query.Client, opts Options, publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Console {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultOptions().PageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		backend:   backend,
		cache:     cache,
		opts:      opts,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (c *Console) Cache() *query.Client {
	return c.cache
}

func (c *Console) PageSize() int {
	return c.opts.PageSize
}

// listOptions: aborted after ListTimeout, never retried, previous page kept
// on screen while the next one loads.
func (c *Console) listOptions() query.Options {
	return query.Options{
		StaleTime:        c.opts.ListStaleTime,
		Timeout:          c.opts.ListTimeout,
		KeepPreviousData: true,
	}
}

func (c *Console) detailOptions() query.Options {
	return query.Options{
		StaleTime:   c.opts.DetailStaleTime,
		Retry:       c.opts.DetailRetry,
		RetryDelay:  c.opts.DetailRetryDelay,
		ShouldRetry: studentclient.IsRetryable,
	}
}

func (c *Console) listFetcher(page int) query.FetchFn[studentclient.Page] {
	return func(ctx context.Context) (studentclient.Page, error) {
		return c.backend.ListStudents(ctx, page, c.opts.PageSize)
	}
}

func (c *Console) detailFetcher(id int) query.FetchFn[student.Student] {
	return func(ctx context.Context) (student.Student, error) {
		return c.backend.GetStudent(ctx, id)
	}
}

func (c *Console) publish(ctx context.Context, action messaging.Action, id int) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, messaging.NewEvent(action, id)); err != nil {
		c.logger.WarnContext(ctx, "failed to publish student event", "action", action, "student_id", id, "error", err)
	}
}
