package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	queryHits          metric.Int64Counter
	queryMisses        metric.Int64Counter
	queryFetches       metric.Int64Counter
	queryFailures      metric.Int64Counter
	queryCancellations metric.Int64Counter
	queryInvalidations metric.Int64Counter
	fetchDuration      metric.Float64Histogram
	mutations          metric.Int64Counter
	studentsListViewed metric.Int64Counter
}

func New(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.queryHits, err = meter.Int64Counter(
		"student_console.query.hits",
		metric.WithDescription("Reads answered from a fresh cache entry"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryMisses, err = meter.Int64Counter(
		"student_console.query.misses",
		metric.WithDescription("Reads that had to wait for a fetch"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryFetches, err = meter.Int64Counter(
		"student_console.query.fetches",
		metric.WithDescription("Fetches started by the query cache"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryFailures, err = meter.Int64Counter(
		"student_console.query.failures",
		metric.WithDescription("Fetches that ended in an error state"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryCancellations, err = meter.Int64Counter(
		"student_console.query.cancellations",
		metric.WithDescription("In-flight fetches canceled or superseded"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, err
	}

	m.queryInvalidations, err = meter.Int64Counter(
		"student_console.query.invalidations",
		metric.WithDescription("Cache entries marked stale"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	// Buckets: 10ms, 50ms, 100ms, 250ms, 500ms, 1s, 2s, 3s, 5s, 10s
	m.fetchDuration, err = meter.Float64Histogram(
		"student_console.query.fetch_duration",
		metric.WithDescription("Time spent in query fetchers"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	m.mutations, err = meter.Int64Counter(
		"student_console.mutations",
		metric.WithDescription("Create, update and delete calls by outcome"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	m.studentsListViewed, err = meter.Int64Counter(
		"student_console.students.list_viewed",
		metric.WithDescription("Total number of times a students list page was rendered"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", kind))
}

func (m *Metrics) RecordHit(ctx context.Context, kind string) {
	if m != nil && m.queryHits != nil {
		m.queryHits.Add(ctx, 1, kindAttr(kind))
	}
}

func (m *Metrics) RecordMiss(ctx context.Context, kind string) {
	if m != nil && m.queryMisses != nil {
		m.queryMisses.Add(ctx, 1, kindAttr(kind))
	}
}

func (m *Metrics) RecordFetch(ctx context.Context, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	if m.queryFetches != nil {
		m.queryFetches.Add(ctx, 1, kindAttr(kind))
	}
	if m.fetchDuration != nil {
		m.fetchDuration.Record(ctx, duration.Seconds(), kindAttr(kind))
	}
	if err != nil && m.queryFailures != nil {
		m.queryFailures.Add(ctx, 1, kindAttr(kind))
	}
}

func (m *Metrics) RecordCancellation(ctx context.Context, kind string) {
	if m != nil && m.queryCancellations != nil {
		m.queryCancellations.Add(ctx, 1, kindAttr(kind))
	}
}

func (m *Metrics) RecordInvalidation(ctx context.Context, kind string) {
	if m != nil && m.queryInvalidations != nil {
		m.queryInvalidations.Add(ctx, 1, kindAttr(kind))
	}
}

func (m *Metrics) RecordMutation(ctx context.Context, action string, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordStudentsListViewed(ctx context.Context) {
	if m != nil && m.studentsListViewed != nil {
		m.studentsListViewed.Add(ctx, 1)
	}
}

// NewMock creates a no-op Metrics instance for testing
// The returned Metrics will safely ignore all Record* calls
func NewMock() *Metrics {
	return &Metrics{}
}
