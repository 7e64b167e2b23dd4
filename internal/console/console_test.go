package console_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"student-console/internal/console"
	"student-console/internal/logger"
	"student-console/internal/messaging"
	"student-console/internal/metrics"
	"student-console/internal/query"
	"student-console/internal/student"
	"student-console/internal/studentclient"
	"student-console/testing/fakeapi"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []messaging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.Event(nil), p.events...)
}

type fixture struct {
	console *console.Console
	cache   *query.Client
	api     *fakeapi.Server
	events  *recordingPublisher
}

func testOptions() console.Options {
	opts := console.DefaultOptions()
	opts.DetailRetryDelay = time.Millisecond
	return opts
}

func setup(t *testing.T, opts console.Options) *fixture {
	t.Helper()

	api := fakeapi.Setup(t)
	log := logger.Discard()
	cache := query.NewClient(query.Config{GCInterval: -1, Logger: log})
	t.Cleanup(func() { cache.Close() })

	events := &recordingPublisher{}
	backend := studentclient.NewClient(api.URL, 5*time.Second, log)

	return &fixture{
		console: console.New(backend, cache, opts, events, metrics.NewMock(), log),
		cache:   cache,
		api:     api,
		events:  events,
	}
}

func completeDraft(email string) student.Draft {
	return student.Draft{
		Email:      email,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Gender:     student.GenderFemale,
		Country:    "United Kingdom",
		Avatar:     "https://example.com/ada.png",
		BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
	}
}

func fillDraft(t *testing.T, f *console.FormView, d student.Draft) {
	t.Helper()
	for _, field := range student.Fields {
		value, err := d.Get(field)
		require.NoError(t, err)
		require.NoError(t, f.Change(field, value))
	}
}

func ids(students []student.Student) []int {
	out := make([]int, len(students))
	for i, s := range students {
		out[i] = s.ID
	}
	return out
}
