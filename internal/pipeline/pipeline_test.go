package pipeline_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/adapter"
	"github.com/feral-file/ufc-indexer/internal/discovery"
	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/fetcher"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/pipeline"
	"github.com/feral-file/ufc-indexer/internal/retry"
	"github.com/feral-file/ufc-indexer/internal/store"
	"github.com/feral-file/ufc-indexer/internal/writer"
)

const indexPath = "/wiki/List_of_UFC_events"

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

var fastPolicy = retry.Policy{
	InitialInterval: time.Millisecond,
	Multiplier:      2,
	MaxInterval:     4 * time.Millisecond,
	MaxAttempts:     4,
}

// =============================================================================
// Fake upstream
// =============================================================================

type page struct {
	status int
	body   string
}

// fakeUpstream serves index and event pages from memory and counts hits per path
type fakeUpstream struct {
	mu     sync.Mutex
	pages  map[string]page
	hits   map[string]int
	server *httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	u := &fakeUpstream{
		pages: make(map[string]page),
		hits:  make(map[string]int),
	}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		p, ok := u.pages[r.URL.Path]
		u.hits[r.URL.Path]++
		u.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *fakeUpstream) set(path string, status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pages[path] = page{status: status, body: body}
}

func (u *fakeUpstream) hitCount(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits[path]
}

func (u *fakeUpstream) url(path string) string {
	return u.server.URL + path
}

// listedEvent is one row of the fake index page
type listedEvent struct {
	name  string
	path  string
	date  string
	venue string
}

func indexPage(events ...listedEvent) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="wikitable"><tr><th>#</th><th>Event</th><th>Date</th><th>Venue</th><th>Location</th></tr>`)
	for i, e := range events {
		fmt.Fprintf(&b, `<tr><td>%d</td><td><a href="%s">%s</a></td><td>%s</td><td>%s</td><td>Las Vegas, Nevada, U.S.</td></tr>`,
			len(events)-i, e.path, e.name, e.date, e.venue)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

// bout renders a decided results row
func bout(weight, winner, loser string) string {
	return fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td>def.</td><td>%s</td><td>Decision (unanimous)</td><td>3</td><td>5:00</td><td></td></tr>`,
		weight, winner, loser)
}

func eventPage(date string, bouts ...string) string {
	return `<html><body>` +
		`<table class="infobox"><tr><th>Date</th><td>` + date + `</td></tr><tr><th>Venue</th><td>Page Arena</td></tr></table>` +
		`<table class="toccolours"><tr><th colspan="8">Main card</th></tr>` +
		`<tr><th>Weight class</th><th></th><th></th><th></th><th>Method</th><th>Round</th><th>Time</th><th>Notes</th></tr>` +
		strings.Join(bouts, "") +
		`</table></body></html>`
}

// =============================================================================
// Setup
// =============================================================================

// setupTestPipeline builds a pipeline with real fetcher and writer against the fake upstream
func setupTestPipeline(t *testing.T, upstream *fakeUpstream, st store.Store, pub messaging.Publisher, cfg pipeline.Config) *pipeline.Pipeline {
	t.Helper()

	client := adapter.NewHTTPClient(adapter.HTTPClientConfig{
		Timeout:   2 * time.Second,
		MaxConns:  4,
		UserAgent: domain.DEFAULT_USER_AGENT,
	})
	f := fetcher.New(client, adapter.NewClock(), fetcher.Config{
		Workers: 4,
		Timeout: 2 * time.Second,
		Retry:   fastPolicy,
	})

	cfg.Index = discovery.Config{IndexURL: upstream.url(indexPath), Threshold: 1}
	cfg.Retry = fastPolicy

	return pipeline.New(
		f,
		st,
		writer.New(st, fastPolicy),
		pub,
		pipeline.NewScheduler(4, 10*time.Second),
		adapter.NewClock(),
		cfg,
	)
}

// storeSnapshot is the store content with volatile fight ids cleared
type storeSnapshot struct {
	events   []domain.Event
	fighters []domain.Fighter
	fights   []domain.Fight
}

func takeSnapshot(t *testing.T, st store.Store) storeSnapshot {
	t.Helper()
	ctx := context.Background()

	events, err := st.ListEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	fighters, err := st.ListFighters(ctx, store.FighterFilter{})
	require.NoError(t, err)
	fights, err := st.ListFights(ctx, store.FightFilter{})
	require.NoError(t, err)

	for i := range fights {
		fights[i].ID = 0
	}

	return storeSnapshot{events: events, fighters: fighters, fights: fights}
}

func eventByName(t *testing.T, st store.Store, name string) domain.Event {
	t.Helper()
	events, err := st.ListEvents(context.Background(), store.EventFilter{Name: name})
	require.NoError(t, err)
	require.Len(t, events, 1, name)
	return events[0]
}

func fightsOf(t *testing.T, st store.Store, eventID int64) []domain.Fight {
	t.Helper()
	fights, err := st.ListFights(context.Background(), store.FightFilter{EventID: eventID})
	require.NoError(t, err)
	return fights
}

// fixedClock is a clock frozen at a known instant
type fixedClock struct{}

func (fixedClock) Now() time.Time {
	return time.Date(2024, time.April, 14, 12, 0, 0, 0, time.UTC)
}

func (c fixedClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (fixedClock) SleepContext(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
