package pipeline_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/mocks"
	"github.com/feral-file/ufc-indexer/internal/pipeline"
	"github.com/feral-file/ufc-indexer/internal/store"
)

// setupBackfillFixture stores events in need of a date and serves their pages
func setupBackfillFixture(t *testing.T) (*fakeUpstream, store.Store) {
	t.Helper()
	ctx := context.Background()

	upstream := newFakeUpstream(t)
	upstream.set(indexPath, http.StatusOK, indexPage(
		listedEvent{name: "UFC 300: Pereira vs. Hill", path: "/wiki/UFC_300", venue: "T-Mobile Arena"},
		listedEvent{name: "UFC 299: O'Malley vs. Vera 2", path: "/wiki/UFC_299", venue: "Kaseya Center"},
		listedEvent{name: "UFC 298: Volkanovski vs. Topuria", path: "/wiki/UFC_298", venue: "Honda Center"},
	))
	upstream.set("/wiki/UFC_300", http.StatusOK, eventPage("April 13, 2024"))
	upstream.set("/wiki/UFC_299", http.StatusOK, eventPage("TBA"))
	upstream.set("/wiki/UFC_298", http.StatusOK, eventPage("February 17, 2024"))

	st := store.NewMemoryStore()
	sentinel := domain.SentinelDate
	known := domain.NewDate(2024, time.February, 17)
	for _, e := range []domain.Event{
		{Name: "UFC 300: Pereira vs Hill", Status: domain.StatusCompleted},
		{Name: "UFC 299: O'Malley vs. Vera 2", Date: &sentinel, Status: domain.StatusCompleted},
		{Name: "UFC 298: Volkanovski vs. Topuria", Date: &known, Status: domain.StatusCompleted},
		{Name: "Pride 34: Kamikaze", Status: domain.StatusCompleted},
	} {
		_, err := st.InsertEvent(ctx, &e)
		require.NoError(t, err)
	}

	return upstream, st
}

// TestBackfillDates tests that a null date is resolved through the index short key and patched
func TestBackfillDates(t *testing.T) {
	upstream, st := setupBackfillFixture(t)
	p := setupTestPipeline(t, upstream, st, nil, pipeline.Config{})

	summary, err := p.BackfillDates(context.Background())
	require.NoError(t, err)

	ufc300 := eventByName(t, st, "UFC 300: Pereira vs Hill")
	require.NotNil(t, ufc300.Date)
	assert.Equal(t, "2024-04-13", ufc300.Date.String())

	ufc299 := eventByName(t, st, "UFC 299: O'Malley vs. Vera 2")
	require.NotNil(t, ufc299.Date)
	assert.True(t, ufc299.Date.IsSentinel(), "a page without a date leaves the sentinel alone")

	assert.Equal(t, int64(1), summary.DatesPatched.Load())
	assert.Equal(t, int64(1), summary.NoDate.Load())
	assert.Equal(t, int64(1), summary.Unresolved.Load())
	assert.Equal(t, int64(2), summary.Attempted.Load())
	assert.Zero(t, upstream.hitCount("/wiki/UFC_298"), "dated events are not fetched")
}

// TestBackfillDates_DryRun tests that a dry run reports without patching
func TestBackfillDates_DryRun(t *testing.T) {
	upstream, st := setupBackfillFixture(t)
	p := setupTestPipeline(t, upstream, st, nil, pipeline.Config{DryRun: true})

	summary, err := p.BackfillDates(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.DatesPatched.Load())
	assert.Nil(t, eventByName(t, st, "UFC 300: Pereira vs Hill").Date)
}

// TestBackfillDates_NothingToDo tests that the index is not fetched when every event has a date
func TestBackfillDates_NothingToDo(t *testing.T) {
	upstream := newFakeUpstream(t)
	st := store.NewMemoryStore()
	known := domain.NewDate(2024, time.April, 13)
	_, err := st.InsertEvent(context.Background(), &domain.Event{Name: "UFC 300: Pereira vs. Hill", Date: &known, Status: domain.StatusCompleted})
	require.NoError(t, err)

	p := setupTestPipeline(t, upstream, st, nil, pipeline.Config{})

	summary, err := p.BackfillDates(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Attempted.Load())
	assert.Zero(t, upstream.hitCount(indexPath))
}

// TestBackfillDates_PublishesNotification tests the backfilled notification payload
func TestBackfillDates_PublishesNotification(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upstream, st := setupBackfillFixture(t)
	pub := mocks.NewMockPublisher(ctrl)
	p := setupTestPipeline(t, upstream, st, pub, pipeline.Config{})

	pub.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n messaging.Notification) error {
			assert.Equal(t, messaging.SubjectDateBackfilled, n.Subject)
			assert.Equal(t, "UFC 300: Pereira vs Hill", n.EventName)
			assert.Equal(t, "2024-04-13", n.Date)
			return nil
		}).
		Times(1)

	_, err := p.BackfillDates(context.Background())
	require.NoError(t, err)
}
