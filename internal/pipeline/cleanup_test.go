package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/mocks"
	"github.com/feral-file/ufc-indexer/internal/pipeline"
	"github.com/feral-file/ufc-indexer/internal/store"
)

// testCleanupMocks contains the mocks needed for testing cleanup
type testCleanupMocks struct {
	ctrl      *gomock.Controller
	store     *mocks.MockStore
	publisher *mocks.MockPublisher
}

// setupTestCleanup creates mocks serving a store with duplicated event names.
// Memory and SQL stores refuse duplicate names, so the listing is mocked.
func setupTestCleanup(t *testing.T) *testCleanupMocks {
	ctrl := gomock.NewController(t)
	tm := &testCleanupMocks{
		ctrl:      ctrl,
		store:     mocks.NewMockStore(ctrl),
		publisher: mocks.NewMockPublisher(ctrl),
	}

	events := []domain.Event{
		{ID: 1, Name: "UFC 200: Tate vs. Nunes"},
		{ID: 2, Name: "UFC 200: Tate vs. Nunes"},
		{ID: 3, Name: "UFC 200: Tate vs. Nunes"},
		{ID: 4, Name: "UFC 201: Lawler vs. Woodley"},
		{ID: 5, Name: "UFC 202: Diaz vs. McGregor 2"},
		{ID: 6, Name: "UFC 202: Diaz vs. McGregor 2"},
	}
	var fights []domain.Fight
	for order := 1; order <= 3; order++ {
		fights = append(fights,
			domain.Fight{EventID: 2, FightOrder: order},
			domain.Fight{EventID: 3, FightOrder: order},
		)
	}
	fights = append(fights, domain.Fight{EventID: 4, FightOrder: 1})

	tm.store.EXPECT().ListEvents(gomock.Any(), store.EventFilter{}).Return(events, nil)
	tm.store.EXPECT().ListFights(gomock.Any(), store.FightFilter{}).Return(fights, nil)

	return tm
}

func newCleanupPipeline(tm *testCleanupMocks, cfg pipeline.Config) *pipeline.Pipeline {
	cfg.Retry = fastPolicy
	return pipeline.New(nil, tm.store, nil, tm.publisher, pipeline.NewScheduler(1, 0), fixedClock{}, cfg)
}

// TestCleanupDuplicates tests that the event with most fights survives, lowest id on ties
func TestCleanupDuplicates(t *testing.T) {
	tm := setupTestCleanup(t)
	defer tm.ctrl.Finish()

	gomock.InOrder(
		tm.store.EXPECT().DeleteEvents(gomock.Any(), store.EventFilter{IDs: []int64{3, 1}}).Return(nil),
		tm.store.EXPECT().DeleteEvents(gomock.Any(), store.EventFilter{IDs: []int64{6}}).Return(nil),
	)

	var deleted []int64
	tm.publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, n messaging.Notification) error {
			assert.Equal(t, messaging.SubjectDuplicateDeleted, n.Subject)
			deleted = append(deleted, n.EventID)
			if n.EventID == 6 {
				assert.Equal(t, int64(5), n.KeptEventID)
			} else {
				assert.Equal(t, int64(2), n.KeptEventID)
			}
			return nil
		}).
		Times(3)

	summary, err := newCleanupPipeline(tm, pipeline.Config{}).CleanupDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 6}, deleted)
	assert.Equal(t, int64(2), summary.DuplicateGroups.Load())
	assert.Equal(t, int64(3), summary.EventsDeleted.Load())
	assert.Equal(t, int64(2), summary.Succeeded.Load())
}

// TestCleanupDuplicates_DryRun tests that a dry run deletes nothing
func TestCleanupDuplicates_DryRun(t *testing.T) {
	tm := setupTestCleanup(t)
	defer tm.ctrl.Finish()

	tm.store.EXPECT().DeleteEvents(gomock.Any(), gomock.Any()).Times(0)
	tm.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	summary, err := newCleanupPipeline(tm, pipeline.Config{DryRun: true}).CleanupDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.DuplicateGroups.Load())
	assert.Zero(t, summary.EventsDeleted.Load())
}

// TestCleanupDuplicates_GroupFailure tests that one failed group does not stop the others
func TestCleanupDuplicates_GroupFailure(t *testing.T) {
	tm := setupTestCleanup(t)
	defer tm.ctrl.Finish()

	gomock.InOrder(
		tm.store.EXPECT().DeleteEvents(gomock.Any(), store.EventFilter{IDs: []int64{3, 1}}).
			Return(fmt.Errorf("DELETE events: %w", domain.ErrStoreRejected)),
		tm.store.EXPECT().DeleteEvents(gomock.Any(), store.EventFilter{IDs: []int64{6}}).Return(nil),
	)
	tm.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	summary, err := newCleanupPipeline(tm, pipeline.Config{}).CleanupDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Skipped(pipeline.KindStoreRejected))
	assert.Equal(t, int64(1), summary.EventsDeleted.Load())
}

// TestCleanupDuplicates_Unauthorized tests that rejected credentials stop the run
func TestCleanupDuplicates_Unauthorized(t *testing.T) {
	tm := setupTestCleanup(t)
	defer tm.ctrl.Finish()

	tm.store.EXPECT().DeleteEvents(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("DELETE events: %w", domain.ErrStoreUnauthorized)).
		Times(1)

	_, err := newCleanupPipeline(tm, pipeline.Config{}).CleanupDuplicates(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnauthorized)
}
