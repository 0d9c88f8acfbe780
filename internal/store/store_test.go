package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestEvent creates an event with a unique name
func buildTestEvent(name string, date *domain.Date) *domain.Event {
	return &domain.Event{
		Name:     name,
		Date:     date,
		Venue:    domain.StringPtr("T-Mobile Arena"),
		Location: domain.StringPtr("Las Vegas, Nevada, U.S."),
		Status:   domain.StatusCompleted,
	}
}

// buildTestFight creates a fight of eventID at order with flags derived from the order
func buildTestFight(eventID int64, order int, winner, loser *domain.Fighter) *domain.Fight {
	round := 3
	clock := "5:00"
	f := &domain.Fight{
		EventID:       eventID,
		WinnerName:    fmt.Sprintf("Winner %d", order),
		LoserName:     fmt.Sprintf("Loser %d", order),
		WeightClass:   "Lightweight",
		Method:        "Decision (unanimous)",
		Round:         &round,
		Time:          &clock,
		FightOrder:    order,
		IsMainEvent:   order == 1,
		IsCoMainEvent: order == 2,
		Status:        domain.StatusCompleted,
	}
	if winner != nil {
		f.Fighter1ID = &winner.ID
		f.WinnerName = winner.Name
	}
	if loser != nil {
		f.Fighter2ID = &loser.ID
		f.LoserName = loser.Name
	}
	return f
}

func datePtr(year int, month time.Month, day int) *domain.Date {
	d := domain.NewDate(year, month, day)
	return &d
}

// =============================================================================
// Test: Events
// =============================================================================

func testEvents(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("insert returns the stored row with an id", func(t *testing.T) {
		created, err := store.InsertEvent(ctx, buildTestEvent("UFC 300: Pereira vs. Hill", datePtr(2024, time.April, 13)))
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "UFC 300: Pereira vs. Hill", created.Name)
		require.NotNil(t, created.Date)
		assert.Equal(t, "2024-04-13", created.Date.String())
		assert.Equal(t, domain.StatusCompleted, created.Status)

		events, err := store.ListEvents(ctx, EventFilter{Name: "UFC 300: Pereira vs. Hill"})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, *created, events[0])
	})

	t.Run("duplicate name is an invariant violation", func(t *testing.T) {
		_, err := store.InsertEvent(ctx, buildTestEvent("UFC 301", nil))
		require.NoError(t, err)

		_, err = store.InsertEvent(ctx, buildTestEvent("UFC 301", nil))
		assert.ErrorIs(t, err, domain.ErrStoreInvariantViolation)
	})

	t.Run("update patches only the given fields", func(t *testing.T) {
		created, err := store.InsertEvent(ctx, buildTestEvent("UFC 302", nil))
		require.NoError(t, err)

		err = store.UpdateEvent(ctx, created.ID, EventPatch{Date: datePtr(2024, time.June, 1)})
		require.NoError(t, err)

		events, err := store.ListEvents(ctx, EventFilter{IDs: []int64{created.ID}})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].Date)
		assert.Equal(t, "2024-06-01", events[0].Date.String())
		assert.Equal(t, created.Venue, events[0].Venue)
		assert.Equal(t, created.Location, events[0].Location)
	})

	t.Run("update of a missing id is rejected", func(t *testing.T) {
		err := store.UpdateEvent(ctx, 987654321, EventPatch{Venue: domain.StringPtr("Nowhere")})
		assert.ErrorIs(t, err, domain.ErrStoreRejected)
	})

	t.Run("missing date filter selects null and sentinel dates", func(t *testing.T) {
		_, err := store.InsertEvent(ctx, buildTestEvent("UFC 1: The Beginning", nil))
		require.NoError(t, err)
		_, err = store.InsertEvent(ctx, buildTestEvent("UFC 2: No Way Out", datePtr(1, time.January, 1)))
		require.NoError(t, err)
		_, err = store.InsertEvent(ctx, buildTestEvent("UFC 3: The American Dream", datePtr(1905, time.January, 1)))
		require.NoError(t, err)
		_, err = store.InsertEvent(ctx, buildTestEvent("UFC 4: Revenge of the Warriors", datePtr(1994, time.December, 16)))
		require.NoError(t, err)

		events, err := store.ListEvents(ctx, EventFilter{MissingDate: true})
		require.NoError(t, err)

		names := make(map[string]bool)
		for _, e := range events {
			names[e.Name] = true
		}
		assert.True(t, names["UFC 1: The Beginning"])
		assert.True(t, names["UFC 2: No Way Out"])
		assert.True(t, names["UFC 3: The American Dream"])
		assert.False(t, names["UFC 4: Revenge of the Warriors"])
	})

	t.Run("delete removes events and their fights", func(t *testing.T) {
		event, err := store.InsertEvent(ctx, buildTestEvent("UFC 303", nil))
		require.NoError(t, err)
		_, err = store.InsertFight(ctx, buildTestFight(event.ID, 1, nil, nil))
		require.NoError(t, err)

		require.NoError(t, store.DeleteEvents(ctx, EventFilter{IDs: []int64{event.ID}}))

		events, err := store.ListEvents(ctx, EventFilter{IDs: []int64{event.ID}})
		require.NoError(t, err)
		assert.Empty(t, events)

		fights, err := store.ListFights(ctx, FightFilter{EventID: event.ID})
		require.NoError(t, err)
		assert.Empty(t, fights)
	})

	t.Run("delete with an empty filter is refused", func(t *testing.T) {
		err := store.DeleteEvents(ctx, EventFilter{})
		assert.ErrorIs(t, err, domain.ErrStoreRejected)
	})
}

// =============================================================================
// Test: Fighters
// =============================================================================

func testFighters(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("insert and list by names", func(t *testing.T) {
		pereira, err := store.InsertFighter(ctx, &domain.Fighter{Name: "Alex Pereira", WeightClass: domain.StringPtr("Light Heavyweight")})
		require.NoError(t, err)
		assert.NotZero(t, pereira.ID)

		_, err = store.InsertFighter(ctx, &domain.Fighter{Name: "Jamahal Hill"})
		require.NoError(t, err)

		fighters, err := store.ListFighters(ctx, FighterFilter{Names: []string{"Alex Pereira", "Nobody"}})
		require.NoError(t, err)
		require.Len(t, fighters, 1)
		assert.Equal(t, *pereira, fighters[0])
	})

	t.Run("names with punctuation are matched exactly", func(t *testing.T) {
		_, err := store.InsertFighter(ctx, &domain.Fighter{Name: `Antônio "Big Foot" Silva, Jr. (BR)`})
		require.NoError(t, err)

		fighters, err := store.ListFighters(ctx, FighterFilter{Names: []string{`Antônio "Big Foot" Silva, Jr. (BR)`}})
		require.NoError(t, err)
		require.Len(t, fighters, 1)
	})

	t.Run("duplicate name is an invariant violation", func(t *testing.T) {
		_, err := store.InsertFighter(ctx, &domain.Fighter{Name: "Zhang Weili"})
		require.NoError(t, err)

		_, err = store.InsertFighter(ctx, &domain.Fighter{Name: "Zhang Weili"})
		assert.ErrorIs(t, err, domain.ErrStoreInvariantViolation)
	})

	t.Run("update sets record and weight class", func(t *testing.T) {
		created, err := store.InsertFighter(ctx, &domain.Fighter{Name: "Max Holloway"})
		require.NoError(t, err)

		err = store.UpdateFighter(ctx, created.ID, FighterPatch{
			WeightClass: domain.StringPtr("Featherweight"),
			Record:      &domain.FighterRecord{Wins: 26, Losses: 7},
		})
		require.NoError(t, err)

		fighters, err := store.ListFighters(ctx, FighterFilter{Names: []string{"Max Holloway"}})
		require.NoError(t, err)
		require.Len(t, fighters, 1)
		require.NotNil(t, fighters[0].Record)
		assert.Equal(t, domain.FighterRecord{Wins: 26, Losses: 7}, *fighters[0].Record)
		assert.Equal(t, "Featherweight", *fighters[0].WeightClass)
	})
}

// =============================================================================
// Test: Fights
// =============================================================================

func testFights(t *testing.T, store Store) {
	ctx := context.Background()

	event, err := store.InsertEvent(ctx, buildTestEvent("UFC 304", nil))
	require.NoError(t, err)
	winner, err := store.InsertFighter(ctx, &domain.Fighter{Name: "Leon Edwards"})
	require.NoError(t, err)
	loser, err := store.InsertFighter(ctx, &domain.Fighter{Name: "Belal Muhammad"})
	require.NoError(t, err)

	t.Run("insert and list in fight order", func(t *testing.T) {
		for _, order := range []int{2, 1, 3} {
			_, err := store.InsertFight(ctx, buildTestFight(event.ID, order, winner, loser))
			require.NoError(t, err)
		}

		fights, err := store.ListFights(ctx, FightFilter{EventID: event.ID})
		require.NoError(t, err)
		require.Len(t, fights, 3)
		for i, f := range fights {
			assert.Equal(t, i+1, f.FightOrder)
			assert.Equal(t, event.ID, f.EventID)
		}
		assert.True(t, fights[0].IsMainEvent)
		assert.True(t, fights[1].IsCoMainEvent)
		require.NotNil(t, fights[0].Fighter1ID)
		assert.Equal(t, winner.ID, *fights[0].Fighter1ID)
		require.NotNil(t, fights[0].Round)
		assert.Equal(t, 3, *fights[0].Round)
	})

	t.Run("duplicate order is an invariant violation", func(t *testing.T) {
		f := buildTestFight(event.ID, 3, nil, nil)
		_, err := store.InsertFight(ctx, f)
		assert.ErrorIs(t, err, domain.ErrStoreInvariantViolation)
	})

	t.Run("second main event is an invariant violation", func(t *testing.T) {
		f := buildTestFight(event.ID, 4, nil, nil)
		f.IsMainEvent = true
		_, err := store.InsertFight(ctx, f)
		assert.ErrorIs(t, err, domain.ErrStoreInvariantViolation)
	})

	t.Run("unknown event is an invariant violation", func(t *testing.T) {
		_, err := store.InsertFight(ctx, buildTestFight(987654321, 1, nil, nil))
		assert.ErrorIs(t, err, domain.ErrStoreInvariantViolation)
	})

	t.Run("delete by event", func(t *testing.T) {
		require.NoError(t, store.DeleteFights(ctx, FightFilter{EventID: event.ID}))

		fights, err := store.ListFights(ctx, FightFilter{EventID: event.ID})
		require.NoError(t, err)
		assert.Empty(t, fights)

		// fighters survive
		fighters, err := store.ListFighters(ctx, FighterFilter{Names: []string{"Leon Edwards"}})
		require.NoError(t, err)
		assert.Len(t, fighters, 1)
	})

	t.Run("delete with an empty filter is refused", func(t *testing.T) {
		assert.ErrorIs(t, store.DeleteFights(ctx, FightFilter{}), domain.ErrStoreRejected)
	})
}

// RunStoreTests runs the store contract against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Events", testEvents},
		{"Fighters", testFighters},
		{"Fights", testFights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
