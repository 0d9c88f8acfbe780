package writer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/retry"
	"github.com/feral-file/ufc-indexer/internal/store"
)

// Result describes what a write changed
type Result struct {
	EventID         int64
	EventCreated    bool
	FightersCreated int
	FightsWritten   int
	// FightsUnchanged is set when the page had no decided bouts and existing fights were kept
	FightsUnchanged bool
}

// Writer reconciles one parsed event page into the store
//
//go:generate mockgen -source=writer.go -destination=../mocks/writer.go -package=mocks -mock_names=Writer=MockWriter
type Writer interface {
	// Write upserts the event, ensures its fighters and replaces its fight list.
	// Writes for the same event name are serialized.
	Write(ctx context.Context, rec domain.IndexRecord, parsed domain.ParsedEvent) (*Result, error)
}

type writer struct {
	store  store.Store
	policy retry.Policy
	locks  *keyedMutex
}

// New creates a writer. Transient store errors are retried with policy.
func New(st store.Store, policy retry.Policy) Writer {
	return &writer{
		store:  st,
		policy: policy,
		locks:  newKeyedMutex(),
	}
}

func (w *writer) Write(ctx context.Context, rec domain.IndexRecord, parsed domain.ParsedEvent) (*Result, error) {
	unlock := w.locks.Lock(rec.Name)
	defer unlock()

	event, created, err := w.upsertEvent(ctx, rec, parsed.Metadata)
	if err != nil {
		return nil, err
	}
	result := &Result{EventID: event.ID, EventCreated: created}

	fighterIDs, fightersCreated, err := w.ensureFighters(ctx, parsed.Fights)
	result.FightersCreated = fightersCreated
	if err != nil {
		return result, err
	}

	if len(parsed.Fights) == 0 {
		result.FightsUnchanged = true
		logger.InfoCtx(ctx, "No decided fights on page, keeping existing fights", zap.Int64("eventID", event.ID))
		return result, nil
	}

	fights, err := buildFights(event.ID, parsed.Fights, fighterIDs)
	if err != nil {
		return result, err
	}

	if err := w.replaceFights(ctx, event.ID, fights); err != nil {
		return result, err
	}
	result.FightsWritten = len(fights)

	return result, nil
}

// upsertEvent creates the event or patches the known one with every non-nil value
func (w *writer) upsertEvent(ctx context.Context, rec domain.IndexRecord, meta domain.EventMetadata) (*domain.Event, bool, error) {
	date := meta.Date
	if date == nil {
		date = domain.ParseDate(rec.Date)
	}
	venue := domain.StringPtr(rec.Venue)
	if venue == nil {
		venue = meta.Venue
	}
	location := domain.StringPtr(rec.Location)
	if location == nil {
		location = meta.Location
	}

	existing, err := w.findEvent(ctx, rec.Name)
	if err != nil {
		return nil, false, err
	}

	if existing == nil {
		var created *domain.Event
		err := w.call(ctx, "insert_event", func() error {
			var err error
			created, err = w.store.InsertEvent(ctx, &domain.Event{
				Name:     rec.Name,
				Date:     date,
				Venue:    venue,
				Location: location,
				Status:   domain.StatusCompleted,
			})
			return err
		})
		if err == nil {
			return created, true, nil
		}
		if !errors.Is(err, domain.ErrStoreInvariantViolation) {
			return nil, false, fmt.Errorf("failed to create event %q: %w", rec.Name, err)
		}

		// created concurrently by another process
		existing, err = w.findEvent(ctx, rec.Name)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("failed to create event %q: %w", rec.Name, domain.ErrStoreInvariantViolation)
		}
	}

	patch := store.EventPatch{}
	if date != nil && (existing.Date == nil || *existing.Date != *date) {
		patch.Date = date
	}
	if venue != nil && (existing.Venue == nil || *existing.Venue != *venue) {
		patch.Venue = venue
	}
	if location != nil && (existing.Location == nil || *existing.Location != *location) {
		patch.Location = location
	}
	if existing.Status != domain.StatusCompleted {
		status := domain.StatusCompleted
		patch.Status = &status
	}

	if !patch.IsEmpty() {
		err := w.call(ctx, "update_event", func() error {
			return w.store.UpdateEvent(ctx, existing.ID, patch)
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to update event %q: %w", rec.Name, err)
		}
	}

	return existing, false, nil
}

// findEvent returns the lowest-id event named name, or nil
func (w *writer) findEvent(ctx context.Context, name string) (*domain.Event, error) {
	var events []domain.Event
	err := w.call(ctx, "list_events", func() error {
		var err error
		events, err = w.store.ListEvents(ctx, store.EventFilter{Name: name})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up event %q: %w", name, err)
	}
	if len(events) == 0 {
		return nil, nil
	}
	if len(events) > 1 {
		logger.WarnCtx(ctx, "Event name is duplicated in store, writing to the lowest id",
			zap.String("name", name),
			zap.Int("count", len(events)),
		)
	}
	return &events[0], nil
}

// ensureFighters returns the id of every fighter of the card, creating missing ones
// with the weight class of their first fight
func (w *writer) ensureFighters(ctx context.Context, fights []domain.ParsedFight) (map[string]int64, int, error) {
	var names []string
	weightClass := make(map[string]string)
	for _, f := range fights {
		for _, name := range []string{f.WinnerKey, f.LoserKey} {
			if name == "" {
				continue
			}
			if _, seen := weightClass[name]; !seen {
				weightClass[name] = f.WeightClass
				names = append(names, name)
			}
		}
	}

	ids := make(map[string]int64, len(names))
	if len(names) == 0 {
		return ids, 0, nil
	}

	var existing []domain.Fighter
	err := w.call(ctx, "list_fighters", func() error {
		var err error
		existing, err = w.store.ListFighters(ctx, store.FighterFilter{Names: names})
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list fighters: %w", err)
	}
	for _, f := range existing {
		ids[f.Name] = f.ID
		if err := w.fillWeightClass(ctx, f, weightClass[f.Name]); err != nil {
			return nil, 0, err
		}
	}

	created := 0
	for _, name := range names {
		if _, ok := ids[name]; ok {
			continue
		}

		id, isNew, err := w.createFighter(ctx, name, weightClass[name])
		if err != nil {
			return nil, created, err
		}
		ids[name] = id
		if isNew {
			created++
		}
	}

	return ids, created, nil
}

// fillWeightClass sets the weight class of a known fighter that has none. A known weight class is never replaced.
func (w *writer) fillWeightClass(ctx context.Context, fighter domain.Fighter, weightClass string) error {
	if fighter.WeightClass != nil || weightClass == "" {
		return nil
	}

	err := w.call(ctx, "update_fighter", func() error {
		return w.store.UpdateFighter(ctx, fighter.ID, store.FighterPatch{WeightClass: &weightClass})
	})
	if err != nil {
		return fmt.Errorf("failed to update fighter %q: %w", fighter.Name, err)
	}
	return nil
}

// createFighter inserts a fighter; losing a race against another event's writer is not an error
func (w *writer) createFighter(ctx context.Context, name, weightClass string) (int64, bool, error) {
	var fighter *domain.Fighter
	err := w.call(ctx, "insert_fighter", func() error {
		var err error
		fighter, err = w.store.InsertFighter(ctx, &domain.Fighter{
			Name:        name,
			WeightClass: domain.StringPtr(weightClass),
		})
		return err
	})
	if err == nil {
		return fighter.ID, true, nil
	}
	if !errors.Is(err, domain.ErrStoreInvariantViolation) {
		return 0, false, fmt.Errorf("failed to create fighter %q: %w", name, err)
	}

	var existing []domain.Fighter
	err = w.call(ctx, "list_fighters", func() error {
		var err error
		existing, err = w.store.ListFighters(ctx, store.FighterFilter{Names: []string{name}})
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up fighter %q: %w", name, err)
	}
	if len(existing) == 0 {
		return 0, false, fmt.Errorf("failed to create fighter %q: %w", name, domain.ErrStoreInvariantViolation)
	}

	return existing[0].ID, false, nil
}

// buildFights validates the parsed card and turns it into store rows
func buildFights(eventID int64, parsed []domain.ParsedFight, fighterIDs map[string]int64) ([]domain.Fight, error) {
	sorted := slices.Clone(parsed)
	slices.SortStableFunc(sorted, func(a, b domain.ParsedFight) int { return a.FightOrder - b.FightOrder })

	fights := make([]domain.Fight, 0, len(sorted))
	for i, pf := range sorted {
		order := i + 1
		if pf.FightOrder != order {
			return nil, fmt.Errorf("fight orders of event %d are not contiguous: expected %d, got %d: %w",
				eventID, order, pf.FightOrder, domain.ErrStoreInvariantViolation)
		}
		if pf.WinnerKey == "" || pf.LoserKey == "" {
			return nil, fmt.Errorf("fight %d of event %d has an empty fighter name: %w",
				order, eventID, domain.ErrStoreInvariantViolation)
		}

		fight := domain.Fight{
			EventID:       eventID,
			WinnerName:    pf.WinnerName,
			LoserName:     pf.LoserName,
			WeightClass:   pf.WeightClass,
			Method:        pf.Method,
			Round:         pf.Round,
			Time:          pf.Time,
			FightOrder:    order,
			IsMainEvent:   order == 1,
			IsCoMainEvent: order == 2 && len(sorted) >= 2,
			Status:        domain.StatusCompleted,
		}
		if id, ok := fighterIDs[pf.WinnerKey]; ok {
			fight.Fighter1ID = &id
		}
		if id, ok := fighterIDs[pf.LoserKey]; ok {
			fight.Fighter2ID = &id
		}
		fights = append(fights, fight)
	}

	return fights, nil
}

// replaceFights swaps the event's fight list. A failure midway leaves the event without fights.
func (w *writer) replaceFights(ctx context.Context, eventID int64, fights []domain.Fight) error {
	err := w.call(ctx, "delete_fights", func() error {
		return w.store.DeleteFights(ctx, store.FightFilter{EventID: eventID})
	})
	if err != nil {
		return fmt.Errorf("failed to delete fights of event %d: %w", eventID, err)
	}

	for i := range fights {
		err := w.call(ctx, "insert_fight", func() error {
			_, err := w.store.InsertFight(ctx, &fights[i])
			return err
		})
		if err == nil {
			metrics.FightsWritten.Inc()
			continue
		}

		// best effort, the run may already be cancelled
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if cerr := w.store.DeleteFights(cleanupCtx, store.FightFilter{EventID: eventID}); cerr != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to remove partial fight list: %w", cerr), zap.Int64("eventID", eventID))
		}
		cancel()

		return fmt.Errorf("failed to insert fight %d of event %d: %w", fights[i].FightOrder, eventID, err)
	}

	return nil
}

// call runs a store operation, retrying transient failures
func (w *writer) call(ctx context.Context, operation string, fn func() error) error {
	return store.Retry(ctx, w.policy, operation, fn)
}
