package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

// memoryStore keeps everything in process. It enforces the same uniqueness
// rules as the database schema.
type memoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	events   map[int64]domain.Event
	fighters map[int64]domain.Fighter
	fights   map[int64]domain.Fight
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() Store {
	return &memoryStore{
		events:   make(map[int64]domain.Event),
		fighters: make(map[int64]domain.Fighter),
		fights:   make(map[int64]domain.Fight),
	}
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *memoryStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Event
	for _, e := range s.events {
		if matchEvent(e, filter) {
			out = append(out, cloneEvent(e))
		}
	}
	slices.SortFunc(out, func(a, b domain.Event) int { return compareID(a.ID, b.ID) })

	return out, nil
}

func (s *memoryStore) InsertEvent(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.events {
		if e.Name == event.Name {
			return nil, fmt.Errorf("failed to insert event %q: duplicate name: %w", event.Name, domain.ErrStoreInvariantViolation)
		}
	}

	e := cloneEvent(*event)
	e.ID = s.id()
	s.events[e.ID] = e

	out := cloneEvent(e)
	return &out, nil
}

func (s *memoryStore) UpdateEvent(ctx context.Context, id int64, patch EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("failed to update event %d: not found: %w", id, domain.ErrStoreRejected)
	}

	if patch.Date != nil {
		d := *patch.Date
		e.Date = &d
	}
	if patch.Venue != nil {
		e.Venue = copyString(patch.Venue)
	}
	if patch.Location != nil {
		e.Location = copyString(patch.Location)
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	s.events[id] = e

	return nil
}

func (s *memoryStore) DeleteEvents(ctx context.Context, filter EventFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.events {
		if !matchEvent(e, filter) {
			continue
		}
		for fid, f := range s.fights {
			if f.EventID == id {
				delete(s.fights, fid)
			}
		}
		delete(s.events, id)
	}

	return nil
}

func (s *memoryStore) ListFighters(ctx context.Context, filter FighterFilter) ([]domain.Fighter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Fighter
	for _, f := range s.fighters {
		if len(filter.Names) == 0 || slices.Contains(filter.Names, f.Name) {
			out = append(out, cloneFighter(f))
		}
	}
	slices.SortFunc(out, func(a, b domain.Fighter) int { return compareID(a.ID, b.ID) })

	return out, nil
}

func (s *memoryStore) InsertFighter(ctx context.Context, fighter *domain.Fighter) (*domain.Fighter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fighters {
		if f.Name == fighter.Name {
			return nil, fmt.Errorf("failed to insert fighter %q: duplicate name: %w", fighter.Name, domain.ErrStoreInvariantViolation)
		}
	}

	f := cloneFighter(*fighter)
	f.ID = s.id()
	s.fighters[f.ID] = f

	out := cloneFighter(f)
	return &out, nil
}

func (s *memoryStore) UpdateFighter(ctx context.Context, id int64, patch FighterPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fighters[id]
	if !ok {
		return fmt.Errorf("failed to update fighter %d: not found: %w", id, domain.ErrStoreRejected)
	}

	if patch.WeightClass != nil {
		f.WeightClass = copyString(patch.WeightClass)
	}
	if patch.Record != nil {
		r := *patch.Record
		f.Record = &r
	}
	s.fighters[id] = f

	return nil
}

func (s *memoryStore) ListFights(ctx context.Context, filter FightFilter) ([]domain.Fight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Fight
	for _, f := range s.fights {
		if filter.EventID == 0 || f.EventID == filter.EventID {
			out = append(out, cloneFight(f))
		}
	}
	slices.SortFunc(out, func(a, b domain.Fight) int {
		if a.EventID != b.EventID {
			return compareID(a.EventID, b.EventID)
		}
		return a.FightOrder - b.FightOrder
	})

	return out, nil
}

func (s *memoryStore) InsertFight(ctx context.Context, fight *domain.Fight) (*domain.Fight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[fight.EventID]; !ok {
		return nil, fmt.Errorf("failed to insert fight: unknown event %d: %w", fight.EventID, domain.ErrStoreInvariantViolation)
	}
	for _, id := range []*int64{fight.Fighter1ID, fight.Fighter2ID} {
		if id == nil {
			continue
		}
		if _, ok := s.fighters[*id]; !ok {
			return nil, fmt.Errorf("failed to insert fight: unknown fighter %d: %w", *id, domain.ErrStoreInvariantViolation)
		}
	}

	for _, f := range s.fights {
		if f.EventID != fight.EventID {
			continue
		}
		switch {
		case f.FightOrder == fight.FightOrder:
			return nil, fmt.Errorf("failed to insert fight: duplicate order %d for event %d: %w",
				fight.FightOrder, fight.EventID, domain.ErrStoreInvariantViolation)
		case f.IsMainEvent && fight.IsMainEvent:
			return nil, fmt.Errorf("failed to insert fight: event %d already has a main event: %w",
				fight.EventID, domain.ErrStoreInvariantViolation)
		case f.IsCoMainEvent && fight.IsCoMainEvent:
			return nil, fmt.Errorf("failed to insert fight: event %d already has a co-main event: %w",
				fight.EventID, domain.ErrStoreInvariantViolation)
		}
	}

	f := cloneFight(*fight)
	f.ID = s.id()
	s.fights[f.ID] = f

	out := cloneFight(f)
	return &out, nil
}

func (s *memoryStore) DeleteFights(ctx context.Context, filter FightFilter) error {
	if filter.IsEmpty() {
		return ErrEmptyFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, f := range s.fights {
		if f.EventID == filter.EventID {
			delete(s.fights, id)
		}
	}

	return nil
}

func matchEvent(e domain.Event, filter EventFilter) bool {
	if len(filter.IDs) > 0 && !slices.Contains(filter.IDs, e.ID) {
		return false
	}
	if filter.Name != "" && e.Name != filter.Name {
		return false
	}
	if filter.MissingDate && e.Date != nil && !e.Date.IsSentinel() {
		return false
	}
	return true
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneEvent(e domain.Event) domain.Event {
	if e.Date != nil {
		d := *e.Date
		e.Date = &d
	}
	e.Venue = copyString(e.Venue)
	e.Location = copyString(e.Location)
	return e
}

func cloneFighter(f domain.Fighter) domain.Fighter {
	f.WeightClass = copyString(f.WeightClass)
	if f.Record != nil {
		r := *f.Record
		f.Record = &r
	}
	return f
}

func cloneFight(f domain.Fight) domain.Fight {
	f.Fighter1ID = copyInt64(f.Fighter1ID)
	f.Fighter2ID = copyInt64(f.Fighter2ID)
	f.Time = copyString(f.Time)
	if f.Round != nil {
		r := *f.Round
		f.Round = &r
	}
	return f
}
