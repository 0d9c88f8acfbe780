package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/retry"
)

// ErrEmptyFilter is returned when a delete is called without any predicate
var ErrEmptyFilter = fmt.Errorf("refusing to delete with an empty filter: %w", domain.ErrStoreRejected)

// EventFilter selects events. Non-empty fields are combined with AND.
type EventFilter struct {
	IDs  []int64
	Name string
	// MissingDate selects events whose date is unknown or a sentinel placeholder
	MissingDate bool
}

// IsEmpty reports whether the filter selects every event
func (f EventFilter) IsEmpty() bool {
	return len(f.IDs) == 0 && f.Name == "" && !f.MissingDate
}

// FighterFilter selects fighters by normalized name
type FighterFilter struct {
	Names []string
}

// FightFilter selects the fights of one event
type FightFilter struct {
	EventID int64
}

// IsEmpty reports whether the filter selects every fight
func (f FightFilter) IsEmpty() bool {
	return f.EventID == 0
}

// EventPatch holds the columns to update; nil fields are left untouched
type EventPatch struct {
	Date     *domain.Date
	Venue    *string
	Location *string
	Status   *domain.Status
}

// IsEmpty reports whether the patch changes nothing
func (p EventPatch) IsEmpty() bool {
	return p.Date == nil && p.Venue == nil && p.Location == nil && p.Status == nil
}

// FighterPatch holds the columns to update; nil fields are left untouched
type FighterPatch struct {
	WeightClass *string
	Record      *domain.FighterRecord
}

// IsEmpty reports whether the patch changes nothing
func (p FighterPatch) IsEmpty() bool {
	return p.WeightClass == nil && p.Record == nil
}

// Store defines the persistence contract for events, fighters and fights.
// Implementations are safe for concurrent use.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// Ping checks that the store is reachable and accepts the credentials
	Ping(ctx context.Context) error

	// ListEvents returns the events matching filter ordered by id
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error)
	// InsertEvent creates an event and returns it with its id
	InsertEvent(ctx context.Context, event *domain.Event) (*domain.Event, error)
	// UpdateEvent applies patch to the event with the given id
	UpdateEvent(ctx context.Context, id int64, patch EventPatch) error
	// DeleteEvents removes the matching events together with their fights
	DeleteEvents(ctx context.Context, filter EventFilter) error

	// ListFighters returns the fighters matching filter ordered by id
	ListFighters(ctx context.Context, filter FighterFilter) ([]domain.Fighter, error)
	// InsertFighter creates a fighter and returns it with its id
	InsertFighter(ctx context.Context, fighter *domain.Fighter) (*domain.Fighter, error)
	// UpdateFighter applies patch to the fighter with the given id
	UpdateFighter(ctx context.Context, id int64, patch FighterPatch) error

	// ListFights returns the fights matching filter ordered by fight order
	ListFights(ctx context.Context, filter FightFilter) ([]domain.Fight, error)
	// InsertFight creates a fight and returns it with its id
	InsertFight(ctx context.Context, fight *domain.Fight) (*domain.Fight, error)
	// DeleteFights removes the matching fights
	DeleteFights(ctx context.Context, filter FightFilter) error
}

// IsRetryable reports whether a store error is worth another attempt
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrStoreTransient)
}

// Retry runs a store call with policy, retrying only transient failures
func Retry(ctx context.Context, policy retry.Policy, operation string, fn func() error) error {
	return policy.Do(ctx, func(attempt int) error {
		err := fn()
		if err == nil || IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, func(err error, wait time.Duration) {
		metrics.StoreRetries.WithLabelValues(operation).Inc()
		logger.WarnCtx(ctx, "Retrying store call",
			zap.String("operation", operation),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
