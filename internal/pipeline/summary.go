package pipeline

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/retry"
	"github.com/feral-file/ufc-indexer/internal/writer"
)

// Error kinds reported in the run summary
const (
	KindConfig                  = "ConfigError"
	KindIndexUnavailable        = "IndexUnavailable"
	KindIndexSchemaChanged      = "IndexSchemaChanged"
	KindFetchTimeout            = "FetchTimeout"
	KindFetchHTTPError          = "FetchHTTPError"
	KindFetchAborted            = "FetchAborted"
	KindStoreTransient          = "StoreTransient"
	KindStoreInvariantViolation = "StoreInvariantViolation"
	KindStoreRejected           = "StoreRejected"
	KindStoreUnauthorized       = "StoreUnauthorized"
	KindUnknown                 = "Unknown"
)

// Kind classifies err into one of the summary kinds
func Kind(err error) string {
	var httpErr *domain.FetchHTTPError
	switch {
	case errors.Is(err, domain.ErrConfig):
		return KindConfig
	case errors.Is(err, domain.ErrIndexUnavailable):
		return KindIndexUnavailable
	case errors.Is(err, domain.ErrIndexSchemaChanged):
		return KindIndexSchemaChanged
	case errors.Is(err, domain.ErrFetchAborted), errors.Is(err, retry.ErrAborted):
		return KindFetchAborted
	case errors.Is(err, domain.ErrFetchTimeout):
		return KindFetchTimeout
	case errors.As(err, &httpErr):
		return KindFetchHTTPError
	case errors.Is(err, domain.ErrStoreUnauthorized):
		return KindStoreUnauthorized
	case errors.Is(err, domain.ErrStoreInvariantViolation):
		return KindStoreInvariantViolation
	case errors.Is(err, domain.ErrStoreTransient):
		return KindStoreTransient
	case errors.Is(err, domain.ErrStoreRejected):
		return KindStoreRejected
	default:
		return KindUnknown
	}
}

// Summary counts the outcome of one command run. It is safe for concurrent use.
type Summary struct {
	Command string

	Attempted     atomic.Int64
	Succeeded     atomic.Int64
	FightsWritten atomic.Int64
	EventsCreated atomic.Int64
	EmptyCards    atomic.Int64

	// backfill-dates
	DatesPatched atomic.Int64
	Unresolved   atomic.Int64
	NoDate       atomic.Int64

	// cleanup-duplicates
	DuplicateGroups atomic.Int64
	EventsDeleted   atomic.Int64

	mu      sync.Mutex
	skipped map[string]int64
}

// NewSummary creates an empty summary for command
func NewSummary(command string) *Summary {
	return &Summary{
		Command: command,
		skipped: make(map[string]int64),
	}
}

// Record counts one attempted event, skipped when err is not nil
func (s *Summary) Record(err error) {
	s.Attempted.Add(1)

	if err == nil {
		s.Succeeded.Add(1)
		metrics.EventsProcessed.WithLabelValues(s.Command, "succeeded", "").Inc()
		return
	}

	kind := Kind(err)
	s.mu.Lock()
	s.skipped[kind]++
	s.mu.Unlock()
	metrics.EventsProcessed.WithLabelValues(s.Command, "skipped", kind).Inc()
}

// RecordWrite adds the counters of a writer result
func (s *Summary) RecordWrite(result *writer.Result) {
	if result == nil {
		return
	}
	s.FightsWritten.Add(int64(result.FightsWritten))
	if result.EventCreated {
		s.EventsCreated.Add(1)
	}
	if result.FightsUnchanged {
		s.EmptyCards.Add(1)
	}
}

// Skipped returns the number of events skipped with the given kind
func (s *Summary) Skipped(kind string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped[kind]
}

// SkippedTotal returns the number of events skipped for any reason
func (s *Summary) SkippedTotal() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, n := range s.skipped {
		total += n
	}
	return total
}

// Log writes the summary as a single log line
func (s *Summary) Log(ctx context.Context) {
	s.mu.Lock()
	kinds := slices.Sorted(maps.Keys(s.skipped))
	skipped := make([]zap.Field, 0, len(kinds))
	for _, kind := range kinds {
		skipped = append(skipped, zap.Int64(kind, s.skipped[kind]))
	}
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("command", s.Command),
		zap.Int64("attempted", s.Attempted.Load()),
		zap.Int64("succeeded", s.Succeeded.Load()),
		zap.Dict("skipped", skipped...),
	}

	switch s.Command {
	case CommandIngest:
		fields = append(fields,
			zap.Int64("fightsWritten", s.FightsWritten.Load()),
			zap.Int64("eventsCreated", s.EventsCreated.Load()),
			zap.Int64("emptyCards", s.EmptyCards.Load()),
		)
	case CommandBackfillDates:
		fields = append(fields,
			zap.Int64("datesPatched", s.DatesPatched.Load()),
			zap.Int64("unresolved", s.Unresolved.Load()),
			zap.Int64("noDate", s.NoDate.Load()),
		)
	case CommandCleanupDuplicates:
		fields = append(fields,
			zap.Int64("duplicateGroups", s.DuplicateGroups.Load()),
			zap.Int64("eventsDeleted", s.EventsDeleted.Load()),
		)
	}

	logger.InfoCtx(ctx, "Run summary", fields...)
}
