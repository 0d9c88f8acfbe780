package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/discovery"
	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/parser"
	"github.com/feral-file/ufc-indexer/internal/store"
)

// BackfillDates re-fetches the pages of events without a usable date and patches the date in
func (p *Pipeline) BackfillDates(ctx context.Context) (*Summary, error) {
	ctx, runID := p.startRun(ctx, CommandBackfillDates)
	summary := NewSummary(CommandBackfillDates)
	defer summary.Log(ctx)

	var events []domain.Event
	err := store.Retry(ctx, p.config.Retry, "list_events", func() error {
		var err error
		events, err = p.store.ListEvents(ctx, store.EventFilter{MissingDate: true})
		return err
	})
	if err != nil {
		return summary, fmt.Errorf("failed to list events without date: %w", err)
	}

	logger.InfoCtx(ctx, "Found events without date", zap.Int("count", len(events)))
	if len(events) == 0 {
		return summary, nil
	}

	index, err := discovery.Discover(ctx, p.fetcher, p.config.Index)
	if err != nil {
		return summary, err
	}

	tasks := make([]Task, 0, len(events))
	for _, event := range events {
		href, ok := index.Resolve(event.Name)
		if !ok {
			summary.Unresolved.Add(1)
			logger.WarnCtx(ctx, "No index entry for event, skipping", zap.String("event", event.Name))
			continue
		}

		tasks = append(tasks, Task{
			Name: event.Name,
			Run: func(ctx context.Context) error {
				return p.backfillEvent(ctx, runID, event, href, summary)
			},
		})
	}

	err = p.scheduler.Run(ctx, tasks, func(task Task, err error) {
		summary.Record(err)
	})
	if err != nil {
		return summary, fmt.Errorf("backfill run stopped: %w", err)
	}

	return summary, nil
}

// backfillEvent fetches one page and patches the event date when the page has one
func (p *Pipeline) backfillEvent(ctx context.Context, runID string, event domain.Event, href string, summary *Summary) error {
	ctx = logger.WithFields(ctx, zap.String("event", event.Name), zap.Int64("eventID", event.ID))

	doc, err := p.fetcher.Fetch(ctx, href)
	if err != nil {
		logger.WarnCtx(ctx, "Skipping event, page fetch failed", zap.String("url", href), zap.Error(err))
		return err
	}

	date := parser.ParseMetadata(doc).Date
	if date == nil {
		summary.NoDate.Add(1)
		logger.InfoCtx(ctx, "Event page has no parseable date")
		return nil
	}

	if p.config.DryRun {
		logger.InfoCtx(ctx, "Would patch event date", zap.Stringer("date", date))
		return nil
	}

	err = store.Retry(ctx, p.config.Retry, "update_event", func() error {
		return p.store.UpdateEvent(ctx, event.ID, store.EventPatch{Date: date})
	})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to patch event date: %w", err), zap.String("kind", Kind(err)))
		return err
	}

	summary.DatesPatched.Add(1)
	logger.InfoCtx(ctx, "Patched event date", zap.Stringer("date", date))

	p.publish(ctx, messaging.Notification{
		Subject:   messaging.SubjectDateBackfilled,
		RunID:     runID,
		EventID:   event.ID,
		EventName: event.Name,
		Date:      date.String(),
	})

	return nil
}
