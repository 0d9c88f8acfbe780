package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/adapter"
	"github.com/feral-file/ufc-indexer/internal/discovery"
	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/fetcher"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/parser"
	"github.com/feral-file/ufc-indexer/internal/retry"
	"github.com/feral-file/ufc-indexer/internal/store"
	"github.com/feral-file/ufc-indexer/internal/writer"
)

// Command names, also used as metric labels
const (
	CommandIngest            = "ingest"
	CommandBackfillDates     = "backfill-dates"
	CommandCleanupDuplicates = "cleanup-duplicates"
)

// Config holds the run options
type Config struct {
	Index discovery.Config
	// StartFrom skips that many index records
	StartFrom int
	// MaxEvents caps the number of events of an ingest run, 0 means all
	MaxEvents int
	// Events restricts an ingest run to these names, resolved through the index
	Events []string
	// DryRun reports what backfill and cleanup would change without writing
	DryRun bool
	// Retry is the policy for store calls made outside the writer
	Retry retry.Policy
}

// Pipeline wires discovery, fetching, parsing and writing together
type Pipeline struct {
	fetcher   fetcher.Fetcher
	store     store.Store
	writer    writer.Writer
	publisher messaging.Publisher
	scheduler *Scheduler
	clock     adapter.Clock
	config    Config
}

// New creates a pipeline
func New(
	f fetcher.Fetcher,
	st store.Store,
	w writer.Writer,
	pub messaging.Publisher,
	scheduler *Scheduler,
	clock adapter.Clock,
	cfg Config,
) *Pipeline {
	if pub == nil {
		pub = messaging.NewNoopPublisher()
	}
	return &Pipeline{
		fetcher:   f,
		store:     st,
		writer:    w,
		publisher: pub,
		scheduler: scheduler,
		clock:     clock,
		config:    cfg,
	}
}

// startRun tags ctx with a fresh run id and the command name
func (p *Pipeline) startRun(ctx context.Context, command string) (context.Context, string) {
	runID := ulid.MustNew(ulid.Timestamp(p.clock.Now()), rand.Reader).String()
	ctx = logger.WithFields(ctx, zap.String("run_id", runID), zap.String("command", command))
	logger.InfoCtx(ctx, "Starting run")
	return ctx, runID
}

// Ingest discovers every event, then fetches, parses and writes each one
func (p *Pipeline) Ingest(ctx context.Context) (*Summary, error) {
	ctx, runID := p.startRun(ctx, CommandIngest)
	summary := NewSummary(CommandIngest)
	defer summary.Log(ctx)

	index, err := discovery.Discover(ctx, p.fetcher, p.config.Index)
	if err != nil {
		return summary, err
	}

	records := p.selectRecords(ctx, index)
	logger.InfoCtx(ctx, "Selected events", zap.Int("count", len(records)), zap.Int("indexed", index.Len()))

	tasks := make([]Task, 0, len(records))
	for _, rec := range records {
		tasks = append(tasks, Task{
			Name: rec.Name,
			Run: func(ctx context.Context) error {
				return p.ingestEvent(ctx, runID, rec, summary)
			},
		})
	}

	err = p.scheduler.Run(ctx, tasks, func(task Task, err error) {
		summary.Record(err)
	})
	if err != nil {
		return summary, fmt.Errorf("ingest run stopped: %w", err)
	}

	return summary, nil
}

// selectRecords applies the start offset, the event filter and the cap to the index
func (p *Pipeline) selectRecords(ctx context.Context, index *discovery.Index) []domain.IndexRecord {
	if len(p.config.Events) > 0 {
		var records []domain.IndexRecord
		seen := make(map[string]bool)
		for _, name := range p.config.Events {
			rec, ok := index.Lookup(name)
			if !ok {
				logger.WarnCtx(ctx, "Requested event not found in index", zap.String("event", name))
				continue
			}
			if seen[rec.Name] {
				continue
			}
			seen[rec.Name] = true
			records = append(records, rec)
		}
		return records
	}

	records := index.Records()
	if p.config.StartFrom > 0 {
		records = records[min(p.config.StartFrom, len(records)):]
	}
	if p.config.MaxEvents > 0 && len(records) > p.config.MaxEvents {
		records = records[:p.config.MaxEvents]
	}
	return records
}

// ingestEvent runs fetch, parse and write for one event
func (p *Pipeline) ingestEvent(ctx context.Context, runID string, rec domain.IndexRecord, summary *Summary) error {
	ctx = logger.WithFields(ctx, zap.String("event", rec.Name))

	doc, err := p.fetcher.Fetch(ctx, rec.Href)
	if err != nil {
		logger.WarnCtx(ctx, "Skipping event, page fetch failed", zap.String("url", rec.Href), zap.Error(err))
		return err
	}

	parsed := parser.ParseEvent(doc)
	for _, a := range parsed.Anomalies {
		logger.DebugCtx(ctx, "Discarded fight-card row",
			zap.String("kind", domain.ErrParseRowAnomaly.Error()),
			zap.Int("table", a.Table),
			zap.Int("row", a.Row),
			zap.String("reason", a.Reason),
		)
	}

	result, err := p.writer.Write(ctx, rec, parsed)
	summary.RecordWrite(result)
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to write event: %w", err), zap.String("kind", Kind(err)))
		return err
	}

	logger.InfoCtx(ctx, "Ingested event",
		zap.Int64("eventID", result.EventID),
		zap.Bool("created", result.EventCreated),
		zap.Int("fightersCreated", result.FightersCreated),
		zap.Int("fightsWritten", result.FightsWritten),
		zap.Bool("fightsUnchanged", result.FightsUnchanged),
	)

	p.publish(ctx, messaging.Notification{
		Subject:       messaging.SubjectEventIngested,
		RunID:         runID,
		EventID:       result.EventID,
		EventName:     rec.Name,
		FightsWritten: result.FightsWritten,
	})

	return nil
}

// publish sends a notification; failures are logged and never fail the event
func (p *Pipeline) publish(ctx context.Context, n messaging.Notification) {
	n.OccurredAt = p.clock.Now().UTC()
	if err := p.publisher.Publish(ctx, n); err != nil {
		logger.WarnCtx(ctx, "Failed to publish notification",
			zap.String("subject", string(n.Subject)),
			zap.Error(err),
		)
	}
}
