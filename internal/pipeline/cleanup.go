package pipeline

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/messaging"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/store"
)

// duplicateGroup is a set of events sharing one name
type duplicateGroup struct {
	name   string
	keep   domain.Event
	remove []domain.Event
	fights map[int64]int
}

// CleanupDuplicates keeps one event per name, the one with the most fights (lowest id on ties),
// and deletes the others together with their fights
func (p *Pipeline) CleanupDuplicates(ctx context.Context) (*Summary, error) {
	ctx, runID := p.startRun(ctx, CommandCleanupDuplicates)
	summary := NewSummary(CommandCleanupDuplicates)
	defer summary.Log(ctx)

	var events []domain.Event
	err := store.Retry(ctx, p.config.Retry, "list_events", func() error {
		var err error
		events, err = p.store.ListEvents(ctx, store.EventFilter{})
		return err
	})
	if err != nil {
		return summary, fmt.Errorf("failed to list events: %w", err)
	}

	var fights []domain.Fight
	err = store.Retry(ctx, p.config.Retry, "list_fights", func() error {
		var err error
		fights, err = p.store.ListFights(ctx, store.FightFilter{})
		return err
	})
	if err != nil {
		return summary, fmt.Errorf("failed to list fights: %w", err)
	}

	groups := groupDuplicates(events, fights)
	summary.DuplicateGroups.Add(int64(len(groups)))
	logger.InfoCtx(ctx, "Found duplicate event names", zap.Int("groups", len(groups)), zap.Int("events", len(events)))

	for _, g := range groups {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("cleanup run stopped: %w", ctx.Err())
		}

		gctx := logger.WithFields(ctx, zap.String("event", g.name), zap.Int64("keptEventID", g.keep.ID))
		err := p.cleanupGroup(gctx, runID, g, summary)
		summary.Record(err)
		if err != nil && Kind(err) == KindStoreUnauthorized {
			return summary, fmt.Errorf("cleanup run stopped: %w", err)
		}
	}

	return summary, nil
}

// groupDuplicates returns the groups of events sharing a name, ordered by name
func groupDuplicates(events []domain.Event, fights []domain.Fight) []duplicateGroup {
	counts := make(map[int64]int)
	for _, f := range fights {
		counts[f.EventID]++
	}

	byName := make(map[string][]domain.Event)
	for _, e := range events {
		byName[e.Name] = append(byName[e.Name], e)
	}

	var groups []duplicateGroup
	for name, members := range byName {
		if len(members) < 2 {
			continue
		}

		slices.SortFunc(members, func(a, b domain.Event) int {
			if counts[a.ID] != counts[b.ID] {
				return counts[b.ID] - counts[a.ID]
			}
			switch {
			case a.ID < b.ID:
				return -1
			case a.ID > b.ID:
				return 1
			}
			return 0
		})

		g := duplicateGroup{
			name:   name,
			keep:   members[0],
			remove: members[1:],
			fights: make(map[int64]int, len(members)),
		}
		for _, m := range members {
			g.fights[m.ID] = counts[m.ID]
		}
		groups = append(groups, g)
	}

	slices.SortFunc(groups, func(a, b duplicateGroup) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})

	return groups
}

// cleanupGroup deletes the redundant events of one group
func (p *Pipeline) cleanupGroup(ctx context.Context, runID string, g duplicateGroup, summary *Summary) error {
	ids := make([]int64, 0, len(g.remove))
	for _, e := range g.remove {
		ids = append(ids, e.ID)
		logger.InfoCtx(ctx, "Duplicate event",
			zap.Int64("eventID", e.ID),
			zap.Int("fights", g.fights[e.ID]),
			zap.Int("keptFights", g.fights[g.keep.ID]),
			zap.Bool("dryRun", p.config.DryRun),
		)
	}

	if p.config.DryRun {
		return nil
	}

	err := store.Retry(ctx, p.config.Retry, "delete_events", func() error {
		return p.store.DeleteEvents(ctx, store.EventFilter{IDs: ids})
	})
	if err != nil {
		logger.ErrorCtx(ctx, fmt.Errorf("failed to delete duplicate events: %w", err), zap.String("kind", Kind(err)))
		return err
	}

	summary.EventsDeleted.Add(int64(len(ids)))
	metrics.DuplicatesDeleted.Add(float64(len(ids)))

	for _, e := range g.remove {
		p.publish(ctx, messaging.Notification{
			Subject:     messaging.SubjectDuplicateDeleted,
			RunID:       runID,
			EventID:     e.ID,
			EventName:   e.Name,
			KeptEventID: g.keep.ID,
		})
	}

	return nil
}
