package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/retry"
)

// Task is one unit of per-event work
type Task struct {
	// Name identifies the task in logs, usually the event name
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler runs tasks on a bounded worker pool
type Scheduler struct {
	width  int
	budget time.Duration
}

// NewScheduler creates a scheduler running at most width tasks at once,
// each bounded by budget (no bound when budget <= 0)
func NewScheduler(width int, budget time.Duration) *Scheduler {
	if width <= 0 {
		width = domain.DEFAULT_WORKER_POOL_SIZE
	}
	return &Scheduler{width: width, budget: budget}
}

// Width returns the pool width
func (s *Scheduler) Width() int {
	return s.width
}

// Run executes tasks and calls record with the outcome of every started task.
// record may be called concurrently.
//
// Once ctx is done no further task is started. Tasks already running keep going on a
// context detached from ctx, and stop at their next retry boundary.
// A task failing with ErrStoreUnauthorized stops the run the same way and its error is returned.
func (s *Scheduler) Run(ctx context.Context, tasks []Task, record func(Task, error)) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatalErr  error
		notRun    int
		mu        sync.Mutex
	)

	pool := pond.NewPool(s.width, pond.WithContext(context.WithoutCancel(ctx)))

	for _, task := range tasks {
		if runCtx.Err() != nil {
			mu.Lock()
			notRun++
			mu.Unlock()
			continue
		}

		pool.Submit(func() {
			if runCtx.Err() != nil {
				mu.Lock()
				notRun++
				mu.Unlock()
				return
			}

			taskCtx := retry.WithAbort(context.WithoutCancel(ctx), runCtx)
			if s.budget > 0 {
				var cancelTask context.CancelFunc
				taskCtx, cancelTask = context.WithTimeout(taskCtx, s.budget)
				defer cancelTask()
			}

			err := task.Run(taskCtx)
			if errors.Is(err, domain.ErrStoreUnauthorized) {
				fatalOnce.Do(func() {
					fatalErr = err
					cancel()
				})
			}
			record(task, err)
		})
	}

	pool.StopAndWait()

	if notRun > 0 {
		logger.WarnCtx(ctx, "Run stopped before every task started",
			zap.Int("notStarted", notRun),
			zap.Int("total", len(tasks)),
		)
	}

	if fatalErr != nil {
		return fatalErr
	}
	return ctx.Err()
}
