package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/pipeline"
	"github.com/feral-file/ufc-indexer/internal/retry"
)

func tasksOf(n int, run func(i int, ctx context.Context) error) []pipeline.Task {
	tasks := make([]pipeline.Task, 0, n)
	for i := range n {
		tasks = append(tasks, pipeline.Task{
			Name: fmt.Sprintf("UFC %d", i),
			Run:  func(ctx context.Context) error { return run(i, ctx) },
		})
	}
	return tasks
}

// TestScheduler_BoundsConcurrency tests that no more than width tasks run at once
func TestScheduler_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int32
	tasks := tasksOf(20, func(i int, ctx context.Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	var recorded atomic.Int32
	err := pipeline.NewScheduler(3, time.Second).Run(context.Background(), tasks, func(pipeline.Task, error) {
		recorded.Add(1)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(20), recorded.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

// TestScheduler_RecordsErrors tests that every outcome reaches record with its task
func TestScheduler_RecordsErrors(t *testing.T) {
	boom := errors.New("boom")
	tasks := tasksOf(4, func(i int, ctx context.Context) error {
		if i%2 == 1 {
			return boom
		}
		return nil
	})

	var mu sync.Mutex
	outcomes := make(map[string]error)
	err := pipeline.NewScheduler(2, 0).Run(context.Background(), tasks, func(task pipeline.Task, err error) {
		mu.Lock()
		outcomes[task.Name] = err
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]error{"UFC 0": nil, "UFC 1": boom, "UFC 2": nil, "UFC 3": boom}, outcomes)
}

// TestScheduler_TaskBudget tests that each task runs under its own deadline
func TestScheduler_TaskBudget(t *testing.T) {
	tasks := tasksOf(1, func(i int, ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
		return nil
	})

	err := pipeline.NewScheduler(1, time.Minute).Run(context.Background(), tasks, func(pipeline.Task, error) {})
	require.NoError(t, err)
}

// TestScheduler_CancelStopsSubmission tests that cancellation lets the running task finish at its retry boundary
func TestScheduler_CancelStopsSubmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := retry.Policy{InitialInterval: 5 * time.Millisecond, Multiplier: 1, MaxInterval: 5 * time.Millisecond, MaxAttempts: 100}

	var started atomic.Int32
	var taskCtxErr error
	tasks := tasksOf(5, func(i int, taskCtx context.Context) error {
		started.Add(1)
		attempts := 0
		err := policy.Do(taskCtx, func(attempt int) error {
			attempts++
			if attempts == 2 {
				cancel()
			}
			return errors.New("still failing")
		}, nil)
		taskCtxErr = taskCtx.Err()
		return err
	})

	var recorded []error
	err := pipeline.NewScheduler(1, 0).Run(ctx, tasks, func(_ pipeline.Task, err error) {
		recorded = append(recorded, err)
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), started.Load())
	require.Len(t, recorded, 1)
	assert.ErrorIs(t, recorded[0], retry.ErrAborted)
	assert.NoError(t, taskCtxErr, "running tasks are detached from the parent")
	assert.Equal(t, pipeline.KindFetchAborted, pipeline.Kind(recorded[0]))
}

// TestScheduler_UnauthorizedIsFatal tests that credential failures stop the run
func TestScheduler_UnauthorizedIsFatal(t *testing.T) {
	unauthorized := fmt.Errorf("GET events: %w", domain.ErrStoreUnauthorized)

	var started atomic.Int32
	tasks := tasksOf(5, func(i int, ctx context.Context) error {
		started.Add(1)
		if i == 1 {
			return unauthorized
		}
		return nil
	})

	err := pipeline.NewScheduler(1, 0).Run(context.Background(), tasks, func(pipeline.Task, error) {})
	assert.ErrorIs(t, err, domain.ErrStoreUnauthorized)
	assert.Equal(t, int32(2), started.Load())
}
