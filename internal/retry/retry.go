package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/feral-file/ufc-indexer/internal/domain"
)

// ErrAborted is returned when the abort signal fired at a retry boundary
var ErrAborted = errors.New("retry aborted")

type abortKey struct{}

// Policy is a bounded exponential backoff without jitter
type Policy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxAttempts     int
}

// DefaultPolicy returns the fetch policy: 500ms, x2, capped at 8s, 4 attempts in total
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: domain.DEFAULT_RETRY_INITIAL,
		Multiplier:      domain.DEFAULT_RETRY_MULTIPLIER,
		MaxInterval:     domain.DEFAULT_RETRY_MAX_INTERVAL,
		MaxAttempts:     domain.DEFAULT_RETRY_MAX_ATTEMPTS,
	}
}

// WithAttempts returns a copy of the policy with a different attempt budget
func (p Policy) WithAttempts(attempts int) Policy {
	p.MaxAttempts = attempts
	return p
}

// Waits returns the sum of the pauses taken between attempts when every attempt fails
func (p Policy) Waits() time.Duration {
	var total time.Duration
	interval := p.InitialInterval
	for i := 1; i < p.MaxAttempts; i++ {
		total += interval
		interval = min(time.Duration(float64(interval)*p.Multiplier), p.MaxInterval)
	}
	return total
}

// WithAbort attaches an abort signal to ctx. Operations started under the returned
// context keep running when abort is done, but no new attempt is started afterwards.
func WithAbort(ctx context.Context, abort context.Context) context.Context {
	return context.WithValue(ctx, abortKey{}, abort)
}

// Do runs op until it succeeds, returns a backoff.Permanent error, runs out of attempts,
// ctx is done, or the abort signal attached with WithAbort fires between attempts.
// notify, when set, is called before each pause.
func (p Policy) Do(ctx context.Context, op func(attempt int) error, notify func(err error, wait time.Duration)) error {
	attempts := max(p.MaxAttempts, 1)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.MaxInterval = p.MaxInterval
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	// waitCtx stops the loop at boundaries; op itself always runs under ctx
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if abort, ok := ctx.Value(abortKey{}).(context.Context); ok && abort != nil {
		stop := context.AfterFunc(abort, cancel)
		defer stop()
	}

	var lastErr error
	attempt := 0
	operation := func() error {
		if attempt > 0 && waitCtx.Err() != nil {
			return backoff.Permanent(waitCtx.Err())
		}
		attempt++
		lastErr = op(attempt)
		return lastErr
	}

	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) { notify(err, wait) }
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), waitCtx), n)
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return errors.Join(ctx.Err(), lastErr)
	case waitCtx.Err() != nil && !errors.Is(lastErr, err):
		return errors.Join(ErrAborted, lastErr)
	default:
		return err
	}
}
