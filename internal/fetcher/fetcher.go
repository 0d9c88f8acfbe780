package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ufc-indexer/internal/adapter"
	"github.com/feral-file/ufc-indexer/internal/domain"
	"github.com/feral-file/ufc-indexer/internal/logger"
	"github.com/feral-file/ufc-indexer/internal/metrics"
	"github.com/feral-file/ufc-indexer/internal/retry"
)

// Fetcher fetches a page and returns its parsed DOM
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/fetcher.go -package=mocks -mock_names=Fetcher=MockFetcher
type Fetcher interface {
	// Fetch returns the DOM of the page at url. Errors are ErrFetchTimeout,
	// ErrFetchAborted or *FetchHTTPError.
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Config holds the fetch policy
type Config struct {
	// Workers is the number of concurrent callers; each gets its own politeness pacer
	Workers int
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MinDelay is the minimum gap between two requests issued from the same pacer
	MinDelay time.Duration
	// RequestsPerSecond enables a shared token bucket when > 0
	RequestsPerSecond float64
	Retry             retry.Policy
}

// pacer tracks when a worker slot last hit the upstream
type pacer struct {
	last time.Time
}

type fetcher struct {
	client  adapter.HTTPClient
	clock   adapter.Clock
	config  Config
	pacers  chan *pacer
	limiter *rate.Limiter
}

// New creates a fetcher. The HTTP client is shared by every worker.
func New(client adapter.HTTPClient, clock adapter.Clock, cfg Config) Fetcher {
	if cfg.Workers <= 0 {
		cfg.Workers = domain.DEFAULT_WORKER_POOL_SIZE
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DEFAULT_FETCH_TIMEOUT
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultPolicy()
	}

	pacers := make(chan *pacer, cfg.Workers)
	for range cfg.Workers {
		pacers <- &pacer{}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(int(cfg.RequestsPerSecond), 1))
	}

	return &fetcher{
		client:  client,
		clock:   clock,
		config:  cfg,
		pacers:  pacers,
		limiter: limiter,
	}
}

// Fetch retries transport failures and 5xx answers with exponential backoff; 4xx answers are final
func (f *fetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	var body []byte

	err := f.config.Retry.Do(ctx, func(attempt int) error {
		b, err := f.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, func(err error, wait time.Duration) {
		metrics.FetchRetries.Inc()
		logger.DebugCtx(ctx, "Retrying page fetch",
			zap.String("url", url),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, classify(url, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", url, err)
	}

	return doc, nil
}

// fetchOnce performs a single paced attempt
func (f *fetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	var p *pacer
	select {
	case p = <-f.pacers:
	case <-ctx.Done():
		return nil, backoff.Permanent(ctx.Err())
	}
	defer func() { f.pacers <- p }()

	if !p.last.IsZero() {
		if wait := f.config.MinDelay - f.clock.Since(p.last); wait > 0 {
			if err := f.clock.SleepContext(ctx, wait); err != nil {
				return nil, backoff.Permanent(err)
			}
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	start := f.clock.Now()
	resp, err := f.client.Do(attemptCtx, adapter.Request{
		Method: http.MethodGet,
		URL:    url,
		Header: http.Header{
			"Accept":          []string{"text/html,application/xhtml+xml"},
			"Accept-Language": []string{"en-US,en;q=0.9"},
		},
	})
	p.last = f.clock.Now()
	elapsed := p.last.Sub(start).Seconds()

	if err != nil {
		metrics.FetchRequests.WithLabelValues("transport_error").Inc()
		metrics.FetchDuration.WithLabelValues("transport_error").Observe(elapsed)
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		metrics.FetchRequests.WithLabelValues("ok").Inc()
		metrics.FetchDuration.WithLabelValues("ok").Observe(elapsed)
		return resp.Body, nil
	case resp.StatusCode >= 500:
		metrics.FetchRequests.WithLabelValues("server_error").Inc()
		metrics.FetchDuration.WithLabelValues("server_error").Observe(elapsed)
		return nil, &domain.FetchHTTPError{Status: resp.StatusCode, URL: url}
	default:
		metrics.FetchRequests.WithLabelValues("client_error").Inc()
		metrics.FetchDuration.WithLabelValues("client_error").Observe(elapsed)
		return nil, backoff.Permanent(&domain.FetchHTTPError{Status: resp.StatusCode, URL: url})
	}
}

// classify maps the final retry error onto the fetch error taxonomy
func classify(url string, err error) error {
	if errors.Is(err, retry.ErrAborted) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to fetch %s: %w: %w", url, domain.ErrFetchAborted, err)
	}

	var httpErr *domain.FetchHTTPError
	if errors.As(err, &httpErr) && httpErr.Status != 0 {
		return httpErr
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("failed to fetch %s: %w: %w", url, domain.ErrFetchTimeout, err)
	}

	return &domain.FetchHTTPError{URL: url, Err: err}
}
