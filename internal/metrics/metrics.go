package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	FetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ufc_indexer_fetch_requests_total", Help: "Page fetch attempts by outcome"},
		[]string{"outcome"},
	)
	FetchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ufc_indexer_fetch_retries_total", Help: "Page fetch attempts that were retried"},
	)
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ufc_indexer_fetch_duration_seconds",
			Help:    "Duration of a single page fetch attempt",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"outcome"},
	)
	StoreRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ufc_indexer_store_retries_total", Help: "Store calls retried after a transient error"},
		[]string{"operation"},
	)
	EventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ufc_indexer_events_processed_total", Help: "Events processed by result and error kind"},
		[]string{"command", "result", "kind"},
	)
	FightsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ufc_indexer_fights_written_total", Help: "Fights inserted into the store"},
	)
	DuplicatesDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ufc_indexer_duplicate_events_deleted_total", Help: "Duplicate events removed by cleanup"},
	)
)

var registerOnce sync.Once

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		FetchRequests, FetchRetries, FetchDuration, StoreRetries,
		EventsProcessed, FightsWritten, DuplicatesDeleted,
	}
}

// Register adds the collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(collectors()...)
	})
}

// Push sends the current values to a Prometheus Pushgateway under the given job,
// grouped by command so the three commands do not overwrite each other
func Push(ctx context.Context, gatewayURL, job, command string) error {
	pusher := push.New(gatewayURL, job).Grouping("command", command)
	for _, c := range collectors() {
		pusher = pusher.Collector(c)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
