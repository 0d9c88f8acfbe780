package domain

import "time"

const (
	// Upstream constants
	DEFAULT_INDEX_URL       = "https://en.wikipedia.org/wiki/List_of_UFC_events"
	DEFAULT_INDEX_THRESHOLD = 50
	DEFAULT_USER_AGENT      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// Fetch policy constants
	DEFAULT_FETCH_TIMEOUT      = 30 * time.Second
	DEFAULT_FETCH_MIN_DELAY    = 100 * time.Millisecond
	DEFAULT_RETRY_INITIAL      = 500 * time.Millisecond
	DEFAULT_RETRY_MULTIPLIER   = 2.0
	DEFAULT_RETRY_MAX_INTERVAL = 8 * time.Second
	DEFAULT_RETRY_MAX_ATTEMPTS = 4

	// Scheduler constants
	DEFAULT_WORKER_POOL_SIZE = 8
)

// SentinelDate is the latest placeholder date older writers used to mean "unknown"
var SentinelDate = Date{Year: 1905, Month: time.January, Day: 1}
