package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned when credentials are missing or the configuration is malformed
	ErrConfig = errors.New("invalid configuration")

	// ErrIndexUnavailable is returned when the events index page cannot be fetched
	ErrIndexUnavailable = errors.New("events index unavailable")

	// ErrIndexSchemaChanged is returned when no table of the index page looks like the events listing
	ErrIndexSchemaChanged = errors.New("events index schema changed")

	// ErrFetchTimeout is returned when a page could not be fetched within the request timeout
	ErrFetchTimeout = errors.New("fetch timeout")

	// ErrFetchAborted is returned when a fetch was cancelled before completing
	ErrFetchAborted = errors.New("fetch aborted")

	// ErrParseRowAnomaly tags a fight-card row that was discarded by the parser
	ErrParseRowAnomaly = errors.New("parse row anomaly")

	// ErrStoreTransient is returned for store failures worth retrying (transport, 5xx, throttling)
	ErrStoreTransient = errors.New("store transient error")

	// ErrStoreInvariantViolation is returned when a write conflicts with a store uniqueness constraint
	ErrStoreInvariantViolation = errors.New("store invariant violation")

	// ErrStoreRejected is returned when the store refuses a request for any other client-side reason
	ErrStoreRejected = errors.New("store rejected request")

	// ErrStoreUnauthorized is returned when the store refuses the configured credentials
	ErrStoreUnauthorized = errors.New("store unauthorized")
)

// FetchHTTPError is returned when a page answered with a non-2xx status after all retries.
// Status 0 means the request never got a response.
type FetchHTTPError struct {
	Status int
	URL    string
	Err    error
}

func (e *FetchHTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s failed with status %d", e.URL, e.Status)
}

func (e *FetchHTTPError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err belongs to the per-event fetch error family
func IsFetchError(err error) bool {
	var httpErr *FetchHTTPError
	return errors.Is(err, ErrFetchTimeout) || errors.Is(err, ErrFetchAborted) || errors.As(err, &httpErr)
}
