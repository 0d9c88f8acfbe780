package messaging

import (
	"context"
	"time"
)

// Subject is the subject a notification is published on
type Subject string

const (
	// SubjectEventIngested is published after an event page was written
	SubjectEventIngested Subject = "ufc.events.ingested"
	// SubjectDateBackfilled is published after a missing event date was filled in
	SubjectDateBackfilled Subject = "ufc.events.date_backfilled"
	// SubjectDuplicateDeleted is published after cleanup removed a duplicate event
	SubjectDuplicateDeleted Subject = "ufc.events.duplicate_deleted"
)

// Notification tells downstream consumers that an event row changed
type Notification struct {
	Subject       Subject   `json:"subject"`
	RunID         string    `json:"run_id"`
	EventID       int64     `json:"event_id"`
	EventName     string    `json:"event_name"`
	Date          string    `json:"date,omitempty"`
	FightsWritten int       `json:"fights_written,omitempty"`
	KeptEventID   int64     `json:"kept_event_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher defines the interface for publishing pipeline notifications to a message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// Publish sends a notification on its subject
	Publish(ctx context.Context, n Notification) error
	// Close closes the connection
	Close()
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every notification.
// It is used when no broker is configured and under dry run.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Notification) error { return nil }

func (noopPublisher) Close() {}
