package adapter

import (
	"context"
	"time"
)

const (
	EventListingStateChanged = "listing.state_changed"
	EventPaymentResolved     = "payment.resolved"
	EventListingContacted    = "listing.contacted"
	EventListingReported     = "listing.reported"
)

// Event is a domain fact published after the change is committed.
type Event struct {
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data,omitempty"`
}

// EventPublisher delivers events at most once; failures are the caller's to log.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
