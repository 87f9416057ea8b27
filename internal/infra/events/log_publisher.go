package events

import (
	"context"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*LogPublisher)(nil)

// LogPublisher writes events to the log; used when no broker is configured.
type LogPublisher struct {
	log *zerolog.Logger
}

func NewLogPublisher(logger *zerolog.Logger) *LogPublisher {
	l := logger.With().Str("component", "EventLog").Logger()
	return &LogPublisher{log: &l}
}

func (p *LogPublisher) Publish(ctx context.Context, e adapter.Event) error {
	p.log.Info().
		Str("event", e.Type).
		Str("aggregate_id", e.AggregateID).
		Time("occurred_at", e.OccurredAt).
		Interface("data", e.Data).
		Msg("domain event")
	return nil
}
