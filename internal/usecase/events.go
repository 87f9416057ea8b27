package usecase

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// publish hands e to the broker after the change committed. A failed publish
// never undoes the change; it is logged and counted.
func publish(ctx context.Context, pub adapter.EventPublisher, log *zerolog.Logger, e adapter.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		metrics.IncEventPublished(e.Type, "error")
		log.Warn().Err(err).Str("event", e.Type).Str("aggregate_id", e.AggregateID).Msg("event publish failed")
		return
	}
	metrics.IncEventPublished(e.Type, "ok")
}

func stateChangedEvent(l *model.Listing, from, to model.ListingState, at time.Time) adapter.Event {
	return adapter.Event{
		Type:        adapter.EventListingStateChanged,
		AggregateID: l.ID,
		OccurredAt:  at,
		Data: map[string]any{
			"owner_id": l.OwnerID,
			"from":     string(from),
			"to":       string(to),
			"tier":     string(l.Tier),
			"term_end": l.TermEnd,
		},
	}
}

func paymentResolvedEvent(p *model.PaymentTransaction, at time.Time) adapter.Event {
	return adapter.Event{
		Type:        adapter.EventPaymentResolved,
		AggregateID: p.ID,
		OccurredAt:  at,
		Data: map[string]any{
			"listing_id":     p.ListingID,
			"account_id":     p.AccountID,
			"status":         string(p.Status),
			"failure_reason": p.FailureReason,
			"days":           p.Plan.Days,
			"amount":         p.Plan.Amount,
			"currency":       p.Currency,
		},
	}
}
