package usecase

import (
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// ListingView is a listing with its state derived at read time.
type ListingView struct {
	Listing   *model.Listing
	State     model.ListingState
	Urgency   model.Urgency
	Remaining time.Duration
}

func newListingView(l *model.Listing, bands model.Bands, now time.Time) ListingView {
	return ListingView{
		Listing:   l,
		State:     bands.Classify(l, now),
		Urgency:   bands.Urgency(l, now),
		Remaining: l.Remaining(now),
	}
}
