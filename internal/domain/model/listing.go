package model

import (
	"strings"
	"time"

	"classifieds-marketplace/internal/domain"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

func (t Tier) Valid() bool { return t == TierFree || t == TierPremium }

type ListingState string

const (
	ListingStateDraft        ListingState = "draft"
	ListingStateActive       ListingState = "active"
	ListingStateExpiringSoon ListingState = "expiring_soon"
	ListingStateExpired      ListingState = "expired"
	ListingStateSold         ListingState = "sold"
	ListingStateRemoved      ListingState = "removed"
)

// IsTerminal reports the sticky owner-set states.
func (s ListingState) IsTerminal() bool {
	return s == ListingStateSold || s == ListingStateRemoved
}

// Urgency is the read-time countdown band of a live listing.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencySoon     Urgency = "soon"
	UrgencyCritical Urgency = "critical"
)

// FreeTerm is how long a free listing stays visible after publishing.
const FreeTerm = 4 * 24 * time.Hour

// Listing is a classified ad. State holds the last stored classification; it
// is authoritative only for the sticky Sold/Removed values; everything else is
// re-derived with Classify.
type Listing struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    string
	Location    string
	Price       int64
	Currency    string
	Tier        Tier
	CreatedAt   time.Time
	PublishedAt *time.Time
	TermEnd     time.Time
	State       ListingState
	Version     int64
	UpdatedAt   time.Time
}

// ListingFields are the owner-supplied attributes.
type ListingFields struct {
	Title       string
	Description string
	Category    string
	Location    string
	Price       int64
	Currency    string
}

func (f ListingFields) Validate() error {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Category) == "" || strings.TrimSpace(f.Location) == "" {
		return domain.ErrInvalidArgument
	}
	if f.Price < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

// NewDraftListing builds an unpublished listing. Tier and term are fixed on Publish.
func NewDraftListing(id, ownerID string, f ListingFields, now time.Time) (*Listing, error) {
	if id == "" || ownerID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Listing{
		ID:          id,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Category:    f.Category,
		Location:    f.Location,
		Price:       f.Price,
		Currency:    f.Currency,
		Tier:        TierFree,
		CreatedAt:   now,
		State:       ListingStateDraft,
		UpdatedAt:   now,
	}, nil
}

// Publish fixes tier and term on a draft. term is FreeTerm for free listings
// and the purchased plan length for premium ones.
func (l *Listing) Publish(tier Tier, term time.Duration, now time.Time) error {
	if l.State.IsTerminal() {
		return domain.ErrTerminalStateViolation
	}
	if l.PublishedAt != nil || !tier.Valid() || term <= 0 {
		return domain.ErrInvalidArgument
	}
	l.Tier = tier
	l.PublishedAt = &now
	l.TermEnd = now.Add(term)
	l.State = Classify(l, now)
	l.UpdatedAt = now
	return nil
}

// Extended returns a copy with a premium term of days counted from `from`.
func (l *Listing) Extended(days int, from time.Time) (*Listing, error) {
	if l.State.IsTerminal() {
		return nil, domain.ErrTerminalStateViolation
	}
	if days <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	cp := *l
	if cp.PublishedAt == nil {
		cp.PublishedAt = &from
	}
	cp.Tier = TierPremium
	cp.TermEnd = from.Add(time.Duration(days) * 24 * time.Hour)
	cp.State = Classify(&cp, from)
	cp.UpdatedAt = from
	return &cp, nil
}

// Bands are the thresholds for the read-time countdown classification.
type Bands struct {
	ExpiringSoon time.Duration
	Urgent       time.Duration
}

var DefaultBands = Bands{ExpiringSoon: 48 * time.Hour, Urgent: 24 * time.Hour}

// Classify derives the state of l at now using DefaultBands.
func Classify(l *Listing, now time.Time) ListingState {
	return DefaultBands.Classify(l, now)
}

// Classify is pure and never mutates l. Sold/Removed override time; a listing
// that was never published is a draft.
func (b Bands) Classify(l *Listing, now time.Time) ListingState {
	if l.State.IsTerminal() {
		return l.State
	}
	if l.PublishedAt == nil {
		return ListingStateDraft
	}
	left := l.TermEnd.Sub(now)
	switch {
	case left <= 0:
		return ListingStateExpired
	case left <= b.ExpiringSoon:
		return ListingStateExpiringSoon
	default:
		return ListingStateActive
	}
}

// Urgency refines ExpiringSoon into the 48h and 24h bands.
func (b Bands) Urgency(l *Listing, now time.Time) Urgency {
	if b.Classify(l, now) != ListingStateExpiringSoon {
		return UrgencyNone
	}
	if l.TermEnd.Sub(now) <= b.Urgent {
		return UrgencyCritical
	}
	return UrgencySoon
}

// Remaining is the time left in the term, zero once expired or not live.
func (l *Listing) Remaining(now time.Time) time.Duration {
	if l.PublishedAt == nil || l.State.IsTerminal() {
		return 0
	}
	if d := l.TermEnd.Sub(now); d > 0 {
		return d
	}
	return 0
}

// IsVisible is the default public visibility predicate.
func IsVisible(s ListingState, includeSold bool) bool {
	switch s {
	case ListingStateActive, ListingStateExpiringSoon:
		return true
	case ListingStateSold:
		return includeSold
	default:
		return false
	}
}
