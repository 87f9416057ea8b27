package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// -----------------------------
// Listings
// -----------------------------

// ListingCriteria is the SQL-side pre-filter of the query engine. Time-derived
// visibility is applied by the caller after re-classification.
type ListingCriteria struct {
	Text        string
	Category    string
	Location    string
	MinPrice    *int64
	MaxPrice    *int64
	OwnerID     string
	IncludeSold bool
	// PublishedOnly excludes drafts.
	PublishedOnly bool
	// LiveAfter, when set, drops non-sold rows whose term ended at or before it.
	LiveAfter *time.Time
	Limit     int
	Offset    int
}

// ReconcileBatch selects published listings that are not sold, removed or
// already expired and whose term ends at or before Watermark, ordered by id
// after AfterID.
type ReconcileBatch struct {
	Watermark time.Time
	AfterID   string
	Limit     int
}

type ListingRepository interface {
	Save(ctx context.Context, tx Tx, l *model.Listing) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Listing, error)
	ListByOwner(ctx context.Context, tx Tx, ownerID string) ([]*model.Listing, error)
	Search(ctx context.Context, tx Tx, c ListingCriteria) ([]*model.Listing, error)

	// UpdateIfVersion writes tier/term/state/published_at when the stored
	// version still equals expectedVersion and the row is not sold/removed.
	// It bumps the version and reports whether a row was written.
	UpdateIfVersion(ctx context.Context, tx Tx, l *model.Listing, expectedVersion int64) (bool, error)
	// UpdateDerivedState moves state from `from` to `to` only while the row is
	// unchanged (same state and version) and not sold/removed. The version is
	// not bumped: the state column is a cache of Classify.
	UpdateDerivedState(ctx context.Context, tx Tx, id string, version int64, from, to model.ListingState) (bool, error)

	ListForReconcile(ctx context.Context, tx Tx, b ReconcileBatch) ([]*model.Listing, error)
	// ListExpiringBetween returns published, non-terminal listings with from < term_end <= to.
	ListExpiringBetween(ctx context.Context, tx Tx, from, to time.Time, limit int) ([]*model.Listing, error)
	CountByState(ctx context.Context, tx Tx) (map[model.ListingState]int, error)
}
