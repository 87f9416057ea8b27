package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// EngagementRepository keeps per-listing view and contact counters.
type EngagementRepository interface {
	// RecordView counts one view. unique is true the first time viewerKey
	// is seen for the listing.
	RecordView(ctx context.Context, tx Tx, listingID, viewerKey string, at time.Time) (unique bool, err error)
	RecordContact(ctx context.Context, tx Tx, c *model.ListingContact) error
	// Counts returns counters for the given listings; listings never seen are absent.
	Counts(ctx context.Context, tx Tx, listingIDs []string) (map[string]model.Engagement, error)
	Totals(ctx context.Context, tx Tx) (model.Engagement, error)
}

// ReportRepository stores moderation reports.
type ReportRepository interface {
	// Save returns domain.ErrAlreadyExists when the reporter already flagged the listing.
	Save(ctx context.Context, tx Tx, r *model.ListingReport) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ListingReport, error)
	ListOpen(ctx context.Context, tx Tx, limit int) ([]*model.ListingReport, error)
	// Resolve closes an open report. False when it was already resolved.
	Resolve(ctx context.Context, tx Tx, id, resolvedBy, notes string, at time.Time) (bool, error)
	CountOpen(ctx context.Context, tx Tx) (int, error)
}
