package repository

import (
	"context"
	"time"

	"classifieds-marketplace/internal/domain/model"
)

// -----------------------------
// Payment transactions
// -----------------------------

// PlanStat aggregates succeeded payments per plan length.
type PlanStat struct {
	Days    int   `json:"days"`
	Count   int   `json:"count"`
	Revenue int64 `json:"revenue"`
}

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.PaymentTransaction) error
	// FindByID locks the row (FOR UPDATE) when tx is a live transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentTransaction, error)
	FindByCheckoutID(ctx context.Context, tx Tx, checkoutID string) (*model.PaymentTransaction, error)
	// UpdateStatusIf moves p from `from` to p.Status, writing checkout id,
	// receipt, failure reason and timestamps. False when the stored status differs.
	UpdateStatusIf(ctx context.Context, tx Tx, p *model.PaymentTransaction, from model.PaymentStatus) (bool, error)
	ListUnresolvedOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error)
	ListByListing(ctx context.Context, tx Tx, listingID string) ([]*model.PaymentTransaction, error)

	CountByStatus(ctx context.Context, tx Tx) (map[model.PaymentStatus]int, error)
	SumSucceededSince(ctx context.Context, tx Tx, since time.Time) (int64, error)
	PlanBreakdown(ctx context.Context, tx Tx) ([]PlanStat, error)
}

// -----------------------------
// Gateway callback log
// -----------------------------

type PaymentCallbackRepository interface {
	Save(ctx context.Context, tx Tx, c *model.PaymentCallback) error
	MarkProcessed(ctx context.Context, tx Tx, id string, errMsg string) error
}
