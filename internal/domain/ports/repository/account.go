package repository

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	// Ensure inserts the account if it does not exist and returns the stored row.
	Ensure(ctx context.Context, tx Tx, a *model.Account) (*model.Account, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	// IncrementFreeUse adds one to free_listings_used only while it is below cap.
	// It reports false when the cap was already reached.
	IncrementFreeUse(ctx context.Context, tx Tx, id string, cap int) (bool, error)
	UpdateProfile(ctx context.Context, tx Tx, a *model.Account) error
}
