package usecase

import (
	"context"
	"errors"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"
)

// Compile-time check
var _ QuotaUseCase = (*quotaUC)(nil)

// QuotaUseCase tracks the lifetime free-listing allowance of an account.
type QuotaUseCase interface {
	Cap() int
	CanCreateFree(ctx context.Context, accountID string) (bool, error)
	// RecordFreeUse consumes one free slot inside tx. It returns
	// domain.ErrQuotaExhausted when the cap is reached; the caller must roll back.
	RecordFreeUse(ctx context.Context, tx repository.Tx, accountID string) error
}

type quotaUC struct {
	accounts repository.AccountRepository
	cap      int
}

func NewQuotaUseCase(accounts repository.AccountRepository, cap int) *quotaUC {
	return &quotaUC{accounts: accounts, cap: cap}
}

func (q *quotaUC) Cap() int { return q.cap }

func (q *quotaUC) CanCreateFree(ctx context.Context, accountID string) (bool, error) {
	acc, err := q.accounts.FindByID(ctx, repository.NoTX, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return q.cap > 0, nil
		}
		return false, err
	}
	return acc.CanCreateFree(q.cap), nil
}

func (q *quotaUC) RecordFreeUse(ctx context.Context, tx repository.Tx, accountID string) error {
	ok, err := q.accounts.IncrementFreeUse(ctx, tx, accountID, q.cap)
	if err != nil {
		return err
	}
	if !ok {
		metrics.IncQuotaRejection()
		return domain.ErrQuotaExhausted
	}
	return nil
}
