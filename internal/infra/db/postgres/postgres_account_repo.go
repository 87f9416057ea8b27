package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, display_name, phone, verified, free_listings_used, premium_term_end, telegram_chat_id, created_at`

func scanAccount(row scanner) (*model.Account, error) {
	a := &model.Account{}
	var premiumEnd *time.Time
	if err := row.Scan(&a.ID, &a.DisplayName, &a.Phone, &a.Verified, &a.FreeListingsUsed, &premiumEnd, &a.TelegramChatID, &a.CreatedAt); err != nil {
		return nil, err
	}
	if premiumEnd != nil {
		a.PremiumSubscription = &model.PremiumSubscription{TermEnd: *premiumEnd}
	}
	return a, nil
}

func premiumEnd(a *model.Account) *time.Time {
	if a.PremiumSubscription == nil {
		return nil
	}
	t := a.PremiumSubscription.TermEnd
	return &t
}

func (r *accountRepo) Ensure(ctx context.Context, tx repository.Tx, a *model.Account) (*model.Account, error) {
	const q = `
INSERT INTO accounts (id, display_name, phone, verified, free_listings_used, premium_term_end, telegram_chat_id, created_at)
VALUES ($1,$2,$3,$4,0,$5,$6,$7)
ON CONFLICT (id) DO NOTHING`
	if _, err := execSQL(ctx, r.pool, tx, q, a.ID, a.DisplayName, a.Phone, a.Verified, premiumEnd(a), a.TelegramChatID, a.CreatedAt); err != nil {
		return nil, mapWriteErr(err)
	}
	return r.FindByID(ctx, tx, a.ID)
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

// IncrementFreeUse is a single conditional UPDATE, so concurrent creators
// cannot both take the last slot.
func (r *accountRepo) IncrementFreeUse(ctx context.Context, tx repository.Tx, id string, cap int) (bool, error) {
	const q = `UPDATE accounts SET free_listings_used = free_listings_used + 1 WHERE id=$1 AND free_listings_used < $2`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, cap)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *accountRepo) UpdateProfile(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
UPDATE accounts SET display_name=$2, phone=$3, verified=$4, premium_term_end=$5, telegram_chat_id=$6
WHERE id=$1`
	cmd, err := execSQL(ctx, r.pool, tx, q, a.ID, a.DisplayName, a.Phone, a.Verified, premiumEnd(a), a.TelegramChatID)
	if err != nil {
		return mapWriteErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
