package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.NotificationLogRepository = (*notificationLogRepo)(nil)

type notificationLogRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationLogRepo(pool *pgxpool.Pool) repository.NotificationLogRepository {
	return &notificationLogRepo{pool: pool}
}

func (r *notificationLogRepo) Record(ctx context.Context, tx repository.Tx, key repository.NotificationKey, accountID string) error {
	const q = `
INSERT INTO listing_notifications (id, listing_id, account_id, kind, term_end_unix)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (listing_id, kind, term_end_unix) DO NOTHING`
	_, err := execSQL(ctx, r.pool, tx, q, uuid.NewString(), key.ListingID, accountID, key.Kind, key.TermEnd.Unix())
	return mapWriteErr(err)
}

func (r *notificationLogRepo) WasSent(ctx context.Context, tx repository.Tx, key repository.NotificationKey) (bool, error) {
	const q = `
SELECT EXISTS(
    SELECT 1 FROM listing_notifications
    WHERE listing_id = $1 AND kind = $2 AND term_end_unix = $3
)`
	row, err := pickRow(ctx, r.pool, tx, q, key.ListingID, key.Kind, key.TermEnd.Unix())
	if err != nil {
		return false, err
	}
	var sent bool
	if err := row.Scan(&sent); err != nil {
		return false, mapReadErr(err)
	}
	return sent, nil
}
