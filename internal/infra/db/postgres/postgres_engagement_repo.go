package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.EngagementRepository = (*engagementRepo)(nil)

type engagementRepo struct{ pool *pgxpool.Pool }

func NewEngagementRepo(pool *pgxpool.Pool) *engagementRepo {
	return &engagementRepo{pool: pool}
}

// RecordView marks the viewer and bumps the counters in one statement, so
// views and unique_views cannot drift apart without a transaction.
func (r *engagementRepo) RecordView(ctx context.Context, tx repository.Tx, listingID, viewerKey string, at time.Time) (bool, error) {
	const q = `
WITH first AS (
    INSERT INTO listing_viewers (listing_id, viewer_key, first_seen)
    VALUES ($1, $2, $3)
    ON CONFLICT (listing_id, viewer_key) DO NOTHING
    RETURNING 1
)
INSERT INTO listing_engagement (listing_id, views, unique_views, contacts)
VALUES ($1, 1, (SELECT COUNT(*) FROM first), 0)
ON CONFLICT (listing_id) DO UPDATE
   SET views = listing_engagement.views + 1,
       unique_views = listing_engagement.unique_views + EXCLUDED.unique_views
RETURNING (SELECT COUNT(*) FROM first) = 1`
	row, err := pickRow(ctx, r.pool, tx, q, listingID, viewerKey, at)
	if err != nil {
		return false, err
	}
	var unique bool
	if err := row.Scan(&unique); err != nil {
		return false, mapWriteErr(err)
	}
	return unique, nil
}

func (r *engagementRepo) RecordContact(ctx context.Context, tx repository.Tx, c *model.ListingContact) error {
	const q = `
WITH c AS (
    INSERT INTO listing_contacts (id, listing_id, account_id, kind, message, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING listing_id
)
INSERT INTO listing_engagement (listing_id, views, unique_views, contacts)
SELECT listing_id, 0, 0, 1 FROM c
ON CONFLICT (listing_id) DO UPDATE SET contacts = listing_engagement.contacts + 1`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.ListingID, c.AccountID, c.Kind, c.Message, c.CreatedAt)
	return mapWriteErr(err)
}

func (r *engagementRepo) Counts(ctx context.Context, tx repository.Tx, listingIDs []string) (map[string]model.Engagement, error) {
	out := make(map[string]model.Engagement, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}
	const q = `SELECT listing_id, views, unique_views, contacts FROM listing_engagement WHERE listing_id = ANY($1)`
	rows, err := queryRows(ctx, r.pool, tx, q, listingIDs)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var e model.Engagement
		if err := rows.Scan(&id, &e.Views, &e.UniqueViews, &e.Contacts); err != nil {
			return nil, mapReadErr(err)
		}
		out[id] = e
	}
	return out, mapReadErr(rows.Err())
}

func (r *engagementRepo) Totals(ctx context.Context, tx repository.Tx) (model.Engagement, error) {
	const q = `SELECT COALESCE(SUM(views),0), COALESCE(SUM(unique_views),0), COALESCE(SUM(contacts),0) FROM listing_engagement`
	var e model.Engagement
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return e, err
	}
	if err := row.Scan(&e.Views, &e.UniqueViews, &e.Contacts); err != nil {
		return e, mapReadErr(err)
	}
	return e, nil
}
