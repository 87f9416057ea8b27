package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.ListingRepository = (*listingRepo)(nil)

type listingRepo struct{ pool *pgxpool.Pool }

func NewListingRepo(pool *pgxpool.Pool) *listingRepo {
	return &listingRepo{pool: pool}
}

const listingColumns = `id, owner_id, title, description, category, location, price, currency, tier, created_at, published_at, term_end, state, version, updated_at`

type scanner interface{ Scan(...interface{}) error }

func scanListing(row scanner) (*model.Listing, error) {
	l := &model.Listing{}
	var termEnd *time.Time
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Title, &l.Description, &l.Category, &l.Location, &l.Price, &l.Currency,
		&l.Tier, &l.CreatedAt, &l.PublishedAt, &termEnd, &l.State, &l.Version, &l.UpdatedAt); err != nil {
		return nil, err
	}
	if termEnd != nil {
		l.TermEnd = *termEnd
	}
	return l, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (r *listingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	const q = `
INSERT INTO listings (
  id, owner_id, title, description, category, location, price, currency, tier, created_at, published_at, term_end, state, version, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
)`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.OwnerID, l.Title, l.Description, l.Category, l.Location, l.Price, l.Currency,
		l.Tier, l.CreatedAt, l.PublishedAt, nullTime(l.TermEnd), l.State, l.Version, l.UpdatedAt)
	return mapWriteErr(err)
}

func (r *listingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	q := `SELECT ` + listingColumns + ` FROM listings WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	l, err := scanListing(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return l, nil
}

func (r *listingRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Listing, error) {
	const q = `SELECT ` + listingColumns + ` FROM listings WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, tx, q, ownerID)
}

// buildSearch renders the WHERE clause of Search. Text matches title or
// description case-insensitively.
func buildSearch(c repository.ListingCriteria) (string, []interface{}) {
	where := []string{`state <> 'removed'`}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !c.IncludeSold {
		where = append(where, `state <> 'sold'`)
	}
	if c.PublishedOnly {
		where = append(where, `published_at IS NOT NULL`)
	}
	if c.LiveAfter != nil {
		where = append(where, `(state = 'sold' OR term_end > `+arg(*c.LiveAfter)+`)`)
	}
	if c.Category != "" {
		where = append(where, `category = `+arg(c.Category))
	}
	if c.Location != "" {
		where = append(where, `location = `+arg(c.Location))
	}
	if c.MinPrice != nil {
		where = append(where, `price >= `+arg(*c.MinPrice))
	}
	if c.MaxPrice != nil {
		where = append(where, `price <= `+arg(*c.MaxPrice))
	}
	if c.OwnerID != "" {
		where = append(where, `owner_id = `+arg(c.OwnerID))
	}
	if t := strings.TrimSpace(c.Text); t != "" {
		p := arg("%" + escapeLike(t) + "%")
		where = append(where, `(title ILIKE `+p+` OR description ILIKE `+p+`)`)
	}

	q := `SELECT ` + listingColumns + ` FROM listings WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY (tier = 'premium') DESC, created_at DESC, id`
	if c.Limit > 0 {
		q += ` LIMIT ` + arg(c.Limit)
	}
	if c.Offset > 0 {
		q += ` OFFSET ` + arg(c.Offset)
	}
	return q, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func (r *listingRepo) Search(ctx context.Context, tx repository.Tx, c repository.ListingCriteria) ([]*model.Listing, error) {
	q, args := buildSearch(c)
	return r.list(ctx, tx, q, args...)
}

func (r *listingRepo) UpdateIfVersion(ctx context.Context, tx repository.Tx, l *model.Listing, expectedVersion int64) (bool, error) {
	const q = `
UPDATE listings
   SET tier=$3, published_at=$4, term_end=$5, state=$6, updated_at=$7, version=version+1
 WHERE id=$1 AND version=$2 AND state NOT IN ('sold','removed')
RETURNING version`
	row, err := pickRow(ctx, r.pool, tx, q, l.ID, expectedVersion, l.Tier, l.PublishedAt, nullTime(l.TermEnd), l.State, l.UpdatedAt)
	if err != nil {
		return false, err
	}
	var v int64
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapReadErr(err)
	}
	l.Version = v
	return true, nil
}

func (r *listingRepo) UpdateDerivedState(ctx context.Context, tx repository.Tx, id string, version int64, from, to model.ListingState) (bool, error) {
	const q = `
UPDATE listings SET state=$4, updated_at=NOW()
 WHERE id=$1 AND version=$2 AND state=$3 AND state NOT IN ('sold','removed')`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, version, from, to)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *listingRepo) ListForReconcile(ctx context.Context, tx repository.Tx, b repository.ReconcileBatch) ([]*model.Listing, error) {
	const q = `SELECT ` + listingColumns + ` FROM listings
 WHERE published_at IS NOT NULL
   AND state NOT IN ('sold','removed','expired')
   AND term_end <= $1
   AND id > $2
 ORDER BY id
 LIMIT $3`
	return r.list(ctx, tx, q, b.Watermark, b.AfterID, limitOr(b.Limit, 200))
}

func (r *listingRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time, limit int) ([]*model.Listing, error) {
	const q = `SELECT ` + listingColumns + ` FROM listings
 WHERE published_at IS NOT NULL
   AND state NOT IN ('sold','removed')
   AND term_end > $1 AND term_end <= $2
 ORDER BY term_end
 LIMIT $3`
	return r.list(ctx, tx, q, from, to, limitOr(limit, 500))
}

func (r *listingRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.ListingState]int, error) {
	const q = `SELECT state, COUNT(*) FROM listings GROUP BY state`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	out := map[model.ListingState]int{}
	for rows.Next() {
		var s model.ListingState
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, mapReadErr(err)
		}
		out[s] = n
	}
	return out, mapReadErr(rows.Err())
}

func (r *listingRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Listing, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, mapReadErr(err)
		}
		out = append(out, l)
	}
	return out, mapReadErr(rows.Err())
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
