package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.ReportRepository = (*reportRepo)(nil)

type reportRepo struct{ pool *pgxpool.Pool }

func NewReportRepo(pool *pgxpool.Pool) *reportRepo {
	return &reportRepo{pool: pool}
}

const reportColumns = `id, listing_id, reporter_id, reason, description, resolved, admin_notes, resolved_by, resolved_at, created_at`

func scanReport(row scanner) (*model.ListingReport, error) {
	rp := &model.ListingReport{}
	if err := row.Scan(&rp.ID, &rp.ListingID, &rp.ReporterID, &rp.Reason, &rp.Description, &rp.Resolved,
		&rp.AdminNotes, &rp.ResolvedBy, &rp.ResolvedAt, &rp.CreatedAt); err != nil {
		return nil, err
	}
	return rp, nil
}

// Save relies on UNIQUE (listing_id, reporter_id); a repeat maps to ErrAlreadyExists.
func (r *reportRepo) Save(ctx context.Context, tx repository.Tx, rp *model.ListingReport) error {
	const q = `
INSERT INTO listing_reports (` + reportColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := execSQL(ctx, r.pool, tx, q, rp.ID, rp.ListingID, rp.ReporterID, rp.Reason, rp.Description, rp.Resolved,
		rp.AdminNotes, rp.ResolvedBy, rp.ResolvedAt, rp.CreatedAt)
	return mapWriteErr(err)
}

func (r *reportRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ListingReport, error) {
	const q = `SELECT ` + reportColumns + ` FROM listing_reports WHERE id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	rp, err := scanReport(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return rp, nil
}

func (r *reportRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.ListingReport, error) {
	const q = `SELECT ` + reportColumns + ` FROM listing_reports WHERE NOT resolved ORDER BY created_at ASC LIMIT $1`
	rows, err := queryRows(ctx, r.pool, tx, q, limitOr(limit, 50))
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.ListingReport
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, mapReadErr(err)
		}
		out = append(out, rp)
	}
	return out, mapReadErr(rows.Err())
}

func (r *reportRepo) Resolve(ctx context.Context, tx repository.Tx, id, resolvedBy, notes string, at time.Time) (bool, error) {
	const q = `
UPDATE listing_reports
   SET resolved=TRUE, resolved_by=$2, admin_notes=$3, resolved_at=$4
 WHERE id=$1 AND NOT resolved`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, resolvedBy, notes, at)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *reportRepo) CountOpen(ctx context.Context, tx repository.Tx) (int, error) {
	const q = `SELECT COUNT(*) FROM listing_reports WHERE NOT resolved`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapReadErr(err)
	}
	return n, nil
}
