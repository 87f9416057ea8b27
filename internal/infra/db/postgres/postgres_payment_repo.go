package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, listing_id, account_id, plan_days, amount, currency, phone, provider,
  COALESCE(checkout_request_id, ''), receipt_number, status, failure_reason, initiated_at, dispatched_at, resolved_at, updated_at`

func scanPayment(row scanner) (*model.PaymentTransaction, error) {
	p := &model.PaymentTransaction{}
	if err := row.Scan(&p.ID, &p.Reference, &p.ListingID, &p.AccountID, &p.Plan.Days, &p.Plan.Amount, &p.Currency, &p.Phone, &p.Provider,
		&p.CheckoutRequestID, &p.ReceiptNumber, &p.Status, &p.FailureReason, &p.InitiatedAt, &p.DispatchedAt, &p.ResolvedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) error {
	const q = `
INSERT INTO payment_transactions (
  id, reference, listing_id, account_id, plan_days, amount, currency, phone, provider,
  checkout_request_id, receipt_number, status, failure_reason, initiated_at, dispatched_at, resolved_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Reference, p.ListingID, p.AccountID, p.Plan.Days, p.Plan.Amount, p.Currency, p.Phone, p.Provider,
		nullString(p.CheckoutRequestID), p.ReceiptNumber, p.Status, p.FailureReason, p.InitiatedAt, p.DispatchedAt, p.ResolvedAt, p.UpdatedAt)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentTransaction, error) {
	q := `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	return r.one(ctx, tx, q, id)
}

func (r *paymentRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, checkoutID string) (*model.PaymentTransaction, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE checkout_request_id=$1`
	return r.one(ctx, tx, q, checkoutID)
}

// UpdateStatusIf is a compare-and-set on status.
func (r *paymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction, from model.PaymentStatus) (bool, error) {
	const q = `
UPDATE payment_transactions
   SET status=$2,
       checkout_request_id=COALESCE($3, checkout_request_id),
       receipt_number=$4,
       failure_reason=$5,
       dispatched_at=$6,
       resolved_at=$7,
       updated_at=$8
 WHERE id=$1 AND status=$9`
	cmd, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Status, nullString(p.CheckoutRequestID), p.ReceiptNumber, p.FailureReason,
		p.DispatchedAt, p.ResolvedAt, p.UpdatedAt, from)
	if err != nil {
		return false, mapWriteErr(err)
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListUnresolvedOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payment_transactions
 WHERE status IN ('initiated','awaiting_confirmation') AND initiated_at <= $1
 ORDER BY initiated_at ASC
 LIMIT $2`
	return r.list(ctx, tx, q, olderThan, limitOr(limit, 100))
}

func (r *paymentRepo) ListByListing(ctx context.Context, tx repository.Tx, listingID string) ([]*model.PaymentTransaction, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payment_transactions WHERE listing_id=$1 ORDER BY initiated_at DESC`
	return r.list(ctx, tx, q, listingID)
}

func (r *paymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM payment_transactions GROUP BY status`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	out := map[model.PaymentStatus]int{}
	for rows.Next() {
		var s model.PaymentStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, mapReadErr(err)
		}
		out[s] = n
	}
	return out, mapReadErr(rows.Err())
}

func (r *paymentRepo) SumSucceededSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM payment_transactions WHERE status='succeeded' AND resolved_at >= $1`
	row, err := pickRow(ctx, r.pool, tx, q, since)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, mapReadErr(err)
	}
	return sum, nil
}

func (r *paymentRepo) PlanBreakdown(ctx context.Context, tx repository.Tx) ([]repository.PlanStat, error) {
	const q = `SELECT plan_days, COUNT(*), COALESCE(SUM(amount),0) FROM payment_transactions
 WHERE status='succeeded' GROUP BY plan_days ORDER BY plan_days`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []repository.PlanStat
	for rows.Next() {
		var s repository.PlanStat
		if err := rows.Scan(&s.Days, &s.Count, &s.Revenue); err != nil {
			return nil, mapReadErr(err)
		}
		out = append(out, s)
	}
	return out, mapReadErr(rows.Err())
}

func (r *paymentRepo) one(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.PaymentTransaction, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (r *paymentRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PaymentTransaction, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapReadErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentTransaction
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapReadErr(err)
		}
		out = append(out, p)
	}
	return out, mapReadErr(rows.Err())
}
