package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
)

var _ repository.PaymentCallbackRepository = (*paymentCallbackRepo)(nil)

type paymentCallbackRepo struct{ pool *pgxpool.Pool }

func NewPaymentCallbackRepo(pool *pgxpool.Pool) *paymentCallbackRepo {
	return &paymentCallbackRepo{pool: pool}
}

// Save stores the raw body as received, including bodies that fail to parse.
func (r *paymentCallbackRepo) Save(ctx context.Context, tx repository.Tx, c *model.PaymentCallback) error {
	const q = `
INSERT INTO payment_callbacks (id, provider, checkout_request_id, result_code, payload, processed, error, received_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.Provider, c.CheckoutRequestID, c.ResultCode, c.Payload, c.Processed, c.Error, c.ReceivedAt)
	return mapWriteErr(err)
}

func (r *paymentCallbackRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, errMsg string) error {
	const q = `UPDATE payment_callbacks SET processed=TRUE, error=$2 WHERE id=$1`
	_, err := execSQL(ctx, r.pool, tx, q, id, errMsg)
	return mapWriteErr(err)
}
