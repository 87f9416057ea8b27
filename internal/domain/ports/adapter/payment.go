package adapter

import (
	"context"

	"classifieds-marketplace/internal/domain/model"
)

// PushRequest asks the payer's handset to confirm a charge.
type PushRequest struct {
	Reference   string // shown to the payer as the account reference
	Phone       string // canonical 254XXXXXXXXX
	Amount      int64  // whole currency units
	Description string
}

// PushReceipt is the gateway's acknowledgement of a dispatched push.
type PushReceipt struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

// PushStatus is what a status query can tell about a push in flight.
type PushStatus string

const (
	PushStatusPending   PushStatus = "pending"
	PushStatusSucceeded PushStatus = "succeeded"
	PushStatusFailed    PushStatus = "failed"
)

// PushQueryResult is the answer of a status query.
type PushQueryResult struct {
	Status     PushStatus
	ResultCode int
	ResultDesc string
	Receipt    string
}

// PushCallback is a parsed asynchronous gateway notification.
type PushCallback struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Outcome           model.PaymentOutcome
	Amount            int64
	Phone             string
}

// PushPaymentGateway is the hex port for mobile-money push providers.
//
// RequestPush must return domain.ErrGatewayTimeout when the call did not
// complete in time and domain.ErrGatewayRejected when the provider refused it.
type PushPaymentGateway interface {
	Name() string
	RequestPush(ctx context.Context, req PushRequest) (PushReceipt, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (PushQueryResult, error)
	ParseCallback(body []byte) (PushCallback, error)
}
