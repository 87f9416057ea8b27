package model

import (
	"fmt"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusInitiated            PaymentStatus = "initiated"             // persisted, not yet dispatched
	PaymentStatusAwaitingConfirmation PaymentStatus = "awaiting_confirmation" // push sent; waiting for payer PIN
	PaymentStatusSucceeded            PaymentStatus = "succeeded"
	PaymentStatusFailed               PaymentStatus = "failed"
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed
}

// Failure reasons recorded on failed transactions.
const (
	FailureGatewayRejected = "gateway_rejected"
	FailureGatewayTimeout  = "gateway_timeout"
	FailurePayerDeclined   = "payer_declined"
	FailureListingTerminal = "listing_terminal"
)

// PaymentTransaction is one attempt to buy a premium term for a listing.
// A retry is always a new transaction.
type PaymentTransaction struct {
	ID                string // ULID
	Reference         string
	ListingID         string
	AccountID         string
	Plan              PremiumPlan
	Currency          string
	Phone             string // canonical 254XXXXXXXXX
	Provider          string
	CheckoutRequestID string
	ReceiptNumber     string
	Status            PaymentStatus
	FailureReason     string
	InitiatedAt       time.Time
	DispatchedAt      *time.Time
	ResolvedAt        *time.Time
	UpdatedAt         time.Time
}

// PaymentReference renders the human-facing reference, e.g. PSN20261015A1B2C3D4.
func PaymentReference(id string, at time.Time) string {
	short := strings.ToUpper(id)
	if len(short) > 8 {
		short = short[len(short)-8:]
	}
	return fmt.Sprintf("PSN%s%s", at.Format("20060102"), short)
}

// PaymentOutcome is what the gateway reports for a push request.
type PaymentOutcome struct {
	Success       bool
	ReceiptNumber string
	Reason        string
}

// PaymentCallback is the raw log of a gateway callback.
type PaymentCallback struct {
	ID                string
	Provider          string
	CheckoutRequestID string
	ResultCode        int
	Payload           []byte
	Processed         bool
	Error             string
	ReceivedAt        time.Time
}
