// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

type InitiatePaymentInput struct {
	ListingID string
	Days      int
	Phone     string
}

// ResolveResult reports what a resolution did. Duplicate means the
// transaction was already terminal and nothing changed.
type ResolveResult struct {
	Transaction *model.PaymentTransaction
	Listing     *model.Listing
	Duplicate   bool
}

type SweepResult struct {
	Examined int
	TimedOut int
	Resolved int
}

// PaymentTimeouts bound the asynchronous push flow.
type PaymentTimeouts struct {
	Dispatch     time.Duration // one gateway call
	Confirmation time.Duration // initiation -> local gateway_timeout decision
	PollAfter    time.Duration // age before the sweeper asks the gateway
}

// PaymentNotifier is told about every resolution after it committed.
type PaymentNotifier interface {
	NotifyPaymentResolved(ctx context.Context, p *model.PaymentTransaction) error
}

type PaymentUseCase interface {
	// Initiate persists a transaction and dispatches the push. Gateway
	// failures are reported through the returned transaction status, not err.
	Initiate(ctx context.Context, accountID string, in InitiatePaymentInput) (*model.PaymentTransaction, error)
	// Resolve applies a gateway outcome exactly once.
	Resolve(ctx context.Context, txID string, outcome model.PaymentOutcome) (*ResolveResult, error)
	// ResolveCallback logs and applies a raw gateway callback.
	ResolveCallback(ctx context.Context, body []byte) error
	Get(ctx context.Context, accountID, txID string) (*model.PaymentTransaction, error)
	// SweepPending times out or polls transactions that are still in flight.
	SweepPending(ctx context.Context) (SweepResult, error)
}

type paymentUC struct {
	payments  repository.PaymentRepository
	callbacks repository.PaymentCallbackRepository
	listings  repository.ListingRepository
	accounts  repository.AccountRepository
	lifecycle ListingUseCase
	catalog   *model.PlanCatalog
	gateway   adapter.PushPaymentGateway
	locker    adapter.Locker
	tm        repository.TransactionManager
	clock     adapter.Clock
	events    adapter.EventPublisher
	notifier  PaymentNotifier
	timeouts  PaymentTimeouts
	log       *zerolog.Logger
	devMode   bool
}

// PaymentDeps groups collaborators of the payment orchestrator.
type PaymentDeps struct {
	Payments  repository.PaymentRepository
	Callbacks repository.PaymentCallbackRepository
	Listings  repository.ListingRepository
	Accounts  repository.AccountRepository
	Lifecycle ListingUseCase
	Catalog   *model.PlanCatalog
	Gateway   adapter.PushPaymentGateway
	Locker    adapter.Locker
	TM        repository.TransactionManager
	Clock     adapter.Clock
	Events    adapter.EventPublisher
	Notifier  PaymentNotifier
}

func NewPaymentUseCase(d PaymentDeps, timeouts PaymentTimeouts, logger *zerolog.Logger, devMode bool) *paymentUC {
	if timeouts.Dispatch <= 0 {
		timeouts.Dispatch = 30 * time.Second
	}
	if timeouts.Confirmation <= 0 {
		timeouts.Confirmation = 3 * time.Minute
	}
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		payments:  d.Payments,
		callbacks: d.Callbacks,
		listings:  d.Listings,
		accounts:  d.Accounts,
		lifecycle: d.Lifecycle,
		catalog:   d.Catalog,
		gateway:   d.Gateway,
		locker:    d.Locker,
		tm:        d.TM,
		clock:     d.Clock,
		events:    d.Events,
		notifier:  d.Notifier,
		timeouts:  timeouts,
		log:       &l,
		devMode:   devMode,
	}
}

func paymentLockKey(listingID string) string { return "lock:payment:listing:" + listingID }

func (u *paymentUC) Initiate(ctx context.Context, accountID string, in InitiatePaymentInput) (*model.PaymentTransaction, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Initiate")()

	plan, err := u.catalog.Lookup(in.Days)
	if err != nil {
		return nil, err
	}
	phone, err := model.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	l, err := u.listings.FindByID(ctx, repository.NoTX, in.ListingID)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != accountID {
		return nil, domain.ErrForbidden
	}
	if l.State.IsTerminal() {
		return nil, domain.ErrTerminalStateViolation
	}

	key := paymentLockKey(l.ID)
	token, err := u.locker.TryLock(ctx, key, u.timeouts.Dispatch+5*time.Second)
	if err != nil {
		return nil, domain.ErrPaymentInProgress
	}
	// the dispatch outlives an abandoned request; its result must be recorded
	bg := context.WithoutCancel(ctx)
	defer func() {
		if err := u.locker.Unlock(bg, key, token); err != nil {
			u.log.Warn().Err(err).Str("listing_id", l.ID).Msg("payment lock release failed")
		}
	}()

	if _, err := ensureAccount(ctx, u.accounts, repository.NoTX, accountID, u.clock); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	p := &model.PaymentTransaction{
		ID:          id,
		Reference:   model.PaymentReference(id, now),
		ListingID:   l.ID,
		AccountID:   accountID,
		Plan:        plan,
		Currency:    u.catalog.Currency(),
		Phone:       phone,
		Provider:    u.gateway.Name(),
		Status:      model.PaymentStatusInitiated,
		InitiatedAt: now,
		UpdatedAt:   now,
	}
	if err := u.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	metrics.IncPayment(string(model.PaymentStatusInitiated))

	dctx, cancel := context.WithTimeout(bg, u.timeouts.Dispatch)
	receipt, dispatchErr := u.gateway.RequestPush(dctx, adapter.PushRequest{
		Reference:   p.Reference,
		Phone:       phone,
		Amount:      plan.Amount,
		Description: fmt.Sprintf("Premium %d days", plan.Days),
	})
	cancel()

	at := u.clock.Now()
	p.UpdatedAt = at
	if dispatchErr != nil {
		reason := model.FailureGatewayRejected
		if errors.Is(dispatchErr, domain.ErrGatewayTimeout) || errors.Is(dispatchErr, context.DeadlineExceeded) {
			reason = model.FailureGatewayTimeout
		}
		p.Status = model.PaymentStatusFailed
		p.FailureReason = reason
		p.ResolvedAt = &at
		ok, err := u.payments.UpdateStatusIf(bg, repository.NoTX, p, model.PaymentStatusInitiated)
		if err != nil {
			return nil, err
		}
		if !ok {
			// resolved concurrently (sweeper); report what is stored
			return u.payments.FindByID(bg, repository.NoTX, p.ID)
		}
		metrics.IncPayment(string(p.Status))
		metrics.IncPaymentFailure(reason)
		u.log.Warn().Err(dispatchErr).
			Str("tx_id", p.ID).
			Str("phone", logging.Redact(phone, u.devMode)).
			Str("reason", reason).
			Msg("push dispatch failed")
		publish(bg, u.events, u.log, paymentResolvedEvent(p, at))
		return p, nil
	}

	p.Status = model.PaymentStatusAwaitingConfirmation
	p.CheckoutRequestID = receipt.CheckoutRequestID
	p.DispatchedAt = &at
	ok, err := u.payments.UpdateStatusIf(bg, repository.NoTX, p, model.PaymentStatusInitiated)
	if err != nil {
		return nil, err
	}
	if !ok {
		// resolved concurrently (sweeper); report what is stored
		return u.payments.FindByID(bg, repository.NoTX, p.ID)
	}
	metrics.IncPayment(string(p.Status))
	u.log.Info().
		Str("tx_id", p.ID).
		Str("listing_id", l.ID).
		Int("days", plan.Days).
		Str("checkout_id", p.CheckoutRequestID).
		Msg("push dispatched")
	return p, nil
}

func (u *paymentUC) Resolve(ctx context.Context, txID string, outcome model.PaymentOutcome) (*ResolveResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Resolve")()

	res := &ResolveResult{}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, txID)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			res.Transaction, res.Duplicate = p, true
			return nil
		}

		from := p.Status
		now := u.clock.Now()
		if outcome.Success {
			l, err := u.lifecycle.Extend(ctx, tx, p.ListingID, p.Plan.Days, now)
			switch {
			case errors.Is(err, domain.ErrTerminalStateViolation):
				p.Status = model.PaymentStatusFailed
				p.FailureReason = model.FailureListingTerminal
				p.ReceiptNumber = outcome.ReceiptNumber
			case err != nil:
				return err
			default:
				p.Status = model.PaymentStatusSucceeded
				p.ReceiptNumber = outcome.ReceiptNumber
				res.Listing = l
			}
		} else {
			p.Status = model.PaymentStatusFailed
			p.FailureReason = outcome.Reason
			if p.FailureReason == "" {
				p.FailureReason = model.FailurePayerDeclined
			}
		}
		p.ResolvedAt = &now
		p.UpdatedAt = now

		ok, err := u.payments.UpdateStatusIf(ctx, tx, p, from)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		res.Transaction = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve payment %s: %w", txID, err)
	}
	if res.Duplicate {
		u.log.Debug().Str("tx_id", txID).Str("status", string(res.Transaction.Status)).Msg("late resolution ignored")
		return res, nil
	}

	p := res.Transaction
	metrics.IncPayment(string(p.Status))
	if p.ResolvedAt != nil {
		metrics.ObservePaymentResolved(string(p.Status), p.ResolvedAt.Sub(p.InitiatedAt))
	}
	switch {
	case p.Status == model.PaymentStatusSucceeded:
		metrics.AddPaymentRevenue(p.Currency, p.Plan.Days, p.Plan.Amount)
		u.log.Info().Str("tx_id", p.ID).Str("listing_id", p.ListingID).Time("term_end", res.Listing.TermEnd).Msg("payment succeeded; listing extended")
	case p.FailureReason == model.FailureListingTerminal:
		metrics.IncPaymentFailure(p.FailureReason)
		u.log.Error().Str("tx_id", p.ID).Str("listing_id", p.ListingID).Str("receipt", p.ReceiptNumber).Msg("payment confirmed for a sold/removed listing; needs manual refund")
	default:
		metrics.IncPaymentFailure(p.FailureReason)
		u.log.Info().Str("tx_id", p.ID).Str("reason", p.FailureReason).Msg("payment failed")
	}

	bg := context.WithoutCancel(ctx)
	e := paymentResolvedEvent(p, *p.ResolvedAt)
	if res.Listing != nil {
		e.Data["term_end"] = res.Listing.TermEnd
	}
	publish(bg, u.events, u.log, e)
	if u.notifier != nil {
		if err := u.notifier.NotifyPaymentResolved(bg, p); err != nil {
			u.log.Warn().Err(err).Str("tx_id", p.ID).Msg("payment notification failed")
		}
	}
	return res, nil
}

func (u *paymentUC) ResolveCallback(ctx context.Context, body []byte) error {
	defer logging.TraceDuration(u.log, "PaymentUC.ResolveCallback")()

	cb := &model.PaymentCallback{
		ID:         uuid.NewString(),
		Provider:   u.gateway.Name(),
		Payload:    body,
		ReceivedAt: u.clock.Now(),
	}
	parsed, perr := u.gateway.ParseCallback(body)
	if perr != nil {
		cb.Error = perr.Error()
	} else {
		cb.CheckoutRequestID = parsed.CheckoutRequestID
		cb.ResultCode = parsed.ResultCode
	}
	if err := u.callbacks.Save(ctx, repository.NoTX, cb); err != nil {
		u.log.Error().Err(err).Msg("failed to log payment callback")
	}
	if perr != nil {
		metrics.IncPaymentCallback("invalid")
		u.log.Warn().Err(perr).Msg("unparseable payment callback")
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, perr)
	}

	p, err := u.payments.FindByCheckoutID(ctx, repository.NoTX, parsed.CheckoutRequestID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncPaymentCallback("unknown")
		u.log.Warn().Str("checkout_id", parsed.CheckoutRequestID).Msg("callback for unknown checkout id")
		u.markCallback(ctx, cb.ID, "unknown checkout id")
		return nil
	}
	if err != nil {
		u.markCallback(ctx, cb.ID, err.Error())
		return err
	}

	res, err := u.Resolve(ctx, p.ID, parsed.Outcome)
	if err != nil {
		u.markCallback(ctx, cb.ID, err.Error())
		return err
	}
	if res.Duplicate {
		metrics.IncPaymentCallback("duplicate")
		u.markCallback(ctx, cb.ID, domain.ErrDuplicateCallback.Error())
		return nil
	}
	metrics.IncPaymentCallback("processed")
	u.markCallback(ctx, cb.ID, "")
	return nil
}

func (u *paymentUC) markCallback(ctx context.Context, id, msg string) {
	if err := u.callbacks.MarkProcessed(ctx, repository.NoTX, id, msg); err != nil {
		u.log.Warn().Err(err).Str("callback_id", id).Msg("failed to mark callback processed")
	}
}

func (u *paymentUC) Get(ctx context.Context, accountID, txID string) (*model.PaymentTransaction, error) {
	p, err := u.payments.FindByID(ctx, repository.NoTX, txID)
	if err != nil {
		return nil, err
	}
	if p.AccountID != accountID {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (u *paymentUC) SweepPending(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := u.clock.Now()
	items, err := u.payments.ListUnresolvedOlderThan(ctx, repository.NoTX, now.Add(-u.timeouts.PollAfter), 200)
	if err != nil {
		return res, err
	}
	for _, p := range items {
		res.Examined++
		if now.Sub(p.InitiatedAt) >= u.timeouts.Confirmation {
			if _, err := u.Resolve(ctx, p.ID, model.PaymentOutcome{Reason: model.FailureGatewayTimeout}); err != nil {
				u.log.Error().Err(err).Str("tx_id", p.ID).Msg("timing out payment failed")
				continue
			}
			res.TimedOut++
			continue
		}
		if p.Status != model.PaymentStatusAwaitingConfirmation || p.CheckoutRequestID == "" {
			continue
		}

		qctx, cancel := context.WithTimeout(ctx, u.timeouts.Dispatch)
		q, err := u.gateway.QueryStatus(qctx, p.CheckoutRequestID)
		cancel()
		if err != nil {
			u.log.Debug().Err(err).Str("tx_id", p.ID).Msg("status query inconclusive")
			continue
		}
		var outcome model.PaymentOutcome
		switch q.Status {
		case adapter.PushStatusSucceeded:
			outcome = model.PaymentOutcome{Success: true, ReceiptNumber: q.Receipt}
		case adapter.PushStatusFailed:
			outcome = model.PaymentOutcome{Reason: model.FailurePayerDeclined}
		default:
			continue
		}
		if _, err := u.Resolve(ctx, p.ID, outcome); err != nil {
			u.log.Error().Err(err).Str("tx_id", p.ID).Msg("resolving polled payment failed")
			continue
		}
		res.Resolved++
	}
	return res, nil
}
