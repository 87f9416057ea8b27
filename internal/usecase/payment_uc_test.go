//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/usecase"
)

type testCallback struct {
	Checkout string `json:"checkout"`
	OK       bool   `json:"ok"`
	Receipt  string `json:"receipt"`
}

func callbackBody(t *testing.T, checkout string, ok bool, receipt string) []byte {
	t.Helper()
	b, err := json.Marshal(testCallback{Checkout: checkout, OK: ok, Receipt: receipt})
	if err != nil {
		t.Fatalf("marshal callback: %v", err)
	}
	return b
}

// useJSONCallbacks makes the mock gateway understand callbackBody payloads.
func useJSONCallbacks(h *harness) {
	h.gateway.ParseCallbackFunc = func(body []byte) (adapter.PushCallback, error) {
		var c testCallback
		if err := json.Unmarshal(body, &c); err != nil {
			return adapter.PushCallback{}, err
		}
		out := adapter.PushCallback{CheckoutRequestID: c.Checkout}
		if c.OK {
			out.Outcome = model.PaymentOutcome{Success: true, ReceiptNumber: c.Receipt}
		} else {
			out.ResultCode = 1032
			out.Outcome = model.PaymentOutcome{Reason: model.FailurePayerDeclined}
		}
		return out, nil
	}
}

func (h *harness) initiate(t *testing.T, owner, listingID string, days int) *model.PaymentTransaction {
	t.Helper()
	p, err := h.payment.Initiate(context.Background(), owner, usecase.InitiatePaymentInput{ListingID: listingID, Days: days, Phone: "0712 345 678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	return p
}

func TestPaymentUseCase_UpgradeBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	useJSONCallbacks(h)
	v := h.createFree(t, "acc-1", "Toyota Vitz")

	// --- Arrange ---
	h.clock.Set(t0.Add(3 * day))
	p := h.initiate(t, "acc-1", v.Listing.ID, 7)
	if p.Status != model.PaymentStatusAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation, got %s", p.Status)
	}
	if p.Phone != "254712345678" || p.Plan.Amount != 200 {
		t.Errorf("unexpected transaction %+v", p)
	}
	if len(h.gateway.Pushes) != 1 || h.gateway.Pushes[0].Amount != 200 || h.gateway.Pushes[0].Reference != p.Reference {
		t.Errorf("unexpected push %+v", h.gateway.Pushes)
	}

	// --- Act ---
	t1 := t0.Add(3*day + time.Minute)
	h.clock.Set(t1)
	if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, true, "QGH12ABC")); err != nil {
		t.Fatalf("callback: %v", err)
	}

	// --- Assert ---
	got := h.stored(t, v.Listing.ID)
	if got.Tier != model.TierPremium || !got.TermEnd.Equal(t1.Add(7*day)) {
		t.Errorf("expected premium until T1+7d, got %s until %v", got.Tier, got.TermEnd)
	}
	view, _ := h.lifecycle.Get(ctx, "acc-1", v.Listing.ID)
	if view.State != model.ListingStateActive {
		t.Errorf("expected active after upgrade, got %s", view.State)
	}
	tx, _ := h.payment.Get(ctx, "acc-1", p.ID)
	if tx.Status != model.PaymentStatusSucceeded || tx.ReceiptNumber != "QGH12ABC" {
		t.Errorf("expected succeeded with receipt, got %s/%q", tx.Status, tx.ReceiptNumber)
	}

	// a duplicate callback changes nothing
	h.clock.Advance(time.Hour)
	if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, true, "QGH12ABC")); err != nil {
		t.Fatalf("duplicate callback: %v", err)
	}
	if again := h.stored(t, v.Listing.ID); !again.TermEnd.Equal(got.TermEnd) || again.Version != got.Version {
		t.Errorf("expected duplicate callback to be a no-op, term %v -> %v", got.TermEnd, again.TermEnd)
	}
	if n := len(h.events.OfType(adapter.EventPaymentResolved)); n != 1 {
		t.Errorf("expected one payment.resolved event, got %d", n)
	}
	if len(h.notifier.Resolved) != 1 {
		t.Errorf("expected one notification, got %d", len(h.notifier.Resolved))
	}
	if len(h.callbacks.All()) != 2 {
		t.Errorf("expected both callbacks to be logged, got %d", len(h.callbacks.All()))
	}
}

func TestPaymentUseCase_ResurrectExpiredListing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	useJSONCallbacks(h)
	v := h.createFree(t, "acc-1", "fridge")

	h.clock.Set(t0.Add(5 * day))
	if _, err := h.reconcile.RunPass(ctx); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if got := h.stored(t, v.Listing.ID).State; got != model.ListingStateExpired {
		t.Fatalf("expected expired before payment, got %s", got)
	}

	p := h.initiate(t, "acc-1", v.Listing.ID, 7)
	t1 := h.clock.Now().Add(30 * time.Second)
	h.clock.Set(t1)
	if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, true, "R1")); err != nil {
		t.Fatalf("callback: %v", err)
	}

	got := h.stored(t, v.Listing.ID)
	if got.State != model.ListingStateActive || !got.TermEnd.Equal(t1.Add(7*day)) {
		t.Errorf("expected active until T1+7d, got %s until %v", got.State, got.TermEnd)
	}
}

func TestPaymentUseCase_DispatchFailures(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		err    error
		reason string
	}{
		{"timeout", domain.ErrGatewayTimeout, model.FailureGatewayTimeout},
		{"deadline", context.DeadlineExceeded, model.FailureGatewayTimeout},
		{"rejected", domain.ErrGatewayRejected, model.FailureGatewayRejected},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newHarness(t)
			v := h.createFree(t, "acc-1", "item")
			h.gateway.RequestPushFunc = func(ctx context.Context, req adapter.PushRequest) (adapter.PushReceipt, error) {
				return adapter.PushReceipt{}, c.err
			}

			p, err := h.payment.Initiate(ctx, "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 5, Phone: "254712345678"})
			if err != nil {
				t.Fatalf("expected failure to be reported in the transaction, got err %v", err)
			}
			if p.Status != model.PaymentStatusFailed || p.FailureReason != c.reason {
				t.Errorf("expected failed/%s, got %s/%s", c.reason, p.Status, p.FailureReason)
			}
			got := h.stored(t, v.Listing.ID)
			if got.Tier != model.TierFree || !got.TermEnd.Equal(t0.Add(4*day)) {
				t.Errorf("expected listing untouched, got %s until %v", got.Tier, got.TermEnd)
			}
			// a retry is a new transaction
			h.gateway.RequestPushFunc = nil
			retry := h.initiate(t, "acc-1", v.Listing.ID, 5)
			if retry.ID == p.ID {
				t.Error("expected a new transaction id on retry")
			}
		})
	}
}

func TestPaymentUseCase_DispatchFailureAfterConcurrentResolution(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	v := h.createFree(t, "acc-1", "item")

	// the sweeper times the transaction out while the push is still in flight
	sweptAt := t0.Add(time.Minute)
	h.gateway.RequestPushFunc = func(ctx context.Context, req adapter.PushRequest) (adapter.PushReceipt, error) {
		h.db.mu.Lock()
		for id, p := range h.db.payments {
			if p.Reference == req.Reference {
				p.Status = model.PaymentStatusFailed
				p.FailureReason = model.FailureGatewayTimeout
				p.ResolvedAt = &sweptAt
				h.db.payments[id] = p
			}
		}
		h.db.mu.Unlock()
		return adapter.PushReceipt{}, domain.ErrGatewayRejected
	}

	p, err := h.payment.Initiate(ctx, "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 5, Phone: "254712345678"})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if p.FailureReason != model.FailureGatewayTimeout || p.ResolvedAt == nil || !p.ResolvedAt.Equal(sweptAt) {
		t.Errorf("expected the stored resolution to be reported, got %s/%s at %v", p.Status, p.FailureReason, p.ResolvedAt)
	}
	stored, _ := h.payments.FindByID(ctx, nil, p.ID)
	if stored.FailureReason != model.FailureGatewayTimeout {
		t.Errorf("expected the concurrent resolution to stand, got %s", stored.FailureReason)
	}
	if got := len(h.events.OfType(adapter.EventPaymentResolved)); got != 0 {
		t.Errorf("expected no resolution event from the losing writer, got %d", got)
	}
}

func TestPaymentUseCase_SoldWhileInFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	useJSONCallbacks(h)
	v := h.createFree(t, "acc-1", "phone")

	p := h.initiate(t, "acc-1", v.Listing.ID, 10)
	if _, err := h.lifecycle.MarkSold(ctx, "acc-1", v.Listing.ID); err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, true, "R9")); err != nil {
		t.Fatalf("callback: %v", err)
	}

	got := h.stored(t, v.Listing.ID)
	if got.State != model.ListingStateSold || got.Tier != model.TierFree {
		t.Errorf("expected listing to stay sold and free, got %s/%s", got.State, got.Tier)
	}
	tx, _ := h.payments.FindByID(ctx, nil, p.ID)
	if tx.Status != model.PaymentStatusFailed || tx.FailureReason != model.FailureListingTerminal {
		t.Errorf("expected failed/listing_terminal, got %s/%s", tx.Status, tx.FailureReason)
	}
	if tx.ReceiptNumber != "R9" {
		t.Errorf("expected receipt kept for refund, got %q", tx.ReceiptNumber)
	}
}

func TestPaymentUseCase_InitiateValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	v := h.createFree(t, "acc-1", "item")

	cases := []struct {
		name  string
		owner string
		in    usecase.InitiatePaymentInput
		want  error
	}{
		{"plan", "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 8, Phone: "0712345678"}, domain.ErrInvalidPlan},
		{"phone", "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 7, Phone: "0812345678"}, domain.ErrInvalidPhoneNumber},
		{"owner", "acc-2", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 7, Phone: "0712345678"}, domain.ErrForbidden},
		{"missing", "acc-1", usecase.InitiatePaymentInput{ListingID: "nope", Days: 7, Phone: "0712345678"}, domain.ErrNotFound},
	}
	for _, c := range cases {
		if _, err := h.payment.Initiate(ctx, c.owner, c.in); !errors.Is(err, c.want) {
			t.Errorf("%s: expected %v, got %v", c.name, c.want, err)
		}
	}
	if len(h.gateway.Pushes) != 0 {
		t.Errorf("expected no push for invalid input, got %d", len(h.gateway.Pushes))
	}

	if _, err := h.lifecycle.MarkRemoved(ctx, "acc-1", v.Listing.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := h.payment.Initiate(ctx, "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 7, Phone: "0712345678"}); !errors.Is(err, domain.ErrTerminalStateViolation) {
		t.Errorf("expected ErrTerminalStateViolation for removed listing, got %v", err)
	}
}

func TestPaymentUseCase_ConcurrentInitiationIsSerialised(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	v := h.createFree(t, "acc-1", "item")

	release := make(chan struct{})
	entered := make(chan struct{})
	h.gateway.RequestPushFunc = func(ctx context.Context, req adapter.PushRequest) (adapter.PushReceipt, error) {
		close(entered)
		<-release
		return adapter.PushReceipt{CheckoutRequestID: "ws_CO_slow"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := h.payment.Initiate(ctx, "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 7, Phone: "0712345678"}); err != nil {
			t.Errorf("first initiate: %v", err)
		}
	}()
	<-entered

	_, err := h.payment.Initiate(ctx, "acc-1", usecase.InitiatePaymentInput{ListingID: v.Listing.ID, Days: 7, Phone: "0712345678"})
	if !errors.Is(err, domain.ErrPaymentInProgress) {
		t.Errorf("expected ErrPaymentInProgress, got %v", err)
	}
	close(release)
	wg.Wait()
}

func TestPaymentUseCase_ResolveIsIdempotentUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	v := h.createFree(t, "acc-1", "item")
	p := h.initiate(t, "acc-1", v.Listing.ID, 7)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		applied    int
		duplicates int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.payment.Resolve(ctx, p.ID, model.PaymentOutcome{Success: true, ReceiptNumber: "R"})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Duplicate {
				duplicates++
			} else {
				applied++
			}
		}()
	}
	wg.Wait()

	if applied != 1 || duplicates != 9 {
		t.Errorf("expected 1 applied and 9 duplicates, got %d/%d", applied, duplicates)
	}
	if got := h.stored(t, v.Listing.ID); got.Version != 1 {
		t.Errorf("expected exactly one extension write, version=%d", got.Version)
	}
}

func TestPaymentUseCase_SweepPending(t *testing.T) {
	ctx := context.Background()

	t.Run("should time out and then ignore a late success", func(t *testing.T) {
		h := newHarness(t)
		useJSONCallbacks(h)
		v := h.createFree(t, "acc-1", "item")
		p := h.initiate(t, "acc-1", v.Listing.ID, 7)

		h.clock.Advance(testTimeouts.Confirmation + time.Second)
		res, err := h.payment.SweepPending(ctx)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if res.TimedOut != 1 {
			t.Fatalf("expected one timeout, got %+v", res)
		}
		tx, _ := h.payments.FindByID(ctx, nil, p.ID)
		if tx.Status != model.PaymentStatusFailed || tx.FailureReason != model.FailureGatewayTimeout {
			t.Errorf("expected failed/gateway_timeout, got %s/%s", tx.Status, tx.FailureReason)
		}

		if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, true, "LATE")); err != nil {
			t.Fatalf("late callback: %v", err)
		}
		got := h.stored(t, v.Listing.ID)
		if got.Tier != model.TierFree {
			t.Errorf("expected late success to be discarded, tier=%s", got.Tier)
		}
	})

	t.Run("should poll the gateway for young transactions", func(t *testing.T) {
		h := newHarness(t)
		v := h.createFree(t, "acc-1", "item")
		p := h.initiate(t, "acc-1", v.Listing.ID, 5)
		h.gateway.QueryStatusFunc = func(ctx context.Context, id string) (adapter.PushQueryResult, error) {
			return adapter.PushQueryResult{Status: adapter.PushStatusSucceeded, Receipt: "POLL1"}, nil
		}

		h.clock.Advance(10 * time.Second)
		if res, _ := h.payment.SweepPending(ctx); res.Examined != 0 {
			t.Errorf("expected nothing examined before poll_after, got %+v", res)
		}

		h.clock.Advance(time.Minute)
		res, err := h.payment.SweepPending(ctx)
		if err != nil {
			t.Fatalf("sweep: %v", err)
		}
		if res.Resolved != 1 {
			t.Fatalf("expected one polled resolution, got %+v", res)
		}
		tx, _ := h.payments.FindByID(ctx, nil, p.ID)
		if tx.Status != model.PaymentStatusSucceeded || tx.ReceiptNumber != "POLL1" {
			t.Errorf("expected succeeded/POLL1, got %s/%s", tx.Status, tx.ReceiptNumber)
		}
		if h.stored(t, v.Listing.ID).Tier != model.TierPremium {
			t.Error("expected listing upgraded")
		}
	})

	t.Run("should leave pending answers alone", func(t *testing.T) {
		h := newHarness(t)
		v := h.createFree(t, "acc-1", "item")
		p := h.initiate(t, "acc-1", v.Listing.ID, 5)
		h.clock.Advance(time.Minute)

		if _, err := h.payment.SweepPending(ctx); err != nil {
			t.Fatalf("sweep: %v", err)
		}
		tx, _ := h.payments.FindByID(ctx, nil, p.ID)
		if tx.Status != model.PaymentStatusAwaitingConfirmation {
			t.Errorf("expected still awaiting, got %s", tx.Status)
		}
		if len(h.gateway.Queries) != 1 {
			t.Errorf("expected one status query, got %d", len(h.gateway.Queries))
		}
	})
}

func TestPaymentUseCase_CallbackEdgeCases(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	useJSONCallbacks(h)

	if err := h.payment.ResolveCallback(ctx, callbackBody(t, "ws_CO_unknown", true, "X")); err != nil {
		t.Errorf("expected unknown checkout id to be acknowledged, got %v", err)
	}
	if err := h.payment.ResolveCallback(ctx, []byte("{not json")); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for garbage, got %v", err)
	}
	logged := h.callbacks.All()
	if len(logged) != 2 {
		t.Fatalf("expected both callbacks logged, got %d", len(logged))
	}

	v := h.createFree(t, "acc-1", "item")
	p := h.initiate(t, "acc-1", v.Listing.ID, 5)
	if err := h.payment.ResolveCallback(ctx, callbackBody(t, p.CheckoutRequestID, false, "")); err != nil {
		t.Fatalf("decline callback: %v", err)
	}
	tx, _ := h.payments.FindByID(ctx, nil, p.ID)
	if tx.Status != model.PaymentStatusFailed || tx.FailureReason != model.FailurePayerDeclined {
		t.Errorf("expected failed/payer_declined, got %s/%s", tx.Status, tx.FailureReason)
	}
	if _, err := h.payment.Get(ctx, "acc-2", p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected other accounts not to see the transaction, got %v", err)
	}
}
