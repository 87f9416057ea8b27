package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/usecase"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// harness wires every use case over one in-memory store.
type harness struct {
	db        *memDB
	accounts  *MockAccountRepo
	listings  *MockListingRepo
	payments  *MockPaymentRepo
	callbacks *MockCallbackRepo
	notifLog  *MockNotificationLogRepo
	engageDB  *MockEngagementRepo
	reports   *MockReportRepo
	tm        *MockTxManager
	clock     *MockClock
	gateway   *MockGateway
	locker    *MockLocker
	events    *MockEventPublisher
	bot       *MockTelegramBot
	notifier  *MockPaymentNotifier
	catalog   *model.PlanCatalog

	quota     usecase.QuotaUseCase
	account   usecase.AccountUseCase
	lifecycle usecase.ListingUseCase
	payment   usecase.PaymentUseCase
	reconcile usecase.ReconcileUseCase
	query     usecase.QueryUseCase
	notify    usecase.NotificationUseCase
	stats     usecase.StatsUseCase
	engage    usecase.EngagementUseCase
}

var testTimeouts = usecase.PaymentTimeouts{
	Dispatch:     5 * time.Second,
	Confirmation: 3 * time.Minute,
	PollAfter:    45 * time.Second,
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	h := &harness{
		db:        db,
		accounts:  &MockAccountRepo{db: db},
		listings:  &MockListingRepo{db: db},
		payments:  &MockPaymentRepo{db: db},
		callbacks: &MockCallbackRepo{db: db},
		notifLog:  &MockNotificationLogRepo{db: db},
		engageDB:  &MockEngagementRepo{db: db},
		reports:   &MockReportRepo{db: db},
		tm:        &MockTxManager{db: db},
		clock:     NewMockClock(t0),
		gateway:   &MockGateway{},
		locker:    NewMockLocker(),
		events:    &MockEventPublisher{},
		bot:       &MockTelegramBot{},
		notifier:  &MockPaymentNotifier{},
	}
	catalog, err := model.NewPlanCatalog("KES", model.DefaultPlans)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h.catalog = catalog
	log := newTestLogger()

	h.quota = usecase.NewQuotaUseCase(h.accounts, model.DefaultFreeListingCap)
	h.account = usecase.NewAccountUseCase(h.accounts, h.quota, h.clock, log)
	h.lifecycle = usecase.NewListingUseCase(h.listings, h.accounts, h.quota, catalog, model.DefaultBands, h.tm, h.clock, h.events, log)
	h.payment = usecase.NewPaymentUseCase(usecase.PaymentDeps{
		Payments:  h.payments,
		Callbacks: h.callbacks,
		Listings:  h.listings,
		Accounts:  h.accounts,
		Lifecycle: h.lifecycle,
		Catalog:   catalog,
		Gateway:   h.gateway,
		Locker:    h.locker,
		TM:        h.tm,
		Clock:     h.clock,
		Events:    h.events,
		Notifier:  h.notifier,
	}, testTimeouts, log, false)
	h.reconcile = usecase.NewReconcileUseCase(h.listings, model.DefaultBands, h.clock, parallelRunner{}, h.events, 2, 0, log)
	h.query = usecase.NewQueryUseCase(h.listings, model.DefaultBands, h.clock, log)
	h.notify = usecase.NewNotificationUseCase(h.listings, h.accounts, h.notifLog, h.bot, h.clock, day, "", log)
	h.stats = usecase.NewStatsUseCase(h.listings, h.payments, h.engageDB, h.reports, "KES", h.clock, log)
	h.engage = usecase.NewEngagementUseCase(h.listings, h.accounts, h.engageDB, h.reports, model.DefaultBands, h.tm, h.clock, h.events, log)
	return h
}

func fields(title string) model.ListingFields {
	return model.ListingFields{Title: title, Category: "Electronics", Location: "Nairobi", Price: 12000}
}

func (h *harness) createFree(t *testing.T, owner, title string) *usecase.ListingView {
	t.Helper()
	v, err := h.lifecycle.Create(context.Background(), owner, usecase.CreateListingInput{Tier: model.TierFree, Fields: fields(title)})
	if err != nil {
		t.Fatalf("create free listing: %v", err)
	}
	return v
}

func (h *harness) stored(t *testing.T, id string) *model.Listing {
	t.Helper()
	l, err := h.listings.FindByID(context.Background(), nil, id)
	if err != nil {
		t.Fatalf("find listing %s: %v", id, err)
	}
	return l
}

// parallelRunner runs every task on its own goroutine.
type parallelRunner struct{}

func (parallelRunner) RunAll(ctx context.Context, tasks ...func(context.Context) error) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(tasks))
	for _, task := range tasks {
		wg.Add(1)
		go func(fn func(context.Context) error) {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				errs <- err
			}
		}(task)
	}
	wg.Wait()
	close(errs)
	return <-errs
}
