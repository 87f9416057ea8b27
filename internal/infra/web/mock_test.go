//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/usecase"
)

// --- Mock use cases ---
// Each embeds its interface; unmocked methods panic, which flags unexpected calls.

type mockListingUC struct {
	usecase.ListingUseCase
	CreateFunc   func(ctx context.Context, ownerID string, in usecase.CreateListingInput) (*usecase.ListingView, error)
	ListFunc     func(ctx context.Context, ownerID string) ([]usecase.ListingView, error)
	GetFunc      func(ctx context.Context, viewerID, id string) (*usecase.ListingView, error)
	MarkSoldFunc func(ctx context.Context, ownerID, id string) (*usecase.ListingView, error)
	PublishFunc  func(ctx context.Context, ownerID, id string, in usecase.PublishInput) (*usecase.ListingView, error)
}

func (m *mockListingUC) Create(ctx context.Context, ownerID string, in usecase.CreateListingInput) (*usecase.ListingView, error) {
	return m.CreateFunc(ctx, ownerID, in)
}

func (m *mockListingUC) ListByOwner(ctx context.Context, ownerID string) ([]usecase.ListingView, error) {
	return m.ListFunc(ctx, ownerID)
}

func (m *mockListingUC) Get(ctx context.Context, viewerID, id string) (*usecase.ListingView, error) {
	return m.GetFunc(ctx, viewerID, id)
}

func (m *mockListingUC) MarkSold(ctx context.Context, ownerID, id string) (*usecase.ListingView, error) {
	return m.MarkSoldFunc(ctx, ownerID, id)
}

func (m *mockListingUC) Publish(ctx context.Context, ownerID, id string, in usecase.PublishInput) (*usecase.ListingView, error) {
	return m.PublishFunc(ctx, ownerID, id, in)
}

func (m *mockListingUC) Extend(ctx context.Context, tx repository.Tx, id string, days int, from time.Time) (*model.Listing, error) {
	return nil, domain.ErrOperationFailed
}

type mockQueryUC struct {
	mu   sync.Mutex
	last usecase.ListingFilter
	out  []usecase.ListingView
	err  error
}

func (m *mockQueryUC) Search(ctx context.Context, f usecase.ListingFilter) ([]usecase.ListingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = f
	return m.out, m.err
}

type mockAccountUC struct {
	usecase.AccountUseCase
	ViewFunc func(ctx context.Context, id string) (*usecase.AccountView, error)
}

func (m *mockAccountUC) View(ctx context.Context, id string) (*usecase.AccountView, error) {
	return m.ViewFunc(ctx, id)
}

type mockPaymentUC struct {
	usecase.PaymentUseCase
	InitiateFunc func(ctx context.Context, accountID string, in usecase.InitiatePaymentInput) (*model.PaymentTransaction, error)
	callbacks    [][]byte
	callbackErr  error
}

func (m *mockPaymentUC) Initiate(ctx context.Context, accountID string, in usecase.InitiatePaymentInput) (*model.PaymentTransaction, error) {
	return m.InitiateFunc(ctx, accountID, in)
}

func (m *mockPaymentUC) ResolveCallback(ctx context.Context, body []byte) error {
	m.callbacks = append(m.callbacks, body)
	return m.callbackErr
}

type mockReconcileUC struct{ calls int }

func (m *mockReconcileUC) RunPass(ctx context.Context) (usecase.PassResult, error) {
	m.calls++
	return usecase.PassResult{Scanned: 10, Changed: 2, Batches: 1}, nil
}

type mockEngagementUC struct {
	mu      sync.Mutex
	viewers []usecase.Viewer

	ViewErr     error
	ContactFunc func(ctx context.Context, accountID, listingID string, in usecase.ContactInput) (*usecase.ContactResult, error)
	ReportFunc  func(ctx context.Context, reporterID, listingID string, in usecase.ReportInput) (*model.ListingReport, error)
	reports     map[string]*model.ListingReport
}

func (m *mockEngagementUC) RecordView(ctx context.Context, l *model.Listing, v usecase.Viewer) (model.Engagement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ViewErr != nil {
		return model.Engagement{}, m.ViewErr
	}
	m.viewers = append(m.viewers, v)
	return model.Engagement{Views: int64(len(m.viewers)), UniqueViews: 1}, nil
}

func (m *mockEngagementUC) Counts(ctx context.Context, ids []string) (map[string]model.Engagement, error) {
	out := map[string]model.Engagement{}
	for i, id := range ids {
		if i == 0 {
			out[id] = model.Engagement{Views: 7, UniqueViews: 5, Contacts: 2}
		}
	}
	return out, nil
}

func (m *mockEngagementUC) Contact(ctx context.Context, accountID, listingID string, in usecase.ContactInput) (*usecase.ContactResult, error) {
	return m.ContactFunc(ctx, accountID, listingID, in)
}

func (m *mockEngagementUC) Report(ctx context.Context, reporterID, listingID string, in usecase.ReportInput) (*model.ListingReport, error) {
	return m.ReportFunc(ctx, reporterID, listingID, in)
}

func (m *mockEngagementUC) OpenReports(ctx context.Context, limit int) ([]*model.ListingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ListingReport
	for _, r := range m.reports {
		if !r.Resolved {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockEngagementUC) ResolveReport(ctx context.Context, adminID, reportID, notes string) (*model.ListingReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !r.Resolved {
		r.Resolved, r.ResolvedBy, r.AdminNotes = true, adminID, notes
	}
	return r, nil
}

type mockStatsUC struct{}

func (mockStatsUC) Overview(ctx context.Context) (*usecase.Stats, error) {
	return &usecase.Stats{Currency: "KES", RevenueWeek: 200}, nil
}

type mockLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	keys   []string
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[key]++
	m.keys = append(m.keys, key)
	return m.counts[key] <= limit, nil
}
