package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// =============================
// In-memory store shared by the mock repositories
// =============================

// memDB holds every table. Single operations lock mu; MockTxManager
// serialises transactions and restores a snapshot when fn fails.
type memDB struct {
	mu        sync.Mutex
	accounts  map[string]model.Account
	listings  map[string]model.Listing
	payments  map[string]model.PaymentTransaction
	callbacks map[string]model.PaymentCallback
	notifs    map[string]bool
	viewers   map[string]bool
	engage    map[string]model.Engagement
	contacts  map[string]model.ListingContact
	reports   map[string]model.ListingReport
}

func newMemDB() *memDB {
	return &memDB{
		accounts:  map[string]model.Account{},
		listings:  map[string]model.Listing{},
		payments:  map[string]model.PaymentTransaction{},
		callbacks: map[string]model.PaymentCallback{},
		notifs:    map[string]bool{},
		viewers:   map[string]bool{},
		engage:    map[string]model.Engagement{},
		contacts:  map[string]model.ListingContact{},
		reports:   map[string]model.ListingReport{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memDB) snapshot() *memDB {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &memDB{
		accounts:  cloneMap(d.accounts),
		listings:  cloneMap(d.listings),
		payments:  cloneMap(d.payments),
		callbacks: cloneMap(d.callbacks),
		notifs:    cloneMap(d.notifs),
		viewers:   cloneMap(d.viewers),
		engage:    cloneMap(d.engage),
		contacts:  cloneMap(d.contacts),
		reports:   cloneMap(d.reports),
	}
}

func (d *memDB) restore(s *memDB) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts, d.listings, d.payments, d.callbacks, d.notifs = s.accounts, s.listings, s.payments, s.callbacks, s.notifs
	d.viewers, d.engage, d.contacts, d.reports = s.viewers, s.engage, s.contacts, s.reports
}

// ---- Accounts ----

type MockAccountRepo struct {
	db *memDB
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func (m *MockAccountRepo) Ensure(ctx context.Context, tx repository.Tx, a *model.Account) (*model.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if cur, ok := m.db.accounts[a.ID]; ok {
		return &cur, nil
	}
	m.db.accounts[a.ID] = *a
	cp := *a
	return &cp, nil
}

func (m *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *MockAccountRepo) IncrementFreeUse(ctx context.Context, tx repository.Tx, id string, cap int) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.accounts[id]
	if !ok || a.FreeListingsUsed >= cap {
		return false, nil
	}
	a.FreeListingsUsed++
	m.db.accounts[id] = a
	return true, nil
}

func (m *MockAccountRepo) UpdateProfile(ctx context.Context, tx repository.Tx, a *model.Account) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.DisplayName, cur.Phone, cur.TelegramChatID = a.DisplayName, a.Phone, a.TelegramChatID
	m.db.accounts[a.ID] = cur
	return nil
}

// ---- Listings ----

type MockListingRepo struct {
	db *memDB

	SaveErr              error
	UpdateIfVersionCalls int
}

var _ repository.ListingRepository = (*MockListingRepo)(nil)

func (m *MockListingRepo) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.listings[l.ID] = *l
	return nil
}

func (m *MockListingRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	l, ok := m.db.listings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *MockListingRepo) all() []*model.Listing {
	out := make([]*model.Listing, 0, len(m.db.listings))
	for _, l := range m.db.listings {
		cp := l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockListingRepo) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Listing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range m.all() {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockListingRepo) Search(ctx context.Context, tx repository.Tx, c repository.ListingCriteria) ([]*model.Listing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range m.all() {
		switch {
		case l.State == model.ListingStateRemoved:
			continue
		case l.State == model.ListingStateSold && !c.IncludeSold:
			continue
		case c.PublishedOnly && l.PublishedAt == nil:
			continue
		case c.LiveAfter != nil && l.State != model.ListingStateSold && !l.TermEnd.After(*c.LiveAfter):
			continue
		case c.Category != "" && l.Category != c.Category:
			continue
		case c.Location != "" && l.Location != c.Location:
			continue
		case c.MinPrice != nil && l.Price < *c.MinPrice:
			continue
		case c.MaxPrice != nil && l.Price > *c.MaxPrice:
			continue
		}
		if c.Text != "" {
			q := strings.ToLower(c.Text)
			if !strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
				continue
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *MockListingRepo) UpdateIfVersion(ctx context.Context, tx repository.Tx, l *model.Listing, expectedVersion int64) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.UpdateIfVersionCalls++
	cur, ok := m.db.listings[l.ID]
	if !ok || cur.Version != expectedVersion || cur.State.IsTerminal() {
		return false, nil
	}
	l.Version = expectedVersion + 1
	m.db.listings[l.ID] = *l
	return true, nil
}

func (m *MockListingRepo) UpdateDerivedState(ctx context.Context, tx repository.Tx, id string, version int64, from, to model.ListingState) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.listings[id]
	if !ok || cur.State != from || cur.Version != version || cur.State.IsTerminal() {
		return false, nil
	}
	cur.State = to
	m.db.listings[id] = cur
	return true, nil
}

func (m *MockListingRepo) ListForReconcile(ctx context.Context, tx repository.Tx, b repository.ReconcileBatch) ([]*model.Listing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range m.all() {
		if l.ID <= b.AfterID || l.PublishedAt == nil || l.TermEnd.After(b.Watermark) {
			continue
		}
		if l.State.IsTerminal() || l.State == model.ListingStateExpired {
			continue
		}
		out = append(out, l)
		if len(out) == b.Limit {
			break
		}
	}
	return out, nil
}

func (m *MockListingRepo) ListExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time, limit int) ([]*model.Listing, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.Listing
	for _, l := range m.all() {
		if l.PublishedAt == nil || l.State.IsTerminal() {
			continue
		}
		if l.TermEnd.After(from) && !l.TermEnd.After(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MockListingRepo) CountByState(ctx context.Context, tx repository.Tx) (map[model.ListingState]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[model.ListingState]int{}
	for _, l := range m.db.listings {
		out[l.State]++
	}
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	db *memDB
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.payments[p.ID] = *p
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentTransaction, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	p, ok := m.db.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *MockPaymentRepo) FindByCheckoutID(ctx context.Context, tx repository.Tx, checkoutID string) (*model.PaymentTransaction, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, p := range m.db.payments {
		if p.CheckoutRequestID == checkoutID {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) UpdateStatusIf(ctx context.Context, tx repository.Tx, p *model.PaymentTransaction, from model.PaymentStatus) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.payments[p.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	m.db.payments[p.ID] = *p
	return true, nil
}

func (m *MockPaymentRepo) ListUnresolvedOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentTransaction, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, p := range m.db.payments {
		if !p.Status.IsTerminal() && !p.InitiatedAt.After(olderThan) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockPaymentRepo) ListByListing(ctx context.Context, tx repository.Tx, listingID string) ([]*model.PaymentTransaction, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.PaymentTransaction
	for _, p := range m.db.payments {
		if p.ListingID == listingID {
			cp := p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PaymentStatus]int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[model.PaymentStatus]int{}
	for _, p := range m.db.payments {
		out[p.Status]++
	}
	return out, nil
}

func (m *MockPaymentRepo) SumSucceededSince(ctx context.Context, tx repository.Tx, since time.Time) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var sum int64
	for _, p := range m.db.payments {
		if p.Status == model.PaymentStatusSucceeded && p.ResolvedAt != nil && !p.ResolvedAt.Before(since) {
			sum += p.Plan.Amount
		}
	}
	return sum, nil
}

func (m *MockPaymentRepo) PlanBreakdown(ctx context.Context, tx repository.Tx) ([]repository.PlanStat, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	byDays := map[int]*repository.PlanStat{}
	for _, p := range m.db.payments {
		if p.Status != model.PaymentStatusSucceeded {
			continue
		}
		s, ok := byDays[p.Plan.Days]
		if !ok {
			s = &repository.PlanStat{Days: p.Plan.Days}
			byDays[p.Plan.Days] = s
		}
		s.Count++
		s.Revenue += p.Plan.Amount
	}
	out := make([]repository.PlanStat, 0, len(byDays))
	for _, s := range byDays {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out, nil
}

// ---- Callbacks and notification log ----

type MockCallbackRepo struct {
	db *memDB
}

func (m *MockCallbackRepo) Save(ctx context.Context, tx repository.Tx, c *model.PaymentCallback) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.callbacks[c.ID] = *c
	return nil
}

func (m *MockCallbackRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, errMsg string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c := m.db.callbacks[id]
	c.Processed, c.Error = true, errMsg
	m.db.callbacks[id] = c
	return nil
}

func (m *MockCallbackRepo) All() []model.PaymentCallback {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := make([]model.PaymentCallback, 0, len(m.db.callbacks))
	for _, c := range m.db.callbacks {
		out = append(out, c)
	}
	return out
}

type MockNotificationLogRepo struct {
	db *memDB
}

func notifKey(k repository.NotificationKey) string {
	return k.ListingID + "|" + k.Kind + "|" + k.TermEnd.UTC().Format(time.RFC3339)
}

func (m *MockNotificationLogRepo) Record(ctx context.Context, tx repository.Tx, key repository.NotificationKey, accountID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.notifs[notifKey(key)] = true
	return nil
}

func (m *MockNotificationLogRepo) WasSent(ctx context.Context, tx repository.Tx, key repository.NotificationKey) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.db.notifs[notifKey(key)], nil
}

// =============================
// Infra helpers for tests
// =============================

// ---- Mock TransactionManager ----

type MockTxManager struct {
	db    *memDB
	txMu  sync.Mutex
	Calls int
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn serialised with other transactions and rolls the store back
// when fn fails.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.Calls++
	snap := m.db.snapshot()
	if err := fn(ctx, "mock-tx"); err != nil {
		m.db.restore(snap)
		return err
	}
	return nil
}

// ---- Clock ----

type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock { return &MockClock{now: t} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *MockClock) Advance(d time.Duration) { c.Set(c.Now().Add(d)) }

// ---- Gateway ----

type MockGateway struct {
	mu sync.Mutex

	RequestPushFunc   func(ctx context.Context, req adapter.PushRequest) (adapter.PushReceipt, error)
	QueryStatusFunc   func(ctx context.Context, checkoutID string) (adapter.PushQueryResult, error)
	ParseCallbackFunc func(body []byte) (adapter.PushCallback, error)

	Pushes  []adapter.PushRequest
	Queries []string
}

var _ adapter.PushPaymentGateway = (*MockGateway)(nil)

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) RequestPush(ctx context.Context, req adapter.PushRequest) (adapter.PushReceipt, error) {
	g.mu.Lock()
	g.Pushes = append(g.Pushes, req)
	n := len(g.Pushes)
	g.mu.Unlock()
	if g.RequestPushFunc != nil {
		return g.RequestPushFunc(ctx, req)
	}
	return adapter.PushReceipt{CheckoutRequestID: fmt.Sprintf("ws_CO_%04d", n)}, nil
}

func (g *MockGateway) QueryStatus(ctx context.Context, checkoutID string) (adapter.PushQueryResult, error) {
	g.mu.Lock()
	g.Queries = append(g.Queries, checkoutID)
	g.mu.Unlock()
	if g.QueryStatusFunc != nil {
		return g.QueryStatusFunc(ctx, checkoutID)
	}
	return adapter.PushQueryResult{Status: adapter.PushStatusPending}, nil
}

func (g *MockGateway) ParseCallback(body []byte) (adapter.PushCallback, error) {
	if g.ParseCallbackFunc != nil {
		return g.ParseCallbackFunc(body)
	}
	return adapter.PushCallback{}, errors.New("no parser configured")
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrPaymentInProgress
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- Link codes ----

type MockLinkCodes struct {
	mu    sync.Mutex
	codes map[string]string
	TTL   time.Duration
}

func NewMockLinkCodes() *MockLinkCodes { return &MockLinkCodes{codes: map[string]string{}} }

func (m *MockLinkCodes) Put(ctx context.Context, code, accountID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[code] = accountID
	m.TTL = ttl
	return nil
}

func (m *MockLinkCodes) Take(ctx context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.codes[code]
	if !ok {
		return "", domain.ErrNotFound
	}
	delete(m.codes, code)
	return id, nil
}

// ---- Engagement & reports ----

type MockEngagementRepo struct {
	db  *memDB
	Err error
}

func (m *MockEngagementRepo) RecordView(ctx context.Context, tx repository.Tx, listingID, viewerKey string, at time.Time) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	k := listingID + "|" + viewerKey
	unique := !m.db.viewers[k]
	m.db.viewers[k] = true
	e := m.db.engage[listingID]
	e.Views++
	if unique {
		e.UniqueViews++
	}
	m.db.engage[listingID] = e
	return unique, nil
}

func (m *MockEngagementRepo) RecordContact(ctx context.Context, tx repository.Tx, c *model.ListingContact) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.contacts[c.ID] = *c
	e := m.db.engage[c.ListingID]
	e.Contacts++
	m.db.engage[c.ListingID] = e
	return nil
}

func (m *MockEngagementRepo) Counts(ctx context.Context, tx repository.Tx, ids []string) (map[string]model.Engagement, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	out := map[string]model.Engagement{}
	for _, id := range ids {
		if e, ok := m.db.engage[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func (m *MockEngagementRepo) Totals(ctx context.Context, tx repository.Tx) (model.Engagement, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var t model.Engagement
	for _, e := range m.db.engage {
		t.Views += e.Views
		t.UniqueViews += e.UniqueViews
		t.Contacts += e.Contacts
	}
	return t, nil
}

type MockReportRepo struct{ db *memDB }

func (m *MockReportRepo) Save(ctx context.Context, tx repository.Tx, r *model.ListingReport) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, cur := range m.db.reports {
		if cur.ListingID == r.ListingID && cur.ReporterID == r.ReporterID {
			return domain.ErrAlreadyExists
		}
	}
	m.db.reports[r.ID] = *r
	return nil
}

func (m *MockReportRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ListingReport, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

func (m *MockReportRepo) ListOpen(ctx context.Context, tx repository.Tx, limit int) ([]*model.ListingReport, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*model.ListingReport
	for _, r := range m.db.reports {
		if !r.Resolved {
			cp := r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockReportRepo) Resolve(ctx context.Context, tx repository.Tx, id, by, notes string, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	r, ok := m.db.reports[id]
	if !ok || r.Resolved {
		return false, nil
	}
	r.Resolved, r.ResolvedBy, r.AdminNotes, r.ResolvedAt = true, by, notes, &at
	m.db.reports[id] = r
	return true, nil
}

func (m *MockReportRepo) CountOpen(ctx context.Context, tx repository.Tx) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n := 0
	for _, r := range m.db.reports {
		if !r.Resolved {
			n++
		}
	}
	return n, nil
}

// ---- Events, bot, notifier ----

type MockEventPublisher struct {
	mu     sync.Mutex
	Events []adapter.Event
	Err    error
}

func (p *MockEventPublisher) Publish(ctx context.Context, e adapter.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, e)
	return nil
}

func (p *MockEventPublisher) OfType(t string) []adapter.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []adapter.Event
	for _, e := range p.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type sentMessage struct {
	ID      int64
	Text    string
	Buttons [][]adapter.InlineButton
}

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []sentMessage
	Err  error
}

func (b *MockTelegramBot) SendMessage(ctx context.Context, telegramID int64, text string) error {
	return b.SendButtons(ctx, telegramID, text, nil)
}

func (b *MockTelegramBot) SendButtons(ctx context.Context, telegramID int64, text string, rows [][]adapter.InlineButton) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.Sent = append(b.Sent, sentMessage{ID: telegramID, Text: text, Buttons: rows})
	return nil
}

type MockPaymentNotifier struct {
	mu       sync.Mutex
	Resolved []model.PaymentTransaction
}

func (n *MockPaymentNotifier) NotifyPaymentResolved(ctx context.Context, p *model.PaymentTransaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Resolved = append(n.Resolved, *p)
	return nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
