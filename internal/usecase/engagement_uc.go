package usecase

import (
	"context"
	"errors"
	"strings"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ EngagementUseCase = (*engagementUC)(nil)

// Viewer identifies who opened a listing. Anonymous visitors are told apart
// by address only.
type Viewer struct {
	AccountID string
	Addr      string
}

func (v Viewer) key() string {
	if v.AccountID != "" {
		return "acc:" + v.AccountID
	}
	if v.Addr != "" {
		return "ip:" + v.Addr
	}
	return ""
}

type ContactInput struct {
	Kind    model.ContactKind
	Message string
}

// ContactResult is what the buyer gets back: the seller's details.
type ContactResult struct {
	ListingID   string
	SellerName  string
	SellerPhone string
}

type ReportInput struct {
	Reason      model.ReportReason
	Description string
}

type EngagementUseCase interface {
	// RecordView counts a view of l and returns the updated counters. Owners
	// looking at their own listing are not counted.
	RecordView(ctx context.Context, l *model.Listing, v Viewer) (model.Engagement, error)
	Counts(ctx context.Context, listingIDs []string) (map[string]model.Engagement, error)
	Contact(ctx context.Context, accountID, listingID string, in ContactInput) (*ContactResult, error)
	// Report flags a listing for moderation. One report per account and listing.
	Report(ctx context.Context, reporterID, listingID string, in ReportInput) (*model.ListingReport, error)
	OpenReports(ctx context.Context, limit int) ([]*model.ListingReport, error)
	// ResolveReport is idempotent; an already resolved report is returned as stored.
	ResolveReport(ctx context.Context, adminID, reportID, notes string) (*model.ListingReport, error)
}

type engagementUC struct {
	listings   repository.ListingRepository
	accounts   repository.AccountRepository
	engagement repository.EngagementRepository
	reports    repository.ReportRepository
	bands      model.Bands
	tm         repository.TransactionManager
	clock      adapter.Clock
	events     adapter.EventPublisher
	log        *zerolog.Logger
}

func NewEngagementUseCase(
	listings repository.ListingRepository,
	accounts repository.AccountRepository,
	engagement repository.EngagementRepository,
	reports repository.ReportRepository,
	bands model.Bands,
	tm repository.TransactionManager,
	clock adapter.Clock,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *engagementUC {
	l := logger.With().Str("component", "EngagementUC").Logger()
	return &engagementUC{
		listings:   listings,
		accounts:   accounts,
		engagement: engagement,
		reports:    reports,
		bands:      bands,
		tm:         tm,
		clock:      clock,
		events:     events,
		log:        &l,
	}
}

func (u *engagementUC) counts(ctx context.Context, id string) (model.Engagement, error) {
	m, err := u.engagement.Counts(ctx, repository.NoTX, []string{id})
	if err != nil {
		return model.Engagement{}, err
	}
	return m[id], nil
}

func (u *engagementUC) RecordView(ctx context.Context, l *model.Listing, v Viewer) (model.Engagement, error) {
	key := v.key()
	if key == "" || v.AccountID == l.OwnerID {
		return u.counts(ctx, l.ID)
	}
	unique, err := u.engagement.RecordView(ctx, repository.NoTX, l.ID, key, u.clock.Now())
	if err != nil {
		return model.Engagement{}, err
	}
	metrics.IncEngagement("view")
	if unique {
		metrics.IncEngagement("unique_view")
	}
	return u.counts(ctx, l.ID)
}

func (u *engagementUC) Counts(ctx context.Context, listingIDs []string) (map[string]model.Engagement, error) {
	return u.engagement.Counts(ctx, repository.NoTX, listingIDs)
}

// visibleTo loads a listing that a buyer may interact with.
func (u *engagementUC) visibleTo(ctx context.Context, tx repository.Tx, accountID, listingID string) (*model.Listing, error) {
	l, err := u.listings.FindByID(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	if !model.IsVisible(u.bands.Classify(l, u.clock.Now()), false) {
		return nil, domain.ErrNotFound
	}
	if l.OwnerID == accountID {
		return nil, domain.ErrInvalidArgument
	}
	return l, nil
}

func (u *engagementUC) Contact(ctx context.Context, accountID, listingID string, in ContactInput) (*ContactResult, error) {
	defer logging.TraceDuration(u.log, "EngagementUC.Contact")()

	now := u.clock.Now()
	c, err := model.NewListingContact(uuid.NewString(), listingID, accountID, in.Kind, in.Message, now)
	if err != nil {
		return nil, err
	}

	var (
		res   *ContactResult
		owner string
	)
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		l, err := u.visibleTo(ctx, tx, accountID, listingID)
		if err != nil {
			return err
		}
		if _, err := ensureAccount(ctx, u.accounts, tx, accountID, u.clock); err != nil {
			return err
		}
		seller, err := u.accounts.FindByID(ctx, tx, l.OwnerID)
		if err != nil {
			return err
		}
		if err := u.engagement.RecordContact(ctx, tx, c); err != nil {
			return err
		}
		owner = l.OwnerID
		res = &ContactResult{ListingID: l.ID, SellerName: seller.DisplayName, SellerPhone: seller.Phone}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncEngagement("contact")
	publish(ctx, u.events, u.log, adapter.Event{
		Type:        adapter.EventListingContacted,
		AggregateID: listingID,
		OccurredAt:  now,
		Data: map[string]any{
			"owner_id":   owner,
			"account_id": accountID,
			"kind":       string(c.Kind),
		},
	})
	return res, nil
}

func (u *engagementUC) Report(ctx context.Context, reporterID, listingID string, in ReportInput) (*model.ListingReport, error) {
	now := u.clock.Now()
	r, err := model.NewListingReport(uuid.NewString(), listingID, reporterID, in.Reason, in.Description, now)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.visibleTo(ctx, tx, reporterID, listingID); err != nil {
			return err
		}
		if _, err := ensureAccount(ctx, u.accounts, tx, reporterID, u.clock); err != nil {
			return err
		}
		return u.reports.Save(ctx, tx, r)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			u.log.Error().Err(err).Str("listing_id", listingID).Msg("failed to store report")
		}
		return nil, err
	}

	metrics.IncEngagement("report")
	u.log.Info().Str("listing_id", listingID).Str("reason", string(r.Reason)).Msg("listing reported")
	publish(ctx, u.events, u.log, adapter.Event{
		Type:        adapter.EventListingReported,
		AggregateID: listingID,
		OccurredAt:  now,
		Data: map[string]any{
			"report_id":   r.ID,
			"reporter_id": reporterID,
			"reason":      string(r.Reason),
		},
	})
	return r, nil
}

func (u *engagementUC) OpenReports(ctx context.Context, limit int) ([]*model.ListingReport, error) {
	return u.reports.ListOpen(ctx, repository.NoTX, limit)
}

func (u *engagementUC) ResolveReport(ctx context.Context, adminID, reportID, notes string) (*model.ListingReport, error) {
	if adminID == "" || reportID == "" {
		return nil, domain.ErrInvalidArgument
	}
	ok, err := u.reports.Resolve(ctx, repository.NoTX, reportID, adminID, strings.TrimSpace(notes), u.clock.Now())
	if err != nil {
		return nil, err
	}
	if ok {
		metrics.IncReportResolved()
		u.log.Info().Str("report_id", reportID).Str("admin_id", adminID).Msg("report resolved")
	}
	// not found surfaces here as ErrNotFound
	return u.reports.FindByID(ctx, repository.NoTX, reportID)
}
