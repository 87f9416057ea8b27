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
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ListingUseCase = (*listingUC)(nil)

// CreateListingInput is what an owner submits. Days is only read for premium.
// Draft stores the listing unpublished; no quota is consumed until Publish.
type CreateListingInput struct {
	Tier   model.Tier
	Days   int
	Fields model.ListingFields
	Draft  bool
}

type PublishInput struct {
	Tier model.Tier
	Days int
}

type ListingUseCase interface {
	Create(ctx context.Context, ownerID string, in CreateListingInput) (*ListingView, error)
	Publish(ctx context.Context, ownerID, listingID string, in PublishInput) (*ListingView, error)
	MarkSold(ctx context.Context, ownerID, listingID string) (*ListingView, error)
	MarkRemoved(ctx context.Context, ownerID, listingID string) (*ListingView, error)
	// Get returns the listing with its state derived now. Drafts and removed
	// listings are only visible to their owner.
	Get(ctx context.Context, viewerID, listingID string) (*ListingView, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ListingView, error)
	// Extend replaces the term with days counted from `from` and upgrades the
	// tier. It runs inside the caller's transaction.
	Extend(ctx context.Context, tx repository.Tx, listingID string, days int, from time.Time) (*model.Listing, error)
}

type listingUC struct {
	listings repository.ListingRepository
	accounts repository.AccountRepository
	quota    QuotaUseCase
	catalog  *model.PlanCatalog
	bands    model.Bands
	tm       repository.TransactionManager
	clock    adapter.Clock
	events   adapter.EventPublisher
	log      *zerolog.Logger
}

func NewListingUseCase(
	listings repository.ListingRepository,
	accounts repository.AccountRepository,
	quota QuotaUseCase,
	catalog *model.PlanCatalog,
	bands model.Bands,
	tm repository.TransactionManager,
	clock adapter.Clock,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *listingUC {
	l := logger.With().Str("component", "ListingUC").Logger()
	return &listingUC{
		listings: listings,
		accounts: accounts,
		quota:    quota,
		catalog:  catalog,
		bands:    bands,
		tm:       tm,
		clock:    clock,
		events:   events,
		log:      &l,
	}
}

// termFor resolves the visibility term of a tier. Free ignores days.
func (u *listingUC) termFor(tier model.Tier, days int) (time.Duration, error) {
	switch tier {
	case model.TierFree:
		return model.FreeTerm, nil
	case model.TierPremium:
		plan, err := u.catalog.Lookup(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(plan.Days) * 24 * time.Hour, nil
	default:
		return 0, domain.ErrInvalidArgument
	}
}

func (u *listingUC) Create(ctx context.Context, ownerID string, in CreateListingInput) (*ListingView, error) {
	defer logging.TraceDuration(u.log, "ListingUC.Create")()

	if in.Tier == "" {
		in.Tier = model.TierFree
	}
	term, err := u.termFor(in.Tier, in.Days)
	if err != nil {
		return nil, err
	}
	if in.Fields.Currency == "" {
		in.Fields.Currency = u.catalog.Currency()
	}

	now := u.clock.Now()
	l, err := model.NewDraftListing(uuid.NewString(), ownerID, in.Fields, now)
	if err != nil {
		return nil, err
	}
	if !in.Draft {
		if err := l.Publish(in.Tier, term, now); err != nil {
			return nil, err
		}
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := ensureAccount(ctx, u.accounts, tx, ownerID, u.clock); err != nil {
			return err
		}
		if !in.Draft && in.Tier == model.TierFree {
			if err := u.quota.RecordFreeUse(ctx, tx, ownerID); err != nil {
				return err
			}
		}
		return u.listings.Save(ctx, tx, l)
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExhausted) {
			u.log.Info().Str("account_id", ownerID).Msg("free listing rejected: quota exhausted")
		}
		return nil, err
	}

	label := string(l.Tier)
	if in.Draft {
		label = string(model.ListingStateDraft)
	}
	metrics.IncListingCreated(label)
	u.log.Info().Str("listing_id", l.ID).Str("account_id", ownerID).Str("tier", label).Time("term_end", l.TermEnd).Msg("listing created")

	v := newListingView(l, u.bands, now)
	return &v, nil
}

func (u *listingUC) Publish(ctx context.Context, ownerID, listingID string, in PublishInput) (*ListingView, error) {
	defer logging.TraceDuration(u.log, "ListingUC.Publish")()

	if in.Tier == "" {
		in.Tier = model.TierFree
	}
	term, err := u.termFor(in.Tier, in.Days)
	if err != nil {
		return nil, err
	}

	now := u.clock.Now()
	var out *model.Listing
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		l, err := u.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if l.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		prev := l.Version
		if err := l.Publish(in.Tier, term, now); err != nil {
			return err
		}
		if in.Tier == model.TierFree {
			if err := u.quota.RecordFreeUse(ctx, tx, ownerID); err != nil {
				return err
			}
		}
		ok, err := u.listings.UpdateIfVersion(ctx, tx, l, prev)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncListingTransition(string(model.ListingStateDraft), string(out.State))
	publish(ctx, u.events, u.log, stateChangedEvent(out, model.ListingStateDraft, out.State, now))
	v := newListingView(out, u.bands, now)
	return &v, nil
}

func (u *listingUC) MarkSold(ctx context.Context, ownerID, listingID string) (*ListingView, error) {
	return u.markTerminal(ctx, ownerID, listingID, model.ListingStateSold)
}

func (u *listingUC) MarkRemoved(ctx context.Context, ownerID, listingID string) (*ListingView, error) {
	return u.markTerminal(ctx, ownerID, listingID, model.ListingStateRemoved)
}

// markTerminal is idempotent for the same target and refuses to switch
// between Sold and Removed.
func (u *listingUC) markTerminal(ctx context.Context, ownerID, listingID string, target model.ListingState) (*ListingView, error) {
	defer logging.TraceDuration(u.log, "ListingUC.markTerminal")()
	log := logging.With(logging.WithListingID(ctx, listingID), u.log)

	now := u.clock.Now()
	var (
		out     *model.Listing
		from    model.ListingState
		changed bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		l, err := u.listings.FindByID(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if l.OwnerID != ownerID {
			return domain.ErrForbidden
		}
		if l.State == target {
			out = l
			return nil
		}
		if l.State.IsTerminal() {
			return domain.ErrTerminalStateViolation
		}
		prev := l.Version
		from = u.bands.Classify(l, now)
		l.State = target
		l.UpdatedAt = now
		ok, err := u.listings.UpdateIfVersion(ctx, tx, l, prev)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrConflict
		}
		out, changed = l, true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTerminalStateViolation) {
			log.Error().Err(err).Str("target", string(target)).Msg("terminal state change refused")
		}
		return nil, fmt.Errorf("mark %s: %w", target, err)
	}

	if changed {
		metrics.IncListingTransition(string(from), string(target))
		publish(ctx, u.events, u.log, stateChangedEvent(out, from, target, now))
		log.Info().Str("from", string(from)).Str("to", string(target)).Msg("listing closed by owner")
	}
	v := newListingView(out, u.bands, now)
	return &v, nil
}

func (u *listingUC) Get(ctx context.Context, viewerID, listingID string) (*ListingView, error) {
	l, err := u.listings.FindByID(ctx, repository.NoTX, listingID)
	if err != nil {
		return nil, err
	}
	v := newListingView(l, u.bands, u.clock.Now())
	if l.OwnerID != viewerID && (v.State == model.ListingStateDraft || v.State == model.ListingStateRemoved) {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (u *listingUC) ListByOwner(ctx context.Context, ownerID string) ([]ListingView, error) {
	items, err := u.listings.ListByOwner(ctx, repository.NoTX, ownerID)
	if err != nil {
		return nil, err
	}
	now := u.clock.Now()
	out := make([]ListingView, 0, len(items))
	for _, l := range items {
		out = append(out, newListingView(l, u.bands, now))
	}
	return out, nil
}

func (u *listingUC) Extend(ctx context.Context, tx repository.Tx, listingID string, days int, from time.Time) (*model.Listing, error) {
	l, err := u.listings.FindByID(ctx, tx, listingID)
	if err != nil {
		return nil, err
	}
	ext, err := l.Extended(days, from)
	if err != nil {
		return nil, err
	}
	ok, err := u.listings.UpdateIfVersion(ctx, tx, ext, l.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConflict
	}
	return ext, nil
}
