package usecase

import (
	"context"
	"sort"
	"strings"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ QueryUseCase = (*queryUC)(nil)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListingFilter narrows the public listing search. All fields are optional.
type ListingFilter struct {
	Text        string
	Category    string
	Location    string
	MinPrice    *int64
	MaxPrice    *int64
	IncludeSold bool
	Limit       int
	Offset      int
}

type QueryUseCase interface {
	// Search never writes; states are derived at call time.
	Search(ctx context.Context, f ListingFilter) ([]ListingView, error)
}

type queryUC struct {
	listings repository.ListingRepository
	bands    model.Bands
	clock    adapter.Clock
	log      *zerolog.Logger
}

func NewQueryUseCase(listings repository.ListingRepository, bands model.Bands, clock adapter.Clock, logger *zerolog.Logger) *queryUC {
	return &queryUC{listings: listings, bands: bands, clock: clock, log: logger}
}

func (q *queryUC) Search(ctx context.Context, f ListingFilter) ([]ListingView, error) {
	defer logging.TraceDuration(q.log, "QueryUC.Search")()

	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, domain.ErrInvalidArgument
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	now := q.clock.Now()
	crit := repository.ListingCriteria{
		Text:          strings.TrimSpace(f.Text),
		Category:      strings.TrimSpace(f.Category),
		Location:      strings.TrimSpace(f.Location),
		MinPrice:      f.MinPrice,
		MaxPrice:      f.MaxPrice,
		IncludeSold:   f.IncludeSold,
		PublishedOnly: true,
		Limit:         f.Limit,
		Offset:        f.Offset,
		LiveAfter:     &now,
	}
	rows, err := q.listings.Search(ctx, repository.NoTX, crit)
	if err != nil {
		return nil, err
	}

	out := make([]ListingView, 0, len(rows))
	for _, l := range rows {
		v := newListingView(l, q.bands, now)
		if !model.IsVisible(v.State, f.IncludeSold) {
			continue
		}
		out = append(out, v)
	}
	sortByRelevance(out)
	return out, nil
}

// sortByRelevance puts premium before free, then newest first. All text
// matches rank equally.
func sortByRelevance(items []ListingView) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Listing, items[j].Listing
		if a.Tier != b.Tier {
			return a.Tier == model.TierPremium
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
