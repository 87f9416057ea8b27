package postgres

import (
	"context"
	"encoding/json"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"
	red "classifieds-marketplace/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.ListingRepository = (*listingRepoCacheDecorator)(nil)

// listingRepoCacheDecorator caches single-listing reads made outside a
// transaction. Reads inside a transaction need the row lock and always go to
// the database. A write made inside TxManager.WithTx drops the entry only
// after the commit, so a plain read racing the open transaction cannot pin
// the pre-commit row for the whole ttl. Writes outside a transaction drop it
// immediately.
type listingRepoCacheDecorator struct {
	inner repository.ListingRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewListingRepoCacheDecorator(inner repository.ListingRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.ListingRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &listingRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func listingKey(id string) string { return "listing:id:" + id }

func (d *listingRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	err := d.cache.Del(ctx, listingKey(id))
	metrics.IncCacheInvalidation("listing", err)
	if err != nil {
		d.log.Warn().Err(err).Str("listing_id", id).Msg("listing cache invalidation failed")
	}
}

// invalidateAfterWrite defers the delete to commit when the write belongs to
// a managed transaction.
func (d *listingRepoCacheDecorator) invalidateAfterWrite(ctx context.Context, tx repository.Tx, id string) {
	if tx != nil && afterCommit(ctx, func(ctx context.Context) { d.invalidate(ctx, id) }) {
		return
	}
	d.invalidate(ctx, id)
}

func (d *listingRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Listing, error) {
	if tx != nil {
		metrics.IncCacheRequest("listing", "bypass")
		return d.inner.FindByID(ctx, tx, id)
	}
	key := listingKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var l model.Listing
		if json.Unmarshal([]byte(val), &l) == nil {
			metrics.IncCacheRequest("listing", "hit")
			return &l, nil
		}
	} else if !red.IsMiss(err) {
		d.log.Debug().Err(err).Msg("listing cache read failed")
	}

	metrics.IncCacheRequest("listing", "miss")
	l, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(l); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return l, nil
}

func (d *listingRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, l *model.Listing) error {
	err := d.inner.Save(ctx, tx, l)
	d.invalidateAfterWrite(ctx, tx, l.ID)
	return err
}

func (d *listingRepoCacheDecorator) UpdateIfVersion(ctx context.Context, tx repository.Tx, l *model.Listing, expectedVersion int64) (bool, error) {
	ok, err := d.inner.UpdateIfVersion(ctx, tx, l, expectedVersion)
	d.invalidateAfterWrite(ctx, tx, l.ID)
	return ok, err
}

func (d *listingRepoCacheDecorator) UpdateDerivedState(ctx context.Context, tx repository.Tx, id string, version int64, from, to model.ListingState) (bool, error) {
	ok, err := d.inner.UpdateDerivedState(ctx, tx, id, version, from, to)
	if ok {
		d.invalidateAfterWrite(ctx, tx, id)
	}
	return ok, err
}

// Pass-through methods that don't need caching
func (d *listingRepoCacheDecorator) ListByOwner(ctx context.Context, tx repository.Tx, ownerID string) ([]*model.Listing, error) {
	return d.inner.ListByOwner(ctx, tx, ownerID)
}

func (d *listingRepoCacheDecorator) Search(ctx context.Context, tx repository.Tx, c repository.ListingCriteria) ([]*model.Listing, error) {
	return d.inner.Search(ctx, tx, c)
}

func (d *listingRepoCacheDecorator) ListForReconcile(ctx context.Context, tx repository.Tx, b repository.ReconcileBatch) ([]*model.Listing, error) {
	return d.inner.ListForReconcile(ctx, tx, b)
}

func (d *listingRepoCacheDecorator) ListExpiringBetween(ctx context.Context, tx repository.Tx, from, to time.Time, limit int) ([]*model.Listing, error) {
	return d.inner.ListExpiringBetween(ctx, tx, from, to, limit)
}

func (d *listingRepoCacheDecorator) CountByState(ctx context.Context, tx repository.Tx) (map[model.ListingState]int, error) {
	return d.inner.CountByState(ctx, tx)
}
