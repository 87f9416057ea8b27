package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// BatchRunner runs tasks, possibly in parallel, and waits for all of them.
type BatchRunner interface {
	RunAll(ctx context.Context, tasks ...func(context.Context) error) error
}

// PassResult summarises one reconciliation pass.
type PassResult struct {
	Scanned int
	Changed int
	Batches int
	At      time.Time
}

// ReconcileUseCase brings stored listing states in line with Classify.
type ReconcileUseCase interface {
	RunPass(ctx context.Context) (PassResult, error)
}

type reconcileUC struct {
	listings  repository.ListingRepository
	bands     model.Bands
	clock     adapter.Clock
	runner    BatchRunner
	events    adapter.EventPublisher
	batchSize int
	window    time.Duration
	log       *zerolog.Logger
}

// NewReconcileUseCase builds the expiry scheduler core. window widens the
// selection beyond term_end <= now so that Active -> ExpiringSoon is caught;
// it should be at least bands.ExpiringSoon.
func NewReconcileUseCase(listings repository.ListingRepository, bands model.Bands, clock adapter.Clock, runner BatchRunner, events adapter.EventPublisher, batchSize int, window time.Duration, logger *zerolog.Logger) *reconcileUC {
	if batchSize <= 0 {
		batchSize = 200
	}
	if window < bands.ExpiringSoon {
		window = bands.ExpiringSoon
	}
	if runner == nil {
		runner = sequentialRunner{}
	}
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		listings:  listings,
		bands:     bands,
		clock:     clock,
		runner:    runner,
		events:    events,
		batchSize: batchSize,
		window:    window,
		log:       &l,
	}
}

// RunPass reads due listings page by page (the cursor is the only state kept),
// then fans the pages out to the runner. Concurrent passes are safe: every
// write is conditional on the state it was computed from.
func (u *reconcileUC) RunPass(ctx context.Context) (PassResult, error) {
	now := u.clock.Now()
	res := PassResult{At: now}

	var tasks []func(context.Context) error
	var changed int64
	cursor := ""
	for {
		batch, err := u.listings.ListForReconcile(ctx, repository.NoTX, repository.ReconcileBatch{
			Watermark: now.Add(u.window),
			AfterID:   cursor,
			Limit:     u.batchSize,
		})
		if err != nil {
			return res, err
		}
		if len(batch) == 0 {
			break
		}
		res.Scanned += len(batch)
		res.Batches++
		cursor = batch[len(batch)-1].ID

		items := batch
		tasks = append(tasks, func(ctx context.Context) error {
			n, err := u.reconcileBatch(ctx, items, now)
			atomic.AddInt64(&changed, int64(n))
			return err
		})
		if len(batch) < u.batchSize {
			break
		}
	}

	err := u.runner.RunAll(ctx, tasks...)
	res.Changed = int(atomic.LoadInt64(&changed))
	metrics.ObserveSchedulerPass(res.Scanned, u.clock.Now().Sub(now))
	if err != nil {
		u.log.Error().Err(err).Int("changed", res.Changed).Msg("reconcile pass finished with errors")
		return res, err
	}
	if res.Changed > 0 {
		u.log.Info().Int("scanned", res.Scanned).Int("changed", res.Changed).Msg("reconcile pass")
	}
	return res, nil
}

func (u *reconcileUC) reconcileBatch(ctx context.Context, batch []*model.Listing, now time.Time) (int, error) {
	changed := 0
	for _, l := range batch {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		derived := u.bands.Classify(l, now)
		if derived == l.State {
			continue
		}
		ok, err := u.listings.UpdateDerivedState(ctx, repository.NoTX, l.ID, l.Version, l.State, derived)
		if err != nil {
			return changed, err
		}
		if !ok {
			// closed or extended meanwhile; the next pass sees the new row
			continue
		}
		changed++
		metrics.IncListingTransition(string(l.State), string(derived))
		publish(ctx, u.events, u.log, stateChangedEvent(l, l.State, derived, now))
	}
	return changed, nil
}

type sequentialRunner struct{}

func (sequentialRunner) RunAll(ctx context.Context, tasks ...func(context.Context) error) error {
	for _, t := range tasks {
		if err := t(ctx); err != nil {
			return err
		}
	}
	return nil
}
