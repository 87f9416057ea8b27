package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/usecase"
)

// ExpiryWorker runs one reconciliation pass per tick, bringing stored listing
// states in line with the clock.
type ExpiryWorker struct {
	uc      usecase.ReconcileUseCase
	timeout time.Duration
	log     *zerolog.Logger
}

func NewExpiryWorker(uc usecase.ReconcileUseCase, timeout time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{uc: uc, timeout: timeout, log: &l}
}

func (w *ExpiryWorker) Name() string { return "expiry" }

func (w *ExpiryWorker) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	res, err := w.uc.RunPass(ctx)
	if err != nil {
		w.log.Error().Err(err).Int("scanned", res.Scanned).Int("changed", res.Changed).Msg("expiry pass failed")
		return
	}
	if res.Changed > 0 {
		w.log.Info().Int("changed", res.Changed).Int("batches", res.Batches).Msg("listing states reconciled")
	}
}
