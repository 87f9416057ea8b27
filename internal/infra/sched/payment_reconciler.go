package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/usecase"
)

// PaymentReconciler settles push payments whose callback never arrived:
// it polls the gateway for old ones and fails those past the confirmation timeout.
type PaymentReconciler struct {
	uc      usecase.PaymentUseCase
	timeout time.Duration
	log     *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.PaymentUseCase, timeout time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, timeout: timeout, log: &l}
}

func (w *PaymentReconciler) Name() string { return "payment_sweep" }

func (w *PaymentReconciler) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	res, err := w.uc.SweepPending(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("payment sweep failed")
	}
	if res.TimedOut > 0 || res.Resolved > 0 {
		w.log.Info().
			Int("examined", res.Examined).
			Int("timed_out", res.TimedOut).
			Int("resolved", res.Resolved).
			Msg("pending payments swept")
	}
}
