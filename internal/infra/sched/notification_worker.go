package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/usecase"
)

type NotificationWorker struct {
	notifUC usecase.NotificationUseCase
	timeout time.Duration
	log     *zerolog.Logger
}

func NewNotificationWorker(notifUC usecase.NotificationUseCase, timeout time.Duration, logger *zerolog.Logger) *NotificationWorker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	compLog := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{notifUC: notifUC, timeout: timeout, log: &compLog}
}

func (w *NotificationWorker) Name() string { return "expiry_reminders" }

func (w *NotificationWorker) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	sent, err := w.notifUC.SendExpiryReminders(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("reminder run failed")
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("expiry reminders sent")
	}
}
