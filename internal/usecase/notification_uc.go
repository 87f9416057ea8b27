package usecase

import (
	"context"
	"fmt"
	"time"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/domain/ports/repository"
	"classifieds-marketplace/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

const (
	NotifyExpiryReminder   = "expiry_reminder"
	NotifyPaymentSucceeded = "payment_succeeded"
	NotifyPaymentFailed    = "payment_failed"
)

type NotificationUseCase interface {
	// SendExpiryReminders messages owners of listings whose term ends within
	// the reminder window, once per listing term.
	SendExpiryReminders(ctx context.Context) (int, error)
	NotifyPaymentResolved(ctx context.Context, p *model.PaymentTransaction) error
}

type notificationUC struct {
	listings   repository.ListingRepository
	accounts   repository.AccountRepository
	notifLog   repository.NotificationLogRepository
	bot        adapter.TelegramBotAdapter
	clock      adapter.Clock
	within     time.Duration
	renewalURL string
	log        *zerolog.Logger
}

func NewNotificationUseCase(listings repository.ListingRepository, accounts repository.AccountRepository, notifLog repository.NotificationLogRepository, bot adapter.TelegramBotAdapter, clock adapter.Clock, within time.Duration, renewalURL string, logger *zerolog.Logger) *notificationUC {
	if within <= 0 {
		within = 24 * time.Hour
	}
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{
		listings:   listings,
		accounts:   accounts,
		notifLog:   notifLog,
		bot:        bot,
		clock:      clock,
		within:     within,
		renewalURL: renewalURL,
		log:        &l,
	}
}

func (n *notificationUC) SendExpiryReminders(ctx context.Context) (int, error) {
	now := n.clock.Now()
	items, err := n.listings.ListExpiringBetween(ctx, repository.NoTX, now, now.Add(n.within), 500)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, l := range items {
		key := repository.NotificationKey{ListingID: l.ID, Kind: NotifyExpiryReminder, TermEnd: l.TermEnd}
		exists, err := n.notifLog.WasSent(ctx, repository.NoTX, key)
		if err != nil {
			n.log.Error().Err(err).Str("listing_id", l.ID).Msg("notification log lookup failed")
			continue
		}
		if exists {
			metrics.IncNotification(NotifyExpiryReminder, "duplicate")
			continue
		}
		acc, err := n.accounts.FindByID(ctx, repository.NoTX, l.OwnerID)
		if err != nil {
			n.log.Error().Err(err).Str("account_id", l.OwnerID).Msg("owner lookup failed")
			continue
		}
		if acc.TelegramChatID == nil {
			metrics.IncNotification(NotifyExpiryReminder, "no_channel")
			continue
		}

		left := l.TermEnd.Sub(now).Round(time.Hour)
		msg := fmt.Sprintf("Your listing \"%s\" expires in about %s. Upgrade to premium to keep it visible.", l.Title, left)
		if n.renewalURL != "" {
			rows := adapter.Keyboard(adapter.LinkButton("Upgrade listing", n.renewalURL+l.ID))
			err = n.bot.SendButtons(ctx, *acc.TelegramChatID, msg, rows)
		} else {
			err = n.bot.SendMessage(ctx, *acc.TelegramChatID, msg)
		}
		if err != nil {
			metrics.IncNotification(NotifyExpiryReminder, "error")
			n.log.Warn().Err(err).Str("listing_id", l.ID).Msg("expiry reminder not delivered")
			continue
		}
		if err := n.notifLog.Record(ctx, repository.NoTX, key, acc.ID); err != nil {
			n.log.Error().Err(err).Str("listing_id", l.ID).Msg("failed to record reminder")
		}
		metrics.IncNotification(NotifyExpiryReminder, "sent")
		sent++
	}
	return sent, nil
}

func (n *notificationUC) NotifyPaymentResolved(ctx context.Context, p *model.PaymentTransaction) error {
	kind := NotifyPaymentFailed
	if p.Status == model.PaymentStatusSucceeded {
		kind = NotifyPaymentSucceeded
	}
	acc, err := n.accounts.FindByID(ctx, repository.NoTX, p.AccountID)
	if err != nil {
		return err
	}
	if acc.TelegramChatID == nil {
		metrics.IncNotification(kind, "no_channel")
		return nil
	}

	var msg string
	switch {
	case kind == NotifyPaymentSucceeded:
		msg = fmt.Sprintf("Payment %s received (receipt %s). Your listing is premium for %d days.", p.Reference, p.ReceiptNumber, p.Plan.Days)
	case p.FailureReason == model.FailureListingTerminal:
		msg = fmt.Sprintf("Payment %s was received but the listing is no longer available. Contact support for a refund.", p.Reference)
	default:
		msg = fmt.Sprintf("Payment %s was not completed (%s). You can try again.", p.Reference, p.FailureReason)
	}
	if err := n.bot.SendMessage(ctx, *acc.TelegramChatID, msg); err != nil {
		metrics.IncNotification(kind, "error")
		return err
	}
	metrics.IncNotification(kind, "sent")
	return nil
}
