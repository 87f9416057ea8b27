package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain"
	"classifieds-marketplace/internal/domain/ports/adapter"
)

// Compile-time check
var _ TelegramLinkUseCase = (*telegramLinkUC)(nil)

const linkCodeTTL = 15 * time.Minute

type TelegramLink struct {
	Code      string    `json:"code"`
	DeepLink  string    `json:"deep_link,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TelegramLinkUseCase binds a Telegram chat to an account so reminders and
// payment outcomes can be delivered there.
type TelegramLinkUseCase interface {
	Issue(ctx context.Context, accountID string) (*TelegramLink, error)
	Link(ctx context.Context, code string, chatID int64) error
}

type telegramLinkUC struct {
	codes    adapter.LinkCodeStore
	accounts AccountUseCase
	clock    adapter.Clock
	botName  string
	log      *zerolog.Logger
}

func NewTelegramLinkUseCase(codes adapter.LinkCodeStore, accounts AccountUseCase, clock adapter.Clock, botName string, logger *zerolog.Logger) *telegramLinkUC {
	l := logger.With().Str("component", "TelegramLinkUC").Logger()
	return &telegramLinkUC{codes: codes, accounts: accounts, clock: clock, botName: botName, log: &l}
}

var linkEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func newLinkCode() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return linkEncoding.EncodeToString(b), nil
}

func (u *telegramLinkUC) Issue(ctx context.Context, accountID string) (*TelegramLink, error) {
	if _, err := u.accounts.Ensure(ctx, accountID); err != nil {
		return nil, err
	}
	code, err := newLinkCode()
	if err != nil {
		return nil, err
	}
	if err := u.codes.Put(ctx, code, accountID, linkCodeTTL); err != nil {
		return nil, err
	}
	out := &TelegramLink{Code: code, ExpiresAt: u.clock.Now().Add(linkCodeTTL)}
	if u.botName != "" {
		out.DeepLink = "https://t.me/" + u.botName + "?start=" + code
	}
	return out, nil
}

func (u *telegramLinkUC) Link(ctx context.Context, code string, chatID int64) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || chatID == 0 {
		return domain.ErrInvalidArgument
	}
	accountID, err := u.codes.Take(ctx, code)
	if err != nil {
		return err
	}
	if _, err := u.accounts.UpdateProfile(ctx, accountID, ProfileUpdate{TelegramChatID: &chatID}); err != nil {
		return err
	}
	u.log.Info().Str("account_id", accountID).Msg("telegram chat linked")
	return nil
}
