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

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountView is the account as shown to its owner.
type AccountView struct {
	Account          *model.Account
	FreeListingCap   int
	FreeListingsLeft int
	CanCreateFree    bool
	PremiumActive    bool
}

// ProfileUpdate carries optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	DisplayName    *string
	Phone          *string
	TelegramChatID *int64
}

type AccountUseCase interface {
	// Ensure returns the account, creating it on first use.
	Ensure(ctx context.Context, accountID string) (*model.Account, error)
	View(ctx context.Context, accountID string) (*AccountView, error)
	UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*AccountView, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	quota    QuotaUseCase
	clock    adapter.Clock
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, quota QuotaUseCase, clock adapter.Clock, logger *zerolog.Logger) *accountUC {
	return &accountUC{accounts: accounts, quota: quota, clock: clock, log: logger}
}

func (u *accountUC) Ensure(ctx context.Context, accountID string) (*model.Account, error) {
	return ensureAccount(ctx, u.accounts, repository.NoTX, accountID, u.clock)
}

func (u *accountUC) View(ctx context.Context, accountID string) (*AccountView, error) {
	defer logging.TraceDuration(u.log, "AccountUC.View")()
	acc, err := u.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return u.view(ctx, acc)
}

func (u *accountUC) UpdateProfile(ctx context.Context, accountID string, upd ProfileUpdate) (*AccountView, error) {
	acc, err := u.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if upd.DisplayName != nil {
		acc.DisplayName = strings.TrimSpace(*upd.DisplayName)
	}
	if upd.Phone != nil {
		phone, err := model.NormalizePhone(*upd.Phone)
		if err != nil {
			return nil, err
		}
		acc.Phone = phone
	}
	if upd.TelegramChatID != nil {
		if *upd.TelegramChatID == 0 {
			acc.TelegramChatID = nil
		} else {
			id := *upd.TelegramChatID
			acc.TelegramChatID = &id
		}
	}
	if err := u.accounts.UpdateProfile(ctx, repository.NoTX, acc); err != nil {
		u.log.Error().Err(err).Str("account_id", accountID).Msg("failed to update profile")
		return nil, err
	}
	return u.view(ctx, acc)
}

func (u *accountUC) view(ctx context.Context, acc *model.Account) (*AccountView, error) {
	canFree, err := u.quota.CanCreateFree(ctx, acc.ID)
	if err != nil {
		return nil, err
	}
	return &AccountView{
		Account:          acc,
		FreeListingCap:   u.quota.Cap(),
		FreeListingsLeft: acc.FreeListingsLeft(u.quota.Cap()),
		CanCreateFree:    canFree,
		PremiumActive:    acc.HasActivePremium(u.clock.Now()),
	}, nil
}

// ensureAccount creates the account row lazily; identity comes from the auth token.
func ensureAccount(ctx context.Context, accounts repository.AccountRepository, tx repository.Tx, id string, clock adapter.Clock) (*model.Account, error) {
	acc, err := accounts.FindByID(ctx, tx, id)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	fresh, err := model.NewAccount(id, clock.Now())
	if err != nil {
		return nil, err
	}
	return accounts.Ensure(ctx, tx, fresh)
}
