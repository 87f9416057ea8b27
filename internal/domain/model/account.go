package model

import (
	"time"

	"classifieds-marketplace/internal/domain"
)

// DefaultFreeListingCap is the lifetime number of free listings per account.
const DefaultFreeListingCap = 3

// PremiumSubscription is an account-wide premium term.
type PremiumSubscription struct {
	TermEnd time.Time
}

// Account is a seller. Identity is issued by the external auth provider; the
// row is created lazily the first time the account acts.
type Account struct {
	ID                  string
	DisplayName         string
	Phone               string
	Verified            bool
	FreeListingsUsed    int // never decremented
	PremiumSubscription *PremiumSubscription
	TelegramChatID      *int64
	CreatedAt           time.Time
}

func NewAccount(id string, now time.Time) (*Account, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{ID: id, CreatedAt: now}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// CanCreateFree reports whether another free listing fits under cap.
func (a *Account) CanCreateFree(cap int) bool {
	return a.FreeListingsUsed < cap
}

// FreeListingsLeft never goes below zero.
func (a *Account) FreeListingsLeft(cap int) int {
	if left := cap - a.FreeListingsUsed; left > 0 {
		return left
	}
	return 0
}

func (a *Account) HasActivePremium(now time.Time) bool {
	return a.PremiumSubscription != nil && now.Before(a.PremiumSubscription.TermEnd)
}
