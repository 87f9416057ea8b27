package adapter

import (
	"context"
	"time"
)

// LinkCodeStore holds short-lived one-time codes that bind a chat to an account.
type LinkCodeStore interface {
	Put(ctx context.Context, code, accountID string, ttl time.Duration) error
	// Take returns and deletes the account bound to code; domain.ErrNotFound
	// when it is unknown or expired.
	Take(ctx context.Context, code string) (string, error)
}
