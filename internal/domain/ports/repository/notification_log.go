package repository

import (
	"context"
	"time"
)

// NotificationKey identifies one reminder. TermEnd is part of the key so a
// listing whose term was extended can be reminded again for the new term.
type NotificationKey struct {
	ListingID string
	Kind      string
	TermEnd   time.Time
}

// NotificationLogRepository remembers which reminders were delivered.
type NotificationLogRepository interface {
	// Record is idempotent: recording the same key twice is not an error.
	Record(ctx context.Context, tx Tx, key NotificationKey, accountID string) error
	WasSent(ctx context.Context, tx Tx, key NotificationKey) (bool, error)
}
