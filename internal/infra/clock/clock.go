package clock

import (
	"time"

	"classifieds-marketplace/internal/domain/ports/adapter"
)

var _ adapter.Clock = System{}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }
