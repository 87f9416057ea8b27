package adapter

import "time"

// Clock is the single source of "now" for lifecycle decisions.
type Clock interface {
	Now() time.Time
}
