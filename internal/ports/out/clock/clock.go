package clock

import "time"

// Clock provides wall-clock time to services that stamp records.
// Tests swap in a manual implementation to get deterministic timestamps.
type Clock interface {
	Now() time.Time
}
