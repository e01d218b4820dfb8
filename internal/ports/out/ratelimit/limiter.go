package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
