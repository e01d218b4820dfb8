package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/actilink/actilink-api/internal/ports/out/ratelimit"
)

const keyPrefix = "actilink:rl:"

// Limiter is a fixed-window counter in Redis. It implements ratelimit.Limiter.
type Limiter struct {
	rdb *goredis.Client
}

var _ ratelimit.Limiter = (*Limiter)(nil)

func NewLimiter(rdb *goredis.Client) *Limiter {
	return &Limiter{rdb: rdb}
}

// NewClient connects to addr and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// allowScript increments the counter and gives it a TTL whenever it has none,
// so a key can never outlive its window.
var allowScript = goredis.NewScript(`
local c = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return c
`)

// Allow counts one hit for key in the current window. The window starts at the
// first hit and the counter expires with it. On Redis errors the request is
// allowed and the error returned so the caller can log it.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window < time.Millisecond {
		window = time.Minute
	}
	count, err := allowScript.Run(ctx, l.rdb, []string{keyPrefix + key}, window.Milliseconds()).Int64()
	if err != nil {
		return true, fmt.Errorf("ratelimit eval: %w", err)
	}
	return count <= int64(limit), nil
}
