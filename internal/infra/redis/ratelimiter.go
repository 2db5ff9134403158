package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 10
	sendWindow               = time.Second
	minWindowWait            = 5 * time.Millisecond
	sendLimitKeyPrefix       = "sendlimit"
)

// acquireScript takes one slot from the window counter unless that would
// exceed ARGV[1]. A refused call leaves the counter unchanged.
var acquireScript = goredis.NewScript(`
local used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if used > tonumber(ARGV[1]) then
  redis.call("DECR", KEYS[1])
  return 0
end
return 1
`)

var _ ratelimit.SendLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter shares one per-second provider budget across every worker
// and channel. Customer auto-replies may not use the last adminReserve slots
// of a window, so a burst of replies cannot delay operator notifications.
type RedisRateLimiter struct {
	client       *goredis.Client
	limitPerSec  int64
	adminReserve int64
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewRedisRateLimiter(client *goredis.Client, limitPerSec int) (*RedisRateLimiter, error) {
	return newRedisRateLimiter(client, int64(limitPerSec), time.Now, sleepWithContext)
}

func newRedisRateLimiter(
	client *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &RedisRateLimiter{
		client:       client,
		limitPerSec:  limitPerSec,
		adminReserve: limitPerSec / 5,
		now:          nowFn,
		sleep:        sleepFn,
	}, nil
}

// capacity is the number of window slots the channel may use.
func (r *RedisRateLimiter) capacity(channel domain.Channel) (int64, error) {
	switch channel {
	case domain.ChannelAdmin:
		return r.limitPerSec, nil
	case domain.ChannelCustomer:
		return r.limitPerSec - r.adminReserve, nil
	default:
		return 0, fmt.Errorf("%w: channel %q is not rate limited", domain.ErrValidation, channel)
	}
}

func windowKey(at time.Time) string {
	return fmt.Sprintf("%s:%d", sendLimitKeyPrefix, at.UTC().Unix())
}

func (r *RedisRateLimiter) Allow(ctx context.Context, channel domain.Channel) (bool, error) {
	if r == nil || r.client == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}
	capacity, err := r.capacity(channel)
	if err != nil {
		return false, err
	}

	granted, err := acquireScript.Run(ctx, r.client, []string{windowKey(r.now())}, capacity, sendWindow.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	return granted == 1, nil
}

// Wait blocks until the channel gets a slot, sleeping to the start of the
// next window after each refusal.
func (r *RedisRateLimiter) Wait(ctx context.Context, channel domain.Channel) error {
	for {
		allowed, err := r.Allow(ctx, channel)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := r.sleep(ctx, untilNextWindow(r.now())); err != nil {
			return err
		}
	}
}

func untilNextWindow(now time.Time) time.Duration {
	d := now.Truncate(sendWindow).Add(sendWindow).Sub(now)
	if d < minWindowWait {
		return minWindowWait
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
