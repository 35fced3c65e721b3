package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Limiter admits at most one action per key per window. It shares the
// cache connection and namespaces its keys under "ratelimit:".
type Limiter struct {
	client   *Client
	log      *zap.Logger
	failOpen bool
}

// NewLimiter builds a limiter over c. With failOpen set, a Redis failure
// admits the action instead of returning an error.
func NewLimiter(c *Client, log *zap.Logger, failOpen bool) *Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{client: c, log: log, failOpen: failOpen}
}

// Allow reports whether key may act now. A successful call starts a new
// window for key.
func (l *Limiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}
	ok, err := l.client.client.SetNX(ctx, l.key(key), 1, window).Result()
	if err != nil {
		if l.failOpen {
			l.log.Warn("rate limit check failed, allowing action", zap.String("key", key), zap.Error(err))
			return true, nil
		}
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !ok {
		l.log.Debug("rate limit exceeded", zap.String("key", key), zap.Duration("window", window))
	}
	return ok, nil
}

// Remaining returns how long key must still wait. Zero means it may act.
func (l *Limiter) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := l.client.client.PTTL(ctx, l.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read rate limit for %s: %w", key, err)
	}
	// -2 and -1 mean no key and no expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset lets key act again immediately.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.client.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset rate limit for %s: %w", key, err)
	}
	return nil
}

func (l *Limiter) key(key string) string {
	return keyPrefix + "ratelimit:" + key
}
