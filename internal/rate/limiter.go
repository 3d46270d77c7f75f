package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Action names a throttled entry point.
type Action string

const (
	ActionLogin         Action = "login"
	ActionRecoveryStart Action = "recovery"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

// Limiter enforces per-client budgets on unauthenticated entry points using
// Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a rate [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check counts one hit for client on action and returns [ErrRateLimited] once the
// window budget is exceeded. An empty client key is never throttled.
func (l *Limiter) Check(ctx context.Context, action Action, client string) error {
	if l == nil || !l.config.Enabled || client == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, key(action, client), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for client on action.
func (l *Limiter) Reset(ctx context.Context, action Action, client string) error {
	if l == nil || !l.config.Enabled || client == "" {
		return nil
	}
	if err := l.redis.Del(ctx, key(action, client)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func key(action Action, client string) string {
	switch action {
	case ActionLogin:
		return "grl:" + client
	default:
		return "grr:" + client
	}
}
