package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRecoveryRateLimited      = errors.New("recovery answers rate limited")
	ErrRecoveryRedisUnavailable = errors.New("recovery redis unavailable")
)

type RecoveryConfig struct {
	MaxAnswerAttempts int
	AnswerWindow      time.Duration
	// KeyPrefix defaults to "gra".
	KeyPrefix string
}

// RecoveryLimiter caps security answer submissions per user in a fixed window.
// The budget is keyed by user, not by session, so restarting recovery does not
// refill it.
type RecoveryLimiter struct {
	redis  redis.UniversalClient
	config RecoveryConfig
}

func NewRecoveryLimiter(redisClient redis.UniversalClient, cfg RecoveryConfig) *RecoveryLimiter {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "gra"
	}
	return &RecoveryLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckAnswer counts one submission and fails once the window budget is spent.
// A nil limiter or a non-positive budget disables the check.
func (l *RecoveryLimiter) CheckAnswer(ctx context.Context, userID string) error {
	if l == nil || l.config.MaxAnswerAttempts <= 0 {
		return nil
	}
	return l.enforceFixedWindow(ctx, l.answerKey(userID))
}

// ResetAnswers clears the budget after a completed recovery.
func (l *RecoveryLimiter) ResetAnswers(ctx context.Context, userID string) error {
	if l == nil {
		return nil
	}
	if err := l.redis.Del(ctx, l.answerKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
	}
	return nil
}

func (l *RecoveryLimiter) enforceFixedWindow(ctx context.Context, key string) error {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.AnswerWindow).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRecoveryRedisUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAnswerAttempts) {
		return ErrRecoveryRateLimited
	}

	return nil
}

func (l *RecoveryLimiter) answerKey(userID string) string {
	return l.config.KeyPrefix + ":" + userID
}
