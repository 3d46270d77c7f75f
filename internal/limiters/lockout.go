package limiters

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked is returned when an account is locked or has no attempts left.
	ErrLocked = errors.New("account locked")
	// ErrLockoutUnavailable indicates the attempt backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
)

// AttemptState is the observable state of one user's attempt counter.
type AttemptState struct {
	Remaining int
	Locked    bool
	// JustLocked is set only by the Decrement call that moved the counter to zero
	// and wrote the lock.
	JustLocked bool
}

// AttemptStore persists attempt counters. Each method must be atomic with respect
// to concurrent callers for the same user. A user with no record starts at max.
type AttemptStore interface {
	Load(ctx context.Context, userID string, max int) (AttemptState, error)
	// Decrement lowers remaining by one (floored at zero) and sets locked when the
	// result is zero, returning the post-write state.
	Decrement(ctx context.Context, userID string, max int) (AttemptState, error)
	// Reset restores remaining to max unless the record is locked. A locked record
	// is returned unchanged.
	Reset(ctx context.Context, userID string, max int) (AttemptState, error)
	// Unlock clears locked and restores remaining to max.
	Unlock(ctx context.Context, userID string, max int) error
}

// LockoutConfig holds configuration for the attempt guard.
type LockoutConfig struct {
	MaxAttempts int
}

// Guard implements the login attempt policy on top of an [AttemptStore].
type Guard struct {
	store  AttemptStore
	config LockoutConfig
}

// NewGuard creates a guard. MaxAttempts below one is treated as one.
func NewGuard(store AttemptStore, cfg LockoutConfig) *Guard {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Guard{store: store, config: cfg}
}

// MaxAttempts returns the configured budget.
func (g *Guard) MaxAttempts() int {
	return g.config.MaxAttempts
}

// CheckAllowed fails with [ErrLocked] if the user is locked or out of attempts.
func (g *Guard) CheckAllowed(ctx context.Context, userID string) error {
	state, err := g.store.Load(ctx, userID, g.config.MaxAttempts)
	if err != nil {
		return err
	}
	if state.Locked || state.Remaining <= 0 {
		return ErrLocked
	}
	return nil
}

// RecordFailure consumes one attempt. The decrement is persisted before the result
// is inspected, so both the 1→0 transition and an already exhausted counter report
// [ErrLocked]; only the former carries JustLocked.
func (g *Guard) RecordFailure(ctx context.Context, userID string) (AttemptState, error) {
	state, err := g.store.Decrement(ctx, userID, g.config.MaxAttempts)
	if err != nil {
		return AttemptState{}, err
	}
	if state.Remaining <= 0 {
		return state, ErrLocked
	}
	return state, nil
}

// RecordSuccess restores the budget. It never clears the lock: if a concurrent
// failure locked the account first, ErrLocked is returned.
func (g *Guard) RecordSuccess(ctx context.Context, userID string) error {
	state, err := g.store.Reset(ctx, userID, g.config.MaxAttempts)
	if err != nil {
		return err
	}
	if state.Locked {
		return ErrLocked
	}
	return nil
}

// Unlock clears the lock and restores the budget.
func (g *Guard) Unlock(ctx context.Context, userID string) error {
	return g.store.Unlock(ctx, userID, g.config.MaxAttempts)
}

// State reports the current counter without mutating it.
func (g *Guard) State(ctx context.Context, userID string) (AttemptState, error) {
	return g.store.Load(ctx, userID, g.config.MaxAttempts)
}

const decrementAttemptsScript = `
local remaining = tonumber(redis.call("HGET", KEYS[1], "remaining") or ARGV[1])
local locked = redis.call("HGET", KEYS[1], "locked") == "1"
local transitioned = 0
if remaining > 0 then
  remaining = remaining - 1
end
if remaining == 0 and not locked then
  locked = true
  transitioned = 1
end
local lockedFlag = 0
if locked then
  lockedFlag = 1
end
redis.call("HSET", KEYS[1], "remaining", remaining, "locked", lockedFlag)
return {remaining, lockedFlag, transitioned}
`

const resetAttemptsScript = `
if redis.call("HGET", KEYS[1], "locked") == "1" then
  return {tonumber(redis.call("HGET", KEYS[1], "remaining") or "0"), 1}
end
redis.call("HSET", KEYS[1], "remaining", ARGV[1], "locked", 0)
return {tonumber(ARGV[1]), 0}
`

var (
	decrementAttemptsLua = redis.NewScript(decrementAttemptsScript)
	resetAttemptsLua     = redis.NewScript(resetAttemptsScript)
)

// RedisAttemptStore keeps one hash per user ("gla:<userID>") with fields
// remaining and locked. Mutations run as Lua scripts.
type RedisAttemptStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisAttemptStore creates the Redis-backed [AttemptStore]. An empty prefix
// defaults to "gla".
func NewRedisAttemptStore(redisClient redis.UniversalClient, prefix string) *RedisAttemptStore {
	if prefix == "" {
		prefix = "gla"
	}
	return &RedisAttemptStore{redis: redisClient, prefix: prefix}
}

func (s *RedisAttemptStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Load reads the counter. Missing records report max remaining and unlocked.
func (s *RedisAttemptStore) Load(ctx context.Context, userID string, max int) (AttemptState, error) {
	vals, err := s.redis.HMGet(ctx, s.key(userID), "remaining", "locked").Result()
	if err != nil {
		return AttemptState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}

	state := AttemptState{Remaining: max}
	if raw, ok := vals[0].(string); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return AttemptState{}, fmt.Errorf("%w: corrupt remaining %q", ErrLockoutUnavailable, raw)
		}
		state.Remaining = n
	}
	if raw, ok := vals[1].(string); ok {
		state.Locked = raw == "1"
	}
	return state, nil
}

// Decrement runs the atomic decrement-and-lock script.
func (s *RedisAttemptStore) Decrement(ctx context.Context, userID string, max int) (AttemptState, error) {
	res, err := decrementAttemptsLua.Run(ctx, s.redis, []string{s.key(userID)}, max).Int64Slice()
	if err != nil {
		return AttemptState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if len(res) != 3 {
		return AttemptState{}, fmt.Errorf("%w: unexpected script reply", ErrLockoutUnavailable)
	}
	return AttemptState{Remaining: int(res[0]), Locked: res[1] == 1, JustLocked: res[2] == 1}, nil
}

// Reset restores remaining to max unless locked.
func (s *RedisAttemptStore) Reset(ctx context.Context, userID string, max int) (AttemptState, error) {
	res, err := resetAttemptsLua.Run(ctx, s.redis, []string{s.key(userID)}, max).Int64Slice()
	if err != nil {
		return AttemptState{}, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if len(res) != 2 {
		return AttemptState{}, fmt.Errorf("%w: unexpected script reply", ErrLockoutUnavailable)
	}
	return AttemptState{Remaining: int(res[0]), Locked: res[1] == 1}, nil
}

// Unlock overwrites the record with an unlocked full budget.
func (s *RedisAttemptStore) Unlock(ctx context.Context, userID string, max int) error {
	if err := s.redis.HSet(ctx, s.key(userID), "remaining", max, "locked", 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	return nil
}

// IsLocked reports whether err is the guard's lock signal.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}
