package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps Redis transport failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no live session exists for an identifier.
var ErrNotFound = errors.New("session not found")

// ErrKindMismatch is returned by kind-guarded mutations on a session of another kind.
var ErrKindMismatch = errors.New("session kind mismatch")

// ErrProfileAlreadySet is returned when a profile is written twice.
var ErrProfileAlreadySet = errors.New("session profile already set")

// ErrChallengeIssued is returned when questions are written twice.
var ErrChallengeIssued = errors.New("session challenge already issued")

const minSlidingTTL = time.Second

const (
	guardStatusNotFound  int64 = 0
	guardStatusApplied   int64 = 1
	guardStatusWrongKind int64 = -1
	guardStatusConflict  int64 = -2
)

const deleteSessionScript = `
local uid = redis.call("HGET", KEYS[1], "uid")
if not uid then
  return 0
end
if ARGV[3] ~= "" and redis.call("HGET", KEYS[1], "kind") ~= ARGV[3] then
  return -1
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[1] .. uid, ARGV[2])
return 1
`

const setProfileScript = `
local kind = redis.call("HGET", KEYS[1], "kind")
if not kind then
  return 0
end
if kind ~= ARGV[1] then
  return -1
end
local current = redis.call("HGET", KEYS[1], "profile")
if current and current ~= "" then
  return -2
end
redis.call("HSET", KEYS[1], "profile", ARGV[2])
return 1
`

const setQuestionsScript = `
local kind = redis.call("HGET", KEYS[1], "kind")
if not kind then
  return 0
end
if kind ~= ARGV[1] then
  return -1
end
local current = redis.call("HGET", KEYS[1], "questions")
if current and current ~= "" then
  return -2
end
redis.call("HSET", KEYS[1], "questions", ARGV[2])
return 1
`

var (
	deleteSessionLua = redis.NewScript(deleteSessionScript)
	setProfileLua    = redis.NewScript(setProfileScript)
	setQuestionsLua  = redis.NewScript(setQuestionsScript)
)

// Store is a Redis-backed session store that handles persistence, expiration,
// sliding idle renewal, and kind-guarded field updates.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
	idleTTL time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. When sliding is true every read of an
// Authenticated session pushes its expiry out to idleTTL, capped by the
// session's absolute ExpiresAt.
func NewStore(redis redis.UniversalClient, prefix string, sliding bool, idleTTL time.Duration) *Store {
	if prefix == "" {
		prefix = "gs"
	}
	return &Store{
		redis:   redis,
		prefix:  prefix,
		sliding: sliding,
		idleTTL: idleTTL,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + "u:"
}

func (s *Store) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}

// Save writes sess under its SessionID with the given TTL and indexes it by user.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	fields, err := Encode(sess)
	if err != nil {
		return err
	}

	sessionKey := s.key(sess.SessionID)
	userKey := s.userKey(sess.UserID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey)
		pipe.HSet(ctx, sessionKey, fields)
		pipe.Expire(ctx, sessionKey, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a session. Expired or missing sessions return [ErrNotFound].
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	fields, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	sess, err := Decode(fields)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	remaining := time.Until(time.Unix(sess.ExpiresAt, 0))
	if sess.ExpiresAt > 0 && remaining <= 0 {
		if _, err := s.delete(ctx, sessionID, KindNone); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	if s.sliding && sess.Kind == KindAuthenticated && s.idleTTL > 0 {
		next := s.idleTTL
		if sess.ExpiresAt > 0 && remaining < next {
			next = remaining
		}
		if next < minSlidingTTL {
			next = minSlidingTTL
		}
		if err := s.redis.Expire(ctx, key, next).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// Exists reports whether a live record exists for sessionID.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Delete removes a session and its index entry. Deleting a missing session is not
// an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.delete(ctx, sessionID, KindNone)
	return err
}

// DeleteIfKind removes the session only when it is of the given kind.
// It returns [ErrNotFound] or [ErrKindMismatch] otherwise.
func (s *Store) DeleteIfKind(ctx context.Context, sessionID string, kind Kind) error {
	status, err := s.delete(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	return statusError(status)
}

func (s *Store) delete(ctx context.Context, sessionID string, kind Kind) (int64, error) {
	kindArg := ""
	if kind != KindNone {
		kindArg = kindValue(kind)
	}
	status, err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		s.userKeyPrefix(),
		sessionID,
		kindArg,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return status, nil
}

// SetProfile writes profile on an Authenticated session that has none yet.
func (s *Store) SetProfile(ctx context.Context, sessionID, profile string) error {
	status, err := setProfileLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		kindValue(KindAuthenticated),
		profile,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status == guardStatusConflict {
		return ErrProfileAlreadySet
	}
	return statusError(status)
}

// SetQuestions stores the drawn question pair on a Recovery session. The pair is
// written once; a second call returns [ErrChallengeIssued].
func (s *Store) SetQuestions(ctx context.Context, sessionID string, questions []Question) error {
	raw, err := EncodeQuestions(questions)
	if err != nil {
		return err
	}
	status, err := setQuestionsLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		kindValue(KindRecovery),
		raw,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status == guardStatusConflict {
		return ErrChallengeIssued
	}
	return statusError(status)
}

// DeleteAllForUser removes every indexed session of userID.
//
// The index is read then deleted in a second round trip; a session created in
// between survives and expires on its own TTL.
func (s *Store) DeleteAllForUser(ctx context.Context, userID string) error {
	userKey := s.userKey(userID)

	sessionIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(sessionIDs)+1)
	for _, sessionID := range sessionIDs {
		keys = append(keys, s.key(sessionID))
	}
	keys = append(keys, userKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs returns the indexed session IDs for a user.
func (s *Store) ActiveSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping checks Redis connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func kindValue(k Kind) string {
	return strconv.Itoa(int(k))
}

func statusError(status int64) error {
	switch status {
	case guardStatusApplied:
		return nil
	case guardStatusNotFound:
		return ErrNotFound
	case guardStatusWrongKind:
		return ErrKindMismatch
	default:
		return fmt.Errorf("%w: unexpected script status %d", ErrRedisUnavailable, status)
	}
}
