package postgres

import (
	"context"
	"errors"
	"fmt"

	goGate "github.com/MrEthical07/goGate"
	"github.com/jackc/pgx/v5"
)

// ErrUnknownUser is returned when an attempt counter is written for a user that
// has no row.
var ErrUnknownUser = errors.New("postgres: unknown user")

// A NULL attempts_remaining means the user has never failed and holds the full
// budget. Each statement is a single row update, so concurrent callers are
// serialised by the row lock.
const (
	loadAttemptsSQL = `SELECT COALESCE(attempts_remaining, $2), locked FROM users WHERE id = $1`

	decrementAttemptsSQL = `WITH prev AS (
	SELECT id, locked FROM users WHERE id = $1 FOR UPDATE
)
UPDATE users AS u
SET attempts_remaining = GREATEST(COALESCE(u.attempts_remaining, $2) - 1, 0),
    locked = u.locked OR COALESCE(u.attempts_remaining, $2) - 1 <= 0
FROM prev
WHERE u.id = prev.id
RETURNING u.attempts_remaining, u.locked, u.locked AND NOT prev.locked`

	resetAttemptsSQL = `UPDATE users
SET attempts_remaining = CASE WHEN locked THEN COALESCE(attempts_remaining, $2) ELSE $2 END
WHERE id = $1
RETURNING attempts_remaining, locked`

	unlockAttemptsSQL = `UPDATE users SET attempts_remaining = $2, locked = FALSE WHERE id = $1`
)

// AttemptStore keeps login attempt counters in the users table.
type AttemptStore struct {
	db DB
}

var _ goGate.AttemptStore = (*AttemptStore)(nil)

func NewAttemptStore(db DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// Load reports the counter. Unknown users report a full, unlocked budget.
func (s *AttemptStore) Load(ctx context.Context, userID string, max int) (goGate.AttemptState, error) {
	state := goGate.AttemptState{Remaining: max}
	err := s.db.QueryRow(ctx, loadAttemptsSQL, userID, max).Scan(&state.Remaining, &state.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goGate.AttemptState{Remaining: max}, nil
		}
		return goGate.AttemptState{}, fmt.Errorf("load attempts: %w", err)
	}
	return state, nil
}

func (s *AttemptStore) Decrement(ctx context.Context, userID string, max int) (goGate.AttemptState, error) {
	var state goGate.AttemptState
	err := s.db.QueryRow(ctx, decrementAttemptsSQL, userID, max).Scan(&state.Remaining, &state.Locked, &state.JustLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goGate.AttemptState{}, ErrUnknownUser
		}
		return goGate.AttemptState{}, fmt.Errorf("decrement attempts: %w", err)
	}
	return state, nil
}

func (s *AttemptStore) Reset(ctx context.Context, userID string, max int) (goGate.AttemptState, error) {
	var state goGate.AttemptState
	err := s.db.QueryRow(ctx, resetAttemptsSQL, userID, max).Scan(&state.Remaining, &state.Locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goGate.AttemptState{}, ErrUnknownUser
		}
		return goGate.AttemptState{}, fmt.Errorf("reset attempts: %w", err)
	}
	return state, nil
}

func (s *AttemptStore) Unlock(ctx context.Context, userID string, max int) error {
	tag, err := s.db.Exec(ctx, unlockAttemptsSQL, userID, max)
	if err != nil {
		return fmt.Errorf("unlock attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownUser
	}
	return nil
}
