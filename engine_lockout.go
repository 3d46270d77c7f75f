package goGate

import (
	"context"
)

// LoginAttempts reports the attempt counter of username.
func (e *Engine) LoginAttempts(ctx context.Context, username string) (AttemptState, error) {
	if e == nil || e.guard == nil {
		return AttemptState{}, ErrEngineNotReady
	}
	if username == "" {
		return AttemptState{}, ErrMalformedRequest
	}
	user, err := e.userProvider.GetUserByUsername(ctx, username)
	if err != nil {
		if isProviderNotFound(err) {
			return AttemptState{}, ErrUserNotFound
		}
		return AttemptState{}, internalError("load user", err)
	}
	state, err := e.guard.State(ctx, user.UserID)
	if err != nil {
		return AttemptState{}, internalError("load attempt state", err)
	}
	return state, nil
}

// UnlockAccount clears the lock of userID and restores its attempt budget.
// It is the administrative counterpart of the unlock recovery flow.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) error {
	if e == nil || e.guard == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrMalformedRequest
	}
	state, err := e.guard.State(ctx, userID)
	if err != nil {
		return internalError("load attempt state", err)
	}
	if !state.Locked && state.Remaining > 0 {
		return ErrAccountNotLocked
	}
	if err := e.guard.Unlock(ctx, userID); err != nil {
		return internalError("unlock", err)
	}
	e.metricInc(MetricAccountUnlocked)
	e.emitAudit(ctx, auditEventAccountUnlocked, true, userID, "", nil, func() map[string]string {
		return map[string]string{"source": "admin"}
	})
	return nil
}
