package goGate

import (
	"context"

	"github.com/MrEthical07/goGate/internal/flows"
)

// VerifyPassword checks current against the password of the session's user
// without changing anything. It is the first step of a password change.
func (e *Engine) VerifyPassword(ctx context.Context, sessionID, current string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	_, _, err := flows.RunVerifyPassword(ctx, sessionID, current, e.flows.Password)
	return err
}

// ChangePassword verifies current, applies the length policy to next, stores
// the new hash and logs the user out of every session, including this one.
func (e *Engine) ChangePassword(ctx context.Context, sessionID, current, next string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, sessionID, current, next, e.flows.Password)
}
