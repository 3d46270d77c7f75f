package goGate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/internal"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/rate"
)

// Login verifies username and password and binds a new Authenticated session.
//
// sessionID is the caller's current session, if any: an Authenticated session
// fails with [ErrSessionAlreadyActive], a Recovery session is abandoned. A
// wrong password returns a [*CredentialsError] carrying the attempts left;
// the attempt that exhausts the budget returns [ErrAccountLocked]. When the
// user holds exactly one profile it is selected automatically.
func (e *Engine) Login(ctx context.Context, sessionID, username, password string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	result, err := flows.RunLogin(ctx, sessionID, username, password, e.flows.Login)
	if err != nil {
		return nil, err
	}
	sess := result.Session
	return &LoginResult{
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
		Username:  sess.Username,
		Profiles:  result.Profiles,
		Profile:   result.Profile,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0),
	}, nil
}

// checkClientRate applies the per-client throttle for action.
func (e *Engine) checkClientRate(ctx context.Context, action rate.Action, limited error) error {
	if e.rateLimiter == nil {
		return nil
	}
	client := clientIPFromContext(ctx)
	if client == "" {
		return nil
	}
	err := e.rateLimiter.Check(ctx, action, internal.HashClientValue(client))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return limited
	default:
		return internalError("client throttle", err)
	}
}
