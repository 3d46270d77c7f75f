package flows

import (
	"context"

	"github.com/MrEthical07/goGate/session"
)

// PasswordMetrics carries metric IDs needed by the password flows.
type PasswordMetrics struct {
	ChangeSuccess    int
	ChangeInvalidOld int
}

// PasswordEvents carries audit event names used by the password flows.
type PasswordEvents struct {
	ChangeSuccess string
	ChangeFailure string
}

// PasswordErrors carries host-level sentinel errors used by the password flows.
type PasswordErrors struct {
	EngineNotReady     error
	MalformedRequest   error
	SessionNotFound    error
	InvalidOperation   error
	InvalidCredentials error
	PasswordPolicy     error
	Internal           func(op string, err error) error
}

// PasswordDeps captures change-password dependencies.
type PasswordDeps struct {
	Sessions SessionOps

	GetUserByID    func(ctx context.Context, userID string) (FlowUser, error)
	VerifySecret   func(secret, hash string) (bool, error)
	HashSecret     func(secret string) (string, error)
	CheckPolicy    func(secret string) error
	UpdatePassword func(ctx context.Context, userID, hash string) error

	Observer Observer
	Metrics  PasswordMetrics
	Events   PasswordEvents
	Errors   PasswordErrors
}

// RunVerifyPassword checks current against the password of the session's user.
func RunVerifyPassword(ctx context.Context, sessionID, current string, deps PasswordDeps) (*session.Session, FlowUser, error) {
	if deps.Sessions.Resolve == nil || deps.GetUserByID == nil || deps.VerifySecret == nil {
		return nil, FlowUser{}, deps.Errors.EngineNotReady
	}
	if current == "" {
		return nil, FlowUser{}, deps.Errors.MalformedRequest
	}

	sess, err := deps.Sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, FlowUser{}, deps.Errors.Internal("resolve session", err)
	}
	if sess == nil {
		return nil, FlowUser{}, deps.Errors.SessionNotFound
	}
	if sess.Kind != session.KindAuthenticated {
		return nil, FlowUser{}, deps.Errors.InvalidOperation
	}

	user, err := deps.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return nil, FlowUser{}, deps.Errors.Internal("load user", err)
	}
	ok, err := deps.VerifySecret(current, user.PasswordHash)
	if err != nil {
		return nil, FlowUser{}, deps.Errors.Internal("verify password", err)
	}
	if !ok {
		deps.Observer.inc(deps.Metrics.ChangeInvalidOld)
		deps.Observer.audit(ctx, deps.Events.ChangeFailure, false, user.UserID, sessionID, deps.Errors.InvalidCredentials, nil)
		return nil, FlowUser{}, deps.Errors.InvalidCredentials
	}
	return sess, user, nil
}

// RunChangePassword replaces the password of the session's user and tears down
// every session of that user, including the caller's.
func RunChangePassword(ctx context.Context, sessionID, current, next string, deps PasswordDeps) error {
	if next == "" {
		return deps.Errors.MalformedRequest
	}
	_, user, err := RunVerifyPassword(ctx, sessionID, current, deps)
	if err != nil {
		return err
	}

	if deps.CheckPolicy != nil {
		if err := deps.CheckPolicy(next); err != nil {
			deps.Observer.audit(ctx, deps.Events.ChangeFailure, false, user.UserID, sessionID, deps.Errors.PasswordPolicy, nil)
			return deps.Errors.PasswordPolicy
		}
	}

	hash, err := deps.HashSecret(next)
	if err != nil {
		return deps.Errors.Internal("hash password", err)
	}
	if err := deps.UpdatePassword(ctx, user.UserID, hash); err != nil {
		return deps.Errors.Internal("update password", err)
	}
	if err := deps.Sessions.DestroyAllForUser(ctx, user.UserID); err != nil {
		return deps.Errors.Internal("destroy sessions", err)
	}

	deps.Observer.inc(deps.Metrics.ChangeSuccess)
	deps.Observer.audit(ctx, deps.Events.ChangeSuccess, true, user.UserID, sessionID, nil, nil)
	return nil
}
