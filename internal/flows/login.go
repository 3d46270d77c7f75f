package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Session  *session.Session
	Profiles []string
	Profile  string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginLocked      int
	LoginRateLimited int
	AccountLocked    int
	SessionCreated   int
	PasswordUpgraded int
	ProfileSelected  int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
	AccountLocked    string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady        error
	MalformedRequest      error
	InvalidCredentials    error
	AccountLocked         error
	SessionAlreadyActive  error
	SessionCreationFailed error
	CredentialsError      func(remaining int) error
	Internal              func(op string, err error) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool

	Sessions SessionOps

	CheckClientRate   func(ctx context.Context) error
	GetUserByUsername func(ctx context.Context, username string) (FlowUser, error)
	IsNotFound        func(error) bool
	GetProfiles       func(ctx context.Context, userID string) ([]string, error)
	UpdatePassword    func(ctx context.Context, userID, hash string) error

	CheckAllowed  func(ctx context.Context, userID string) error
	RecordFailure func(ctx context.Context, userID string) (limiters.AttemptState, error)
	RecordSuccess func(ctx context.Context, userID string) error

	VerifyPassword       func(secret, hash string) (bool, error)
	PasswordNeedsUpgrade func(hash string) (bool, error)
	HashPassword         func(secret string) (string, error)

	Observer Observer
	Metrics  LoginMetrics
	Events   LoginEvents
	Errors   LoginErrors
}

// RunLogin authenticates username/secret and mints an Authenticated session.
func RunLogin(ctx context.Context, sessionID, username, secret string, deps LoginDeps) (*LoginResult, error) {
	if deps.GetUserByUsername == nil || deps.VerifyPassword == nil || deps.Sessions.Create == nil {
		return nil, deps.Errors.EngineNotReady
	}
	obs := deps.Observer

	if err := clearStale(ctx, sessionID, deps.Sessions, deps.Errors.SessionAlreadyActive, deps.Errors.Internal); err != nil {
		return nil, err
	}
	if username == "" || secret == "" {
		return nil, deps.Errors.MalformedRequest
	}

	if deps.CheckClientRate != nil {
		if err := deps.CheckClientRate(ctx); err != nil {
			obs.inc(deps.Metrics.LoginRateLimited)
			obs.audit(ctx, deps.Events.LoginRateLimited, false, "", "", err, func() map[string]string {
				return map[string]string{"identifier": username}
			})
			return nil, err
		}
	}

	user, err := deps.GetUserByUsername(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && deps.IsNotFound(err) {
			obs.inc(deps.Metrics.LoginFailure)
			obs.audit(ctx, deps.Events.LoginFailure, false, "", "", deps.Errors.InvalidCredentials, func() map[string]string {
				return map[string]string{"identifier": username, "reason": "user_not_found"}
			})
			return nil, deps.Errors.InvalidCredentials
		}
		return nil, deps.Errors.Internal("load user", err)
	}

	if err := deps.CheckAllowed(ctx, user.UserID); err != nil {
		return nil, lockedOrInternal(ctx, user.UserID, err, deps)
	}

	ok, err := deps.VerifyPassword(secret, user.PasswordHash)
	if err != nil {
		return nil, deps.Errors.Internal("verify password", err)
	}
	if !ok {
		state, err := deps.RecordFailure(ctx, user.UserID)
		if err != nil {
			if limiters.IsLocked(err) && state.JustLocked {
				obs.inc(deps.Metrics.AccountLocked)
				obs.audit(ctx, deps.Events.AccountLocked, true, user.UserID, "", nil, nil)
			}
			return nil, lockedOrInternal(ctx, user.UserID, err, deps)
		}
		obs.inc(deps.Metrics.LoginFailure)
		obs.audit(ctx, deps.Events.LoginFailure, false, user.UserID, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": username,
				"reason":     "password_mismatch",
				"remaining":  fmt.Sprint(state.Remaining),
			}
		})
		return nil, deps.Errors.CredentialsError(state.Remaining)
	}

	if err := deps.RecordSuccess(ctx, user.UserID); err != nil {
		return nil, lockedOrInternal(ctx, user.UserID, err, deps)
	}

	if deps.PasswordUpgradeOnLogin {
		upgradePassword(ctx, user, secret, deps)
	}

	profiles, err := deps.GetProfiles(ctx, user.UserID)
	if err != nil {
		return nil, deps.Errors.Internal("load profiles", err)
	}

	sess, err := deps.Sessions.Create(ctx, session.KindAuthenticated, session.Payload{
		UserID:            user.UserID,
		Username:          user.Username,
		Email:             user.Email,
		AvailableProfiles: profiles,
	})
	if err != nil {
		obs.audit(ctx, deps.Events.LoginFailure, false, user.UserID, "", deps.Errors.SessionCreationFailed, func() map[string]string {
			return map[string]string{"identifier": username, "reason": "session_creation"}
		})
		return nil, fmt.Errorf("%w: %v", deps.Errors.SessionCreationFailed, err)
	}
	obs.inc(deps.Metrics.SessionCreated)

	result := &LoginResult{Session: sess, Profiles: profiles}
	if len(profiles) == 1 && deps.Sessions.SetProfile != nil {
		if err := deps.Sessions.SetProfile(ctx, sess.SessionID, profiles[0]); err != nil {
			obs.warn("auto profile selection failed", err)
		} else {
			sess.Profile = profiles[0]
			result.Profile = profiles[0]
			obs.inc(deps.Metrics.ProfileSelected)
		}
	}

	obs.inc(deps.Metrics.LoginSuccess)
	obs.audit(ctx, deps.Events.LoginSuccess, true, user.UserID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"identifier": username, "profile": result.Profile}
	})
	return result, nil
}

func lockedOrInternal(ctx context.Context, userID string, err error, deps LoginDeps) error {
	if errors.Is(err, limiters.ErrLocked) {
		deps.Observer.inc(deps.Metrics.LoginLocked)
		deps.Observer.audit(ctx, deps.Events.LoginFailure, false, userID, "", deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{"reason": "account_locked"}
		})
		return deps.Errors.AccountLocked
	}
	return deps.Errors.Internal("attempt guard", err)
}

// upgradePassword rehashes with the primary algorithm. Failures never block login.
func upgradePassword(ctx context.Context, user FlowUser, secret string, deps LoginDeps) {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePassword == nil {
		return
	}
	needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := deps.HashPassword(secret)
	if err != nil {
		deps.Observer.warn("password hash upgrade generation failed", err)
		return
	}
	if err := deps.UpdatePassword(ctx, user.UserID, upgraded); err != nil {
		deps.Observer.warn("password hash upgrade update failed", err)
		return
	}
	deps.Observer.inc(deps.Metrics.PasswordUpgraded)
}
