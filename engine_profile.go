package goGate

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/session"
)

// Profiles lists the profiles available to the session's user.
func (e *Engine) Profiles(ctx context.Context, sessionID string) ([]string, error) {
	sess, err := e.requireAuthenticated(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), sess.AvailableProfiles...), nil
}

// SelectProfile binds profile to the session. A profile is selected at most
// once; it must be in the session's available set and still held by the user.
func (e *Engine) SelectProfile(ctx context.Context, sessionID, profile string) error {
	if profile == "" {
		return ErrMalformedRequest
	}
	sess, err := e.requireAuthenticated(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.HasProfile() {
		return ErrInvalidOperation
	}
	if !sess.CanUseProfile(profile) {
		return e.rejectProfile(ctx, sess, profile)
	}
	held, err := e.userProvider.UserHasProfile(ctx, sess.UserID, profile)
	if err != nil {
		return internalError("check profile", err)
	}
	if !held {
		return e.rejectProfile(ctx, sess, profile)
	}

	err = e.sessions.SetProfile(ctx, sessionID, profile)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrProfileAlreadySet), errors.Is(err, session.ErrInvalidOperation):
		return ErrInvalidOperation
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	default:
		return internalError("set profile", err)
	}

	e.metricInc(MetricProfileSelected)
	e.emitAudit(ctx, auditEventProfileSelected, true, sess.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{"profile": profile}
	})
	return nil
}

func (e *Engine) rejectProfile(ctx context.Context, sess *Session, profile string) error {
	e.metricInc(MetricProfileRejected)
	e.emitAudit(ctx, auditEventProfileSelected, false, sess.UserID, sess.SessionID, ErrProfileInvalid, func() map[string]string {
		return map[string]string{"profile": profile}
	})
	return ErrProfileInvalid
}

// Home returns the landing view for a session with a selected profile: the
// identity and every operation the profile may invoke.
func (e *Engine) Home(ctx context.Context, sessionID string) (*HomeInfo, error) {
	sess, err := e.requireAuthenticated(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasProfile() {
		return nil, ErrProfileRequired
	}
	return &HomeInfo{
		UserID:     sess.UserID,
		Username:   sess.Username,
		Email:      sess.Email,
		Profile:    sess.Profile,
		Operations: e.matrix.Grants(sess.Profile),
	}, nil
}
