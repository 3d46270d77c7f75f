package goGate

import (
	"context"

	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/session"
)

// StartForgotPassword opens a forgot-password Recovery session for username and
// returns its id. The account's lock state does not matter.
func (e *Engine) StartForgotPassword(ctx context.Context, sessionID, username string) (string, error) {
	return e.startRecovery(ctx, sessionID, username, session.ModeForgotPassword)
}

// StartUnlock opens an unlock Recovery session for username. The account must
// be locked.
func (e *Engine) StartUnlock(ctx context.Context, sessionID, username string) (string, error) {
	return e.startRecovery(ctx, sessionID, username, session.ModeUnlock)
}

func (e *Engine) startRecovery(ctx context.Context, sessionID, username string, mode session.RecoveryMode) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	sess, err := flows.RunStartRecovery(ctx, sessionID, username, mode, e.flows.Recovery)
	if err != nil {
		return "", err
	}
	return sess.SessionID, nil
}

// LoadQuestions returns the texts of the two questions of the challenge bound to
// sessionID, drawing them on first call.
func (e *Engine) LoadQuestions(ctx context.Context, sessionID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return flows.RunLoadQuestions(ctx, sessionID, e.flows.Recovery)
}

// SubmitAnswers checks the answers in question order. On success the Recovery
// session is consumed and the mode's action runs: a new mailed password for
// forgot-password, clearing the lock for unlock. Failures after the challenge
// is consumed report [ErrRecoveryFailed].
func (e *Engine) SubmitAnswers(ctx context.Context, sessionID string, answers []string) (*RecoveryResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	outcome, err := flows.RunSubmitAnswers(ctx, sessionID, answers, e.flows.Recovery)
	if err != nil {
		return nil, err
	}
	return &RecoveryResult{
		Mode:     outcome.Mode,
		UserID:   outcome.UserID,
		Notified: outcome.Notified,
	}, nil
}

// AbandonRecovery discards the Recovery session bound to sessionID.
func (e *Engine) AbandonRecovery(ctx context.Context, sessionID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunAbandonRecovery(ctx, sessionID, e.flows.Recovery)
}
