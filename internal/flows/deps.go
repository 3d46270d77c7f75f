package flows

import (
	"context"

	"github.com/MrEthical07/goGate/session"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Recovery RecoveryDeps
	Password PasswordDeps
}

// Observer carries the engine's metrics, audit and logging hooks.
type Observer struct {
	MetricInc func(id int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, err error, metadata func() map[string]string)
	Warn      func(msg string, err error)
}

func (o Observer) inc(id int) {
	if o.MetricInc != nil {
		o.MetricInc(id)
	}
}

func (o Observer) audit(ctx context.Context, event string, success bool, userID, sessionID string, err error, metadata func() map[string]string) {
	if o.EmitAudit != nil && event != "" {
		o.EmitAudit(ctx, event, success, userID, sessionID, err, metadata)
	}
}

func (o Observer) warn(msg string, err error) {
	if o.Warn != nil {
		o.Warn(msg, err)
	}
}

// SessionOps is the subset of the session manager the flows use.
type SessionOps struct {
	Resolve           func(ctx context.Context, sessionID string) (*session.Session, error)
	Create            func(ctx context.Context, kind session.Kind, payload session.Payload) (*session.Session, error)
	Destroy           func(ctx context.Context, sessionID string) error
	DestroyRecovery   func(ctx context.Context, sessionID string) error
	DestroyAllForUser func(ctx context.Context, userID string) error
	SetProfile        func(ctx context.Context, sessionID, profile string) error
	SetQuestions      func(ctx context.Context, sessionID string, questions []session.Question) error
}

// FlowUser is the flow-local user model.
type FlowUser struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
}

// clearStale abandons a Recovery session bound to sessionID and rejects an
// Authenticated one.
func clearStale(ctx context.Context, sessionID string, ops SessionOps, alreadyActive error, internal func(string, error) error) error {
	if sessionID == "" {
		return nil
	}
	current, err := ops.Resolve(ctx, sessionID)
	if err != nil {
		return internal("resolve session", err)
	}
	if current == nil {
		return nil
	}
	switch current.Kind {
	case session.KindAuthenticated:
		return alreadyActive
	case session.KindRecovery:
		if err := ops.Destroy(ctx, sessionID); err != nil {
			return internal("abandon recovery", err)
		}
	}
	return nil
}
