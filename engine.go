package goGate

import (
	"context"
	"errors"

	"github.com/MrEthical07/goGate/dispatch"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/flows"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/session"
	"go.uber.org/zap"
)

// Engine orchestrates login, profile selection, recovery and operation
// dispatch over server-side sessions. Build it with [New]; it is safe for
// concurrent use.
type Engine struct {
	config Config
	logger *zap.Logger

	sessions        *session.Manager
	guard           *limiters.Guard
	recoveryLimiter *limiters.RecoveryLimiter
	rateLimiter     *rate.Limiter
	verifier        *password.Verifier
	userProvider    UserProvider
	mailer          Mailer

	matrix     *permission.Matrix
	operations *dispatch.Registry
	dispatcher *dispatch.Dispatcher

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	flows flows.Deps
}

// Close flushes pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

// AuditDropped reports audit events discarded due to backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Matrix exposes the frozen permission matrix.
func (e *Engine) Matrix() *permission.Matrix {
	if e == nil {
		return nil
	}
	return e.matrix
}

// Ping reports whether the session backend is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if err := e.sessions.Store().Ping(ctx); err != nil {
		return internalError("ping", err)
	}
	return nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, err error) {
	if e == nil || e.logger == nil {
		return
	}
	e.logger.Warn(msg, zap.Error(err))
}

// Resolve returns the session bound to sessionID, or nil when there is none.
func (e *Engine) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	sess, err := e.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, internalError("resolve session", err)
	}
	return sess, nil
}

// Logout tears down the session of any kind bound to sessionID.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	sess, err := e.Resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}
	if err := e.sessions.Destroy(ctx, sessionID); err != nil {
		return internalError("destroy session", err)
	}
	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogout, true, sess.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{"kind": sess.Kind.String()}
	})
	return nil
}

// requireAuthenticated resolves an Authenticated session or fails with
// ErrSessionNotFound.
func (e *Engine) requireAuthenticated(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := e.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Kind != session.KindAuthenticated {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func isProviderNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound)
}
