package goGate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/dispatch"
	"github.com/MrEthical07/goGate/session"
	"go.uber.org/zap"
)

// Invoke runs an operation on behalf of the session's selected profile.
//
// Recovery sessions are refused with [ErrPermissionDenied]. Operations the
// profile may not call, registered or not, fail with [ErrPermissionDenied];
// handler failures match [ErrOperationFailed].
func (e *Engine) Invoke(ctx context.Context, sessionID string, req InvokeRequest) (any, error) {
	if e == nil || e.dispatcher == nil {
		return nil, ErrEngineNotReady
	}
	sess, err := e.Resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if sess.Kind != session.KindAuthenticated {
		e.metricInc(MetricInvokeDenied)
		return nil, ErrPermissionDenied
	}
	if !sess.HasProfile() {
		return nil, ErrProfileRequired
	}

	start := time.Now()
	result, err := e.dispatcher.Invoke(ctx, sess.Profile, req)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricInvokeLatency, time.Since(start))
	}

	key := req.Key().String()
	switch {
	case err == nil:
		e.metricInc(MetricInvokeSuccess)
	case errors.Is(err, dispatch.ErrPermissionDenied):
		e.metricInc(MetricInvokeDenied)
	case errors.Is(err, dispatch.ErrOperationFailed):
		e.metricInc(MetricInvokeFailure)
		if e.logger != nil {
			e.logger.Warn("operation failed", zap.String("operation", key), zap.Error(err))
		}
	}
	e.emitAudit(ctx, auditEventInvoke, err == nil, sess.UserID, sessionID, err, func() map[string]string {
		return map[string]string{"operation": key, "profile": sess.Profile}
	})
	return result, err
}

// Operations lists every registered operation key.
func (e *Engine) Operations() []OperationKey {
	if e == nil || e.operations == nil {
		return nil
	}
	return e.operations.Keys()
}
