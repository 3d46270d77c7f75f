package goGate

import (
	"context"
	"time"

	"github.com/MrEthical07/goGate/internal"
)

const (
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventAccountLocked         = "account_locked"
	auditEventAccountUnlocked       = "account_unlocked"
	auditEventProfileSelected       = "profile_selected"
	auditEventLogout                = "logout"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventRecoveryStarted       = "recovery_started"
	auditEventRecoveryAnswers       = "recovery_answers"
	auditEventRecoveryCompleted     = "recovery_completed"
	auditEventRecoveryAbandoned     = "recovery_abandoned"
	auditEventInvoke                = "operation_invoke"
)

// AuditErrorCode is the stable error label written into audit events.
type AuditErrorCode string

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	switch kind := KindOf(err); kind {
	case KindInternalError:
		return "internal_error"
	default:
		return AuditErrorCode(toSnake(string(kind)))
	}
}

func toSnake(s string) string {
	out := make([]byte, 0, len(s)+4)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = requestID
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: auditSessionRef(sessionID),
		Client:    clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if profile, ok := metadata["profile"]; ok {
		event.Profile = profile
		delete(metadata, "profile")
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// auditSessionRef keeps raw session ids, which are bearer credentials, out of
// audit storage.
func auditSessionRef(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	return internal.HashClientValue(sessionID)
}
