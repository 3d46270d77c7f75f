package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"go.uber.org/zap"
)

type errorBody struct {
	Error             goGate.ErrorKind `json:"error"`
	Message           string           `json:"message"`
	RemainingAttempts *int             `json:"remaining_attempts,omitempty"`
}

type kindStatus struct {
	status  int
	message string
}

var kindStatuses = map[goGate.ErrorKind]kindStatus{
	goGate.KindInvalidCredentials:    {http.StatusUnauthorized, "invalid username or password"},
	goGate.KindAccountLocked:         {http.StatusLocked, "account locked"},
	goGate.KindAccountNotLocked:      {http.StatusConflict, "account not locked"},
	goGate.KindUserNotFound:          {http.StatusNotFound, "user not found"},
	goGate.KindSessionAlreadyActive:  {http.StatusConflict, "session already active"},
	goGate.KindSessionNotFound:       {http.StatusUnauthorized, "session not found"},
	goGate.KindSessionCreationError:  {http.StatusInternalServerError, "session could not be created"},
	goGate.KindNoActiveChallenge:     {http.StatusConflict, "no active recovery challenge"},
	goGate.KindNoQuestionsRegistered: {http.StatusConflict, "not enough security questions registered"},
	goGate.KindAnswersIncorrect:      {http.StatusUnauthorized, "security answers incorrect"},
	goGate.KindRecoveryFailed:        {http.StatusBadGateway, "recovery could not be completed"},
	goGate.KindRateLimited:           {http.StatusTooManyRequests, "too many attempts"},
	goGate.KindProfileRequired:       {http.StatusConflict, "profile not selected"},
	goGate.KindProfileInvalid:        {http.StatusForbidden, "profile not available"},
	goGate.KindPasswordPolicy:        {http.StatusUnprocessableEntity, "password does not meet the length policy"},
	goGate.KindMalformedRequest:      {http.StatusBadRequest, "malformed request"},
	goGate.KindPermissionDenied:      {http.StatusForbidden, "permission denied"},
	goGate.KindOperationFailed:       {http.StatusBadGateway, "operation failed"},
	goGate.KindInvalidOperation:      {http.StatusConflict, "invalid operation"},
	goGate.KindInternalError:         {http.StatusInternalServerError, "internal error"},
}

// statusFor maps an engine error to its HTTP status and public message.
func statusFor(err error) (int, goGate.ErrorKind, string) {
	kind := goGate.KindOf(err)
	if ks, ok := kindStatuses[kind]; ok {
		return ks.status, kind, ks.message
	}
	return http.StatusInternalServerError, goGate.KindInternalError, "internal error"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, kind, message := statusFor(err)
	body := errorBody{Error: kind, Message: message}
	if remaining, ok := goGate.RemainingAttempts(err); ok {
		body.RemainingAttempts = &remaining
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Int("status", status),
		zap.String("kind", string(kind)),
		zap.String("request_id", goGate.RequestIDFromContext(r.Context())),
		zap.Error(err),
	}
	if status >= 500 {
		h.logger.Error("http operation failed", fields...)
	} else {
		h.logger.Debug("http operation rejected", fields...)
	}
	writeJSON(w, status, body)
}

var errTrailingData = errors.New("request body must contain a single JSON value")

// decodeBody reads exactly one JSON value into dst. Any decode failure is a
// malformed request.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", goGate.ErrMalformedRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", goGate.ErrMalformedRequest, errTrailingData)
	}
	return nil
}
