package goGate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func nextEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

func auditEngine(t *testing.T, sink AuditSink) *engineFixture {
	t.Helper()
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	return newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
}

func TestAuditLoginEvents(t *testing.T) {
	sink := NewChannelSink(64)
	f := auditEngine(t, sink)

	ctx := WithRequestID(WithClientIP(context.Background(), "203.0.113.7"), "req-1")
	res, err := f.engine.Login(ctx, "", "bob", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	ev := nextEvent(t, sink, "login_success")
	if !ev.Success || ev.UserID != "u2" || ev.Profile != "seller" {
		t.Fatalf("unexpected success event %+v", ev)
	}
	if ev.Client != "203.0.113.7" || ev.Metadata["request_id"] != "req-1" {
		t.Fatalf("missing request context in %+v", ev)
	}
	if ev.SessionID == "" || ev.SessionID == res.SessionID {
		t.Fatal("audit must carry a session reference, never the raw id")
	}

	_, _ = f.engine.Login(context.Background(), "", "bob", "wrong-pass")
	ev = nextEvent(t, sink, "login_failure")
	if ev.Success || ev.Error != "invalid_credentials" || ev.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("unexpected failure event %+v", ev)
	}
}

func TestAuditLockAndRecoveryEvents(t *testing.T) {
	sink := NewChannelSink(256)
	f := auditEngine(t, sink)
	ctx := context.Background()

	f.lock(t, "alice")
	ev := nextEvent(t, sink, "account_locked")
	if ev.UserID != "u1" {
		t.Fatalf("unexpected lock event %+v", ev)
	}

	sid, err := f.engine.StartUnlock(ctx, "", "alice")
	if err != nil {
		t.Fatalf("StartUnlock: %v", err)
	}
	ev = nextEvent(t, sink, "recovery_started")
	if ev.Metadata["mode"] != RecoveryUnlock.String() {
		t.Fatalf("unexpected start event %+v", ev)
	}

	if _, err := f.engine.LoadQuestions(ctx, sid); err != nil {
		t.Fatalf("LoadQuestions: %v", err)
	}
	if _, err := f.engine.SubmitAnswers(ctx, sid, []string{"x", "y"}); !errors.Is(err, ErrAnswersIncorrect) {
		t.Fatalf("expected ErrAnswersIncorrect, got %v", err)
	}
	ev = nextEvent(t, sink, "recovery_answers")
	if ev.Success || ev.Error != "answers_incorrect" {
		t.Fatalf("unexpected answers event %+v", ev)
	}
}

func TestAuditInvokeEvent(t *testing.T) {
	sink := NewChannelSink(64)
	f := auditEngine(t, sink)
	res := f.login(t, "bob")

	req := InvokeRequest{Area: "admin", Object: "users", Method: "purge"}
	if _, err := f.engine.Invoke(context.Background(), res.SessionID, req); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	ev := nextEvent(t, sink, "operation_invoke")
	if ev.Success || ev.Error != "permission_denied" || ev.Profile != "seller" {
		t.Fatalf("unexpected invoke event %+v", ev)
	}
}

func TestJSONWriterSinkThroughEngine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	f := auditEngine(t, sink)

	f.login(t, "bob")
	f.engine.Close()

	line := strings.SplitN(strings.TrimSpace(buf.String()), "\n", 2)[0]
	var ev AuditEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("decode audit line %q: %v", line, err)
	}
	if ev.EventType != "login_success" {
		t.Fatalf("unexpected first event %+v", ev)
	}
}

func TestAuditErrorCode(t *testing.T) {
	cases := map[error]AuditErrorCode{
		nil:                      "",
		ErrInvalidCredentials:    "invalid_credentials",
		&CredentialsError{}:      "invalid_credentials",
		ErrLoginRateLimited:      "rate_limited",
		ErrNoQuestionsRegistered: "no_questions_registered",
		errors.New("boom"):       "internal_error",
		ErrSessionCreationFailed: "session_creation_error",
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
