package goGate

import (
	"context"
	"errors"
	"testing"
)

func TestLoginAttemptsReportsBudget(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := f.engine.LoginAttempts(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := f.engine.LoginAttempts(ctx, ""); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}

	_, _ = f.engine.Login(ctx, "", "bob", "wrong-pass")
	state, err := f.engine.LoginAttempts(ctx, "bob")
	if err != nil {
		t.Fatalf("LoginAttempts: %v", err)
	}
	if state.Remaining != 2 || state.Locked {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestUnlockAccount(t *testing.T) {
	f := newTestEngine(t, testConfig())
	ctx := context.Background()

	if err := f.engine.UnlockAccount(ctx, "u2"); !errors.Is(err, ErrAccountNotLocked) {
		t.Fatalf("expected ErrAccountNotLocked, got %v", err)
	}
	if err := f.engine.UnlockAccount(ctx, ""); !errors.Is(err, ErrMalformedRequest) {
		t.Fatalf("expected ErrMalformedRequest, got %v", err)
	}

	f.lock(t, "bob")
	if err := f.engine.UnlockAccount(ctx, "u2"); err != nil {
		t.Fatalf("UnlockAccount: %v", err)
	}

	state, err := f.engine.LoginAttempts(ctx, "bob")
	if err != nil {
		t.Fatalf("LoginAttempts: %v", err)
	}
	if state.Locked || state.Remaining != f.engine.config.Lockout.MaxAttempts {
		t.Fatalf("expected full budget after unlock, got %+v", state)
	}
	f.login(t, "bob")

	if got := f.engine.metrics.Value(MetricAccountUnlocked); got != 1 {
		t.Fatalf("expected one unlock metric, got %d", got)
	}
}
