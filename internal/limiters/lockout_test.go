package limiters

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T, max int) (*Guard, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewGuard(NewRedisAttemptStore(rdb, ""), LockoutConfig{MaxAttempts: max}), mr
}

func TestGuard_FreshUserIsAllowed(t *testing.T) {
	g, _ := newTestGuard(t, 3)

	if err := g.CheckAllowed(context.Background(), "u1"); err != nil {
		t.Fatalf("expected fresh user allowed, got %v", err)
	}
	state, err := g.State(context.Background(), "u1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Remaining != 3 || state.Locked {
		t.Fatalf("unexpected fresh state %+v", state)
	}
}

func TestGuard_ThresholdTriggersLockOnce(t *testing.T) {
	g, _ := newTestGuard(t, 3)
	ctx := context.Background()

	for i := 2; i >= 1; i-- {
		state, err := g.RecordFailure(ctx, "u1")
		if err != nil {
			t.Fatalf("failure %d: unexpected error %v", 3-i, err)
		}
		if state.Remaining != i || state.Locked {
			t.Fatalf("expected remaining=%d unlocked, got %+v", i, state)
		}
	}

	state, err := g.RecordFailure(ctx, "u1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked at zero, got %v", err)
	}
	if !state.JustLocked || !state.Locked || state.Remaining != 0 {
		t.Fatalf("expected transition to locked, got %+v", state)
	}

	state, err = g.RecordFailure(ctx, "u1")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked when already exhausted, got %v", err)
	}
	if state.JustLocked || state.Remaining != 0 {
		t.Fatalf("expected no second transition and floor at zero, got %+v", state)
	}

	if err := g.CheckAllowed(ctx, "u1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected CheckAllowed to fail, got %v", err)
	}
}

func TestGuard_SuccessRestoresBudget(t *testing.T) {
	g, _ := newTestGuard(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := g.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := g.RecordSuccess(ctx, "u1"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	state, _ := g.State(ctx, "u1")
	if state.Remaining != 5 {
		t.Fatalf("expected budget restored to 5, got %d", state.Remaining)
	}
}

func TestGuard_SuccessNeverClearsLock(t *testing.T) {
	g, _ := newTestGuard(t, 1)
	ctx := context.Background()

	if _, err := g.RecordFailure(ctx, "u1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected lock, got %v", err)
	}
	if err := g.RecordSuccess(ctx, "u1"); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected RecordSuccess to report lock, got %v", err)
	}
	state, _ := g.State(ctx, "u1")
	if !state.Locked || state.Remaining != 0 {
		t.Fatalf("expected lock untouched, got %+v", state)
	}
}

func TestGuard_UnlockRestoresAccess(t *testing.T) {
	g, _ := newTestGuard(t, 1)
	ctx := context.Background()

	_, _ = g.RecordFailure(ctx, "u1")
	if err := g.Unlock(ctx, "u1"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := g.CheckAllowed(ctx, "u1"); err != nil {
		t.Fatalf("expected allowed after unlock, got %v", err)
	}
}

func TestGuard_ConcurrentFailuresLockExactlyOnce(t *testing.T) {
	g, _ := newTestGuard(t, 5)
	ctx := context.Background()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, _ := g.RecordFailure(ctx, "u1")
			if state.JustLocked {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if transitions != 1 {
		t.Fatalf("expected exactly one lock transition, got %d", transitions)
	}
	state, _ := g.State(ctx, "u1")
	if state.Remaining != 0 || !state.Locked {
		t.Fatalf("expected floored locked counter, got %+v", state)
	}
}

func TestRedisAttemptStore_BackendDown(t *testing.T) {
	g, mr := newTestGuard(t, 3)
	mr.Close()

	if err := g.CheckAllowed(context.Background(), "u1"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("expected ErrLockoutUnavailable, got %v", err)
	}
}
