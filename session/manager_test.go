package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newManagerTest(t testing.TB) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	store := NewStore(rdb, "gs", true, 30*time.Minute)
	return NewManager(store, ManagerConfig{AbsoluteTTL: 2 * time.Hour, RecoveryTTL: 10 * time.Minute}), mr
}

func authPayload() Payload {
	return Payload{
		UserID:            "u-1",
		Username:          "ana",
		Email:             "ana@example.com",
		AvailableProfiles: []string{"admin", "seller"},
	}
}

func TestCreateAndResolveAuthenticated(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, KindAuthenticated, authPayload())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.SessionID == "" || sess.Profile != "" {
		t.Fatalf("unexpected new session %+v", sess)
	}

	got, err := m.Resolve(ctx, sess.SessionID)
	if err != nil || got == nil {
		t.Fatalf("Resolve: sess=%v err=%v", got, err)
	}
	if got.Kind != KindAuthenticated || got.Username != "ana" || len(got.AvailableProfiles) != 2 {
		t.Fatalf("unexpected resolved session %+v", got)
	}
	if got.Recovery != nil {
		t.Fatal("authenticated session must not carry a challenge")
	}
}

func TestResolveUnknownReturnsNil(t *testing.T) {
	m, _ := newManagerTest(t)

	for _, sid := range []string{"", "garbage", "AAAAAAAAAAAAAAAAAAAAAA"} {
		got, err := m.Resolve(context.Background(), sid)
		if err != nil || got != nil {
			t.Fatalf("Resolve(%q) = %v, %v; want nil, nil", sid, got, err)
		}
	}
}

func TestSetProfileExactlyOnce(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	sess, _ := m.Create(ctx, KindAuthenticated, authPayload())
	if err := m.SetProfile(ctx, sess.SessionID, "admin"); err != nil {
		t.Fatalf("first SetProfile: %v", err)
	}
	if err := m.SetProfile(ctx, sess.SessionID, "seller"); !errors.Is(err, ErrProfileAlreadySet) {
		t.Fatalf("expected ErrProfileAlreadySet, got %v", err)
	}

	got, _ := m.Resolve(ctx, sess.SessionID)
	if got.Profile != "admin" {
		t.Fatalf("expected first profile kept, got %q", got.Profile)
	}
}

func TestRecoverySessionRules(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	sess, err := m.Create(ctx, KindRecovery, Payload{UserID: "u-1", Username: "ana", Mode: ModeUnlock})
	if err != nil {
		t.Fatalf("Create recovery: %v", err)
	}
	if err := m.SetProfile(ctx, sess.SessionID, "admin"); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected profile write refused on recovery session, got %v", err)
	}

	questions := []Question{{ID: "q1", Text: "first pet?"}, {ID: "q3", Text: "city?"}}
	if err := m.SetQuestions(ctx, sess.SessionID, questions); err != nil {
		t.Fatalf("SetQuestions: %v", err)
	}
	if err := m.SetQuestions(ctx, sess.SessionID, questions[:1]); !errors.Is(err, ErrChallengeIssued) {
		t.Fatalf("expected ErrChallengeIssued, got %v", err)
	}

	got, _ := m.Resolve(ctx, sess.SessionID)
	if got.Kind != KindRecovery || got.Recovery.Mode != ModeUnlock || !got.Recovery.Issued() {
		t.Fatalf("unexpected recovery session %+v", got)
	}
	if got.Recovery.Questions[1].ID != "q3" {
		t.Fatalf("question order not preserved: %+v", got.Recovery.Questions)
	}
}

func TestDestroyRecoveryOnlyAppliesToRecovery(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	auth, _ := m.Create(ctx, KindAuthenticated, authPayload())
	if err := m.DestroyRecovery(ctx, auth.SessionID); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if ok, _ := m.Exists(ctx, auth.SessionID); !ok {
		t.Fatal("authenticated session must survive DestroyRecovery")
	}

	rec, _ := m.Create(ctx, KindRecovery, Payload{UserID: "u-1", Mode: ModeForgotPassword})
	if err := m.DestroyRecovery(ctx, rec.SessionID); err != nil {
		t.Fatalf("DestroyRecovery: %v", err)
	}
	if err := m.DestroyRecovery(ctx, rec.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second destroy, got %v", err)
	}
}

func TestDestroyIsIdempotentAndClearsIndex(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	sess, _ := m.Create(ctx, KindAuthenticated, authPayload())
	if err := m.Destroy(ctx, sess.SessionID); err != nil {
		t.Fatalf("first Destroy: %v", err)
	}
	if err := m.Destroy(ctx, sess.SessionID); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
	ids, err := m.Store().ActiveSessionIDs(ctx, "u-1")
	if err != nil {
		t.Fatalf("ActiveSessionIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty index, got %v", ids)
	}
}

func TestDestroyAllForUser(t *testing.T) {
	m, _ := newManagerTest(t)
	ctx := context.Background()

	a, _ := m.Create(ctx, KindAuthenticated, authPayload())
	b, _ := m.Create(ctx, KindAuthenticated, authPayload())
	other, _ := m.Create(ctx, KindAuthenticated, Payload{UserID: "u-2"})

	if err := m.DestroyAllForUser(ctx, "u-1"); err != nil {
		t.Fatalf("DestroyAllForUser: %v", err)
	}
	for _, sid := range []string{a.SessionID, b.SessionID} {
		if ok, _ := m.Exists(ctx, sid); ok {
			t.Fatalf("session %s should be gone", sid)
		}
	}
	if ok, _ := m.Exists(ctx, other.SessionID); !ok {
		t.Fatal("other user's session must survive")
	}
}

func TestRecoverySessionExpires(t *testing.T) {
	m, mr := newManagerTest(t)
	ctx := context.Background()

	rec, _ := m.Create(ctx, KindRecovery, Payload{UserID: "u-1", Mode: ModeUnlock})
	mr.FastForward(11 * time.Minute)

	got, err := m.Resolve(ctx, rec.SessionID)
	if err != nil || got != nil {
		t.Fatalf("expected expired recovery session, got %v %v", got, err)
	}
}

func TestCorruptRecordIsDropped(t *testing.T) {
	m, mr := newManagerTest(t)
	ctx := context.Background()

	sess, _ := m.Create(ctx, KindAuthenticated, authPayload())
	mr.HSet("gs:"+sess.SessionID, "v", "99")

	got, err := m.Resolve(ctx, sess.SessionID)
	if err != nil || got != nil {
		t.Fatalf("expected corrupt record treated as absent, got %v %v", got, err)
	}
	if mr.Exists("gs:" + sess.SessionID) {
		t.Fatal("corrupt record should be deleted")
	}
}

func BenchmarkSessionResolve(b *testing.B) {
	m, _ := newManagerTest(b)
	ctx := context.Background()
	sess, err := m.Create(ctx, KindAuthenticated, authPayload())
	if err != nil {
		b.Fatalf("Create: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Resolve(ctx, sess.SessionID); err != nil {
			b.Fatalf("Resolve: %v", err)
		}
	}
}
