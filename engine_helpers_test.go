package goGate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-pass"

type testUser struct {
	record    UserRecord
	questions []SecurityQuestion
	answers   map[string]string
	profiles  []string
}

type testUserProvider struct {
	mu         sync.Mutex
	byName     map[string]*testUser
	byID       map[string]*testUser
	updates    int
	failUpdate error
}

func newTestUserProvider(t *testing.T) *testUserProvider {
	t.Helper()
	up := &testUserProvider{
		byName: map[string]*testUser{},
		byID:   map[string]*testUser{},
	}
	up.add(t, "u1", "alice", []string{"admin", "seller"}, 3)
	up.add(t, "u2", "bob", []string{"seller"}, 2)
	up.add(t, "u3", "carol", nil, 1)
	return up
}

func (p *testUserProvider) add(t *testing.T, id, name string, profiles []string, questions int) {
	t.Helper()
	hash := mustBcrypt(t, testPassword)
	u := &testUser{
		record: UserRecord{
			UserID:       id,
			Username:     name,
			Email:        name + "@example.com",
			PasswordHash: hash,
		},
		answers:  map[string]string{},
		profiles: profiles,
	}
	for i := 0; i < questions; i++ {
		qid := fmt.Sprintf("q%d", i+1)
		u.questions = append(u.questions, SecurityQuestion{ID: qid, Text: "question " + qid})
		u.answers[qid] = mustBcrypt(t, "answer "+qid)
	}
	p.byName[name] = u
	p.byID[id] = u
}

func mustBcrypt(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func (p *testUserProvider) GetUserByUsername(_ context.Context, username string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byName[username]
	if !ok {
		return UserRecord{}, ErrProviderNotFound
	}
	return u.record, nil
}

func (p *testUserProvider) GetUserByID(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return UserRecord{}, ErrProviderNotFound
	}
	return u.record, nil
}

func (p *testUserProvider) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failUpdate != nil {
		return p.failUpdate
	}
	u, ok := p.byID[userID]
	if !ok {
		return ErrProviderNotFound
	}
	u.record.PasswordHash = newHash
	p.updates++
	return nil
}

func (p *testUserProvider) GetSecurityQuestions(_ context.Context, userID string) ([]SecurityQuestion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return append([]SecurityQuestion(nil), u.questions...), nil
}

func (p *testUserProvider) GetAnswerHashes(_ context.Context, userID string, questionIDs []string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return nil, ErrProviderNotFound
	}
	out := make(map[string]string, len(questionIDs))
	for _, id := range questionIDs {
		if h, ok := u.answers[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

func (p *testUserProvider) GetProfiles(_ context.Context, userID string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return append([]string(nil), u.profiles...), nil
}

func (p *testUserProvider) UserHasProfile(_ context.Context, userID, profile string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.byID[userID]
	if !ok {
		return false, nil
	}
	for _, candidate := range u.profiles {
		if candidate == profile {
			return true, nil
		}
	}
	return false, nil
}

func (p *testUserProvider) passwordHash(userID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.byID[userID].record.PasswordHash
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *recordingMailer) last() (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// secretFromMail extracts the generated password from a forgot-password mail.
func secretFromMail(body string) string {
	idx := strings.LastIndex(body, ": ")
	if idx < 0 {
		return ""
	}
	return body[idx+2:]
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Lockout.MaxAttempts = 3
	cfg.Metrics.Enabled = true
	return cfg
}

type engineFixture struct {
	engine *Engine
	redis  *miniredis.Miniredis
	users  *testUserProvider
	mailer *recordingMailer
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) *engineFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	up := newTestUserProvider(t)
	mailer := &recordingMailer{}

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithMailer(mailer).
		RegisterOperation(Operation{
			Area: "sales", Object: "orders", Method: "list",
			Handler: func(context.Context, []any) (any, error) { return []string{"o-1"}, nil },
		}).
		RegisterOperation(Operation{
			Area: "sales", Object: "orders", Method: "get", Params: []string{"id"},
			Handler: func(_ context.Context, params []any) (any, error) { return params[0], nil },
		}).
		RegisterOperation(Operation{
			Area: "admin", Object: "users", Method: "purge",
			Handler: func(context.Context, []any) (any, error) { return nil, errors.New("db down") },
		}).
		WithGrants([]Grant{
			{Profile: "seller", Key: OperationKey{Area: "sales", Object: "orders", Method: "list"}},
			{Profile: "seller", Key: OperationKey{Area: "sales", Object: "orders", Method: "get"}},
		}).
		WithRootProfiles("admin")
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, redis: mr, users: up, mailer: mailer}
}

func (f *engineFixture) login(t *testing.T, username string) *LoginResult {
	t.Helper()
	res, err := f.engine.Login(context.Background(), "", username, testPassword)
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return res
}

func (f *engineFixture) lock(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < f.engine.config.Lockout.MaxAttempts; i++ {
		_, _ = f.engine.Login(ctx, "", username, "wrong-pass")
	}
	if _, err := f.engine.Login(ctx, "", username, testPassword); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected %s locked, got %v", username, err)
	}
}
