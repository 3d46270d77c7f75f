package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/MrEthical07/goGate/store/memory"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-pass"

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject+"|"+body)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fixture struct {
	server *httptest.Server
	mailer *recordingMailer
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := memory.NewUserStore()
	users.AddUser(goGate.UserRecord{UserID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: mustHash(t, testPassword)}, "admin", "seller")
	users.AddUser(goGate.UserRecord{UserID: "u2", Username: "bob", Email: "bob@example.com", PasswordHash: mustHash(t, testPassword)}, "seller")
	for i := 1; i <= 2; i++ {
		qid := fmt.Sprintf("q%d", i)
		require.NoError(t, users.AddQuestion("u1", goGate.SecurityQuestion{ID: qid, Text: "question " + qid}, mustHash(t, "answer "+qid)))
	}

	engineCfg := goGate.DefaultConfig()
	engineCfg.Password.BcryptCost = bcrypt.MinCost
	engineCfg.Lockout.MaxAttempts = 3
	engineCfg.Metrics.Enabled = true

	mailer := &recordingMailer{}
	engine, err := goGate.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithMailer(mailer).
		WithRootProfiles("admin").
		RegisterOperation(goGate.Operation{
			Area: "sales", Object: "orders", Method: "list",
			Handler: func(context.Context, []any) (any, error) { return []string{"o1", "o2"}, nil },
		}).
		RegisterOperation(goGate.Operation{
			Area: "admin", Object: "users", Method: "purge",
			Handler: func(context.Context, []any) (any, error) { return nil, errors.New("db down") },
		}).
		WithGrants([]goGate.Grant{{Profile: "seller", Key: goGate.OperationKey{Area: "sales", Object: "orders", Method: "list"}}}).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(NewRouter(engine, zaptest.NewLogger(t), cfg))
	t.Cleanup(srv.Close)
	return &fixture{server: srv, mailer: mailer}
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (f *fixture) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: f.server.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, rdr)
	require.NoError(c.t, err)
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c *client) login(user string) {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: user, Password: testPassword})
	require.Equal(c.t, http.StatusOK, status, body)
}

func TestLoginProfileHomeLogout(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)

	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: "alice", Password: testPassword})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "u1", body["user_id"])
	assert.ElementsMatch(t, []any{"admin", "seller"}, body["profiles"])
	assert.NotContains(t, body, "profile")

	status, body = c.do(http.MethodGet, "/home", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(goGate.KindProfileRequired), body["error"])

	status, _ = c.do(http.MethodPost, "/profiles", map[string]string{"profile": "seller"})
	require.Equal(t, http.StatusNoContent, status)

	status, body = c.do(http.MethodGet, "/home", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "seller", body["profile"])
	assert.Equal(t, []any{"sales.orders.list"}, body["operations"])

	status, body = c.do(http.MethodPost, "/process", map[string]any{"area": "sales", "object": "orders", "method": "list"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"o1", "o2"}, body["result"])

	status, _ = c.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = c.do(http.MethodGet, "/home", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(goGate.KindSessionNotFound), body["error"])
}

func TestLoginFailureCarriesRemainingAttempts(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)

	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: "alice", Password: "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(goGate.KindInvalidCredentials), body["error"])
	assert.EqualValues(t, 2, body["remaining_attempts"])

	c.do(http.MethodPost, "/login", credentialsRequest{Username: "alice", Password: "wrong-pass"})
	status, body = c.do(http.MethodPost, "/login", credentialsRequest{Username: "alice", Password: "wrong-pass"})
	require.Equal(t, http.StatusLocked, status)
	assert.Equal(t, string(goGate.KindAccountLocked), body["error"])
}

func TestLoginTwiceIsRejected(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)
	c.login("bob")

	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: "bob", Password: testPassword})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(goGate.KindSessionAlreadyActive), body["error"])
}

func TestMalformedBodies(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)

	for _, raw := range []string{"{bad", `{"username":"alice","password":"x","extra":1}`, `{"username":"alice"} {}`} {
		status, body := c.do(http.MethodPost, "/login", raw)
		require.Equal(t, http.StatusBadRequest, status, raw)
		assert.Equal(t, string(goGate.KindMalformedRequest), body["error"])
	}

	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: "", Password: testPassword})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(goGate.KindMalformedRequest), body["error"])
}

func TestForgotPasswordOverHTTP(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)

	status, body := c.do(http.MethodPost, "/recovery/forgot", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "forgot_password", body["mode"])

	status, body = c.do(http.MethodGet, "/recovery/questions", nil)
	require.Equal(t, http.StatusOK, status)
	questions, ok := body["questions"].([]any)
	require.True(t, ok)
	require.Len(t, questions, 2)

	answers := make([]string, 0, len(questions))
	for _, q := range questions {
		answers = append(answers, strings.Replace(q.(string), "question", "answer", 1))
	}
	status, body = c.do(http.MethodPost, "/recovery/answers", map[string][]string{"answers": answers})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["notified"])
	assert.Equal(t, 1, f.mailer.count())

	status, body = c.do(http.MethodGet, "/recovery/questions", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(goGate.KindNoActiveChallenge), body["error"])

	status, _ = c.do(http.MethodPost, "/login", credentialsRequest{Username: "alice", Password: testPassword})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRecoveryAbandonAndUnknownUser(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)

	status, body := c.do(http.MethodPost, "/recovery/unlock", map[string]string{"username": "ghost"})
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(goGate.KindUserNotFound), body["error"])

	status, body = c.do(http.MethodPost, "/recovery/unlock", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(goGate.KindAccountNotLocked), body["error"])

	status, _ = c.do(http.MethodPost, "/recovery/forgot", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = c.do(http.MethodDelete, "/recovery", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = c.do(http.MethodDelete, "/recovery", nil)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(goGate.KindNoActiveChallenge), body["error"])
}

func TestProcessErrorsDoNotLeak(t *testing.T) {
	f := newFixture(t, Config{})

	bob := f.client(t)
	bob.login("bob")
	status, body := bob.do(http.MethodPost, "/process", map[string]any{"area": "admin", "object": "users", "method": "purge"})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, string(goGate.KindPermissionDenied), body["error"])

	alice := f.client(t)
	alice.login("alice")
	status, _ = alice.do(http.MethodPost, "/profiles", map[string]string{"profile": "admin"})
	require.Equal(t, http.StatusNoContent, status)
	status, body = alice.do(http.MethodPost, "/process", map[string]any{"area": "admin", "object": "users", "method": "purge"})
	require.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, string(goGate.KindOperationFailed), body["error"])
	assert.NotContains(t, body["message"], "db down")
}

func TestChangePasswordClearsCookie(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)
	c.login("bob")

	status, _ := c.do(http.MethodPost, "/password/verify", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusNoContent, status)

	status, body := c.do(http.MethodPost, "/password", map[string]string{"current": testPassword, "new": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(goGate.KindPasswordPolicy), body["error"])

	status, _ = c.do(http.MethodPost, "/password", map[string]string{"current": testPassword, "new": "brand-new-pass"})
	require.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, "/profiles", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodPost, "/login", credentialsRequest{Username: "bob", Password: "brand-new-pass"})
	require.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, Config{})
	c := f.client(t)
	c.login("bob")

	status, body := c.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "gogate_login_success_total 1")
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
}

func TestRateLimitedClient(t *testing.T) {
	f := newFixture(t, Config{RateLimit: middleware.RateLimitConfig{PerSecond: 0.001, Burst: 1}})
	c := f.client(t)

	status, _ := c.do(http.MethodPost, "/login", credentialsRequest{Username: "bob", Password: "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, status)
	status, body := c.do(http.MethodPost, "/login", credentialsRequest{Username: "bob", Password: testPassword})
	require.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, string(goGate.KindRateLimited), body["error"])
}

func TestStatusForHidesInternals(t *testing.T) {
	status, kind, msg := statusFor(fmt.Errorf("%w: redis: connection refused", goGate.ErrInternal))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, goGate.KindInternalError, kind)
	assert.Equal(t, "internal error", msg)

	status, kind, _ = statusFor(&goGate.CredentialsError{Remaining: 1})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, goGate.KindInvalidCredentials, kind)

	for k := range kindStatuses {
		assert.NotEqual(t, goGate.KindNone, k)
	}
}
