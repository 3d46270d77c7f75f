package middleware

import (
	"context"
	"net/http"
	"time"

	goGate "github.com/MrEthical07/goGate"
)

// DefaultCookieName carries the session id.
const DefaultCookieName = "gogate_sid"

type sessionContextKey struct{}
type sessionIDContextKey struct{}

// SessionFromContext returns the session resolved by [Sessions]. The session is
// nil when the cookie is absent or expired.
func SessionFromContext(ctx context.Context) (*goGate.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*goGate.Session)
	return sess, ok && sess != nil
}

// SessionIDFromContext returns the raw cookie value seen by [Sessions].
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDContextKey{}).(string)
	return id
}

// CookieOptions shapes the session cookie.
type CookieOptions struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return DefaultCookieName
	}
	return o.Name
}

func (o CookieOptions) path() string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

// SetSessionCookie writes the session cookie. A zero expires yields a browser
// session cookie.
func SetSessionCookie(w http.ResponseWriter, opts CookieOptions, sessionID string, expires time.Time) {
	c := &http.Cookie{
		Name:     opts.name(),
		Value:    sessionID,
		Path:     opts.path(),
		Domain:   opts.Domain,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.name(),
		Value:    "",
		Path:     opts.path(),
		Domain:   opts.Domain,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Sessions resolves the session cookie against engine. Resolution failures
// answer 500; a missing or stale session passes through with a nil session.
func Sessions(engine *goGate.Engine, opts CookieOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusServiceUnavailable, goGate.KindInternalError, "engine unavailable")
				return
			}

			sessionID := sessionIDFromRequest(r, opts.name())
			var sess *goGate.Session
			if sessionID != "" {
				resolved, err := engine.Resolve(r.Context(), sessionID)
				if err != nil {
					writeError(w, http.StatusInternalServerError, goGate.KindInternalError, "internal error")
					return
				}
				sess = resolved
			}

			ctx := context.WithValue(r.Context(), sessionIDContextKey{}, sessionID)
			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard admits only requests whose resolved session has the given kind. It
// must run after [Sessions].
func Guard(kind goGate.SessionKind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok || sess.Kind != kind {
				writeError(w, http.StatusUnauthorized, goGate.KindSessionNotFound, "session not found")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func sessionIDFromRequest(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
