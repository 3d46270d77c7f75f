package middleware

import (
	"net"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/google/uuid"
)

// RequestIDHeader is read from and echoed to every request.
const RequestIDHeader = "X-Request-Id"

// RequestID propagates the caller's request id, minting one when absent, and
// attaches it and the client IP to the context.
func RequestID(trustForwarded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if reqID == "" || len(reqID) > 128 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := goGate.WithRequestID(r.Context(), reqID)
			ctx = goGate.WithClientIP(ctx, ClientIP(r, trustForwarded))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the caller address. X-Forwarded-For is honoured only when
// trustForwarded is set.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
