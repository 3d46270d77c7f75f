package httpapi

import (
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	promexport "github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Config shapes the HTTP surface.
type Config struct {
	Cookie         middleware.CookieOptions
	TrustForwarded bool
	RateLimit      middleware.RateLimitConfig
	// MaxBodyBytes caps JSON request bodies. Zero means 64 KiB.
	MaxBodyBytes int64
	// DisableMetrics removes GET /metrics.
	DisableMetrics bool
}

// Handler serves the session, recovery and dispatch routes.
type Handler struct {
	engine *goGate.Engine
	logger *zap.Logger
	cfg    Config
}

// NewRouter builds the chi router for engine.
func NewRouter(engine *goGate.Engine, logger *zap.Logger, cfg Config) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	cfg.RateLimit.TrustForwarded = cfg.TrustForwarded
	h := &Handler{engine: engine, logger: logger, cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID(cfg.TrustForwarded))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.AccessLog(logger))

	r.Get("/healthz", h.healthz)
	if !cfg.DisableMetrics {
		r.Method(http.MethodGet, "/metrics", promexport.NewExporter(engine).Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(middleware.NewClientLimiter(cfg.RateLimit)))
		r.Use(middleware.Sessions(engine, cfg.Cookie))

		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/process", h.process)

		r.Post("/recovery/forgot", h.startRecovery(goGate.RecoveryForgotPassword))
		r.Post("/recovery/unlock", h.startRecovery(goGate.RecoveryUnlock))
		r.Get("/recovery/questions", h.questions)
		r.Post("/recovery/answers", h.answers)
		r.Delete("/recovery", h.abandonRecovery)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(goGate.SessionAuthenticated))
			r.Get("/profiles", h.profiles)
			r.Post("/profiles", h.selectProfile)
			r.Get("/home", h.home)
			r.Post("/password/verify", h.verifyPassword)
			r.Post("/password", h.changePassword)
		})
	})

	return r
}
