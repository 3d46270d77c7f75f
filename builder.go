package goGate

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goGate/dispatch"
	internalaudit "github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/internal/rate"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	attemptStore AttemptStore
	mailer       Mailer
	logger       *zap.Logger
	auditSink    AuditSink

	operations *dispatch.Registry
	grants     []Grant

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config:     defaultConfig(),
		operations: dispatch.NewRegistry(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client for sessions, limiters and the default attempt store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAttemptStore replaces the Redis attempt store, e.g. with the Postgres one.
func (b *Builder) WithAttemptStore(store AttemptStore) *Builder {
	b.attemptStore = store
	return b
}

func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithOperations replaces the operation registry. It is frozen at Build.
func (b *Builder) WithOperations(registry *dispatch.Registry) *Builder {
	if registry != nil {
		b.operations = registry
	}
	return b
}

// RegisterOperation adds one operation to the registry.
func (b *Builder) RegisterOperation(op Operation) *Builder {
	b.operations.MustRegister(op)
	return b
}

// WithGrants appends profile grants.
func (b *Builder) WithGrants(grants []Grant) *Builder {
	b.grants = append(b.grants, grants...)
	return b
}

// WithRootProfiles marks profiles that may invoke every registered operation.
func (b *Builder) WithRootProfiles(profiles ...string) *Builder {
	b.config.Permission.RootProfiles = append(b.config.Permission.RootProfiles, profiles...)
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, freezes the registries and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- CREDENTIALS --------
	primary, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	var legacy *password.Argon2
	if cfg.Password.Legacy != nil {
		if legacy, err = password.NewArgon2(*cfg.Password.Legacy); err != nil {
			return nil, err
		}
	}
	verifier, err := password.NewVerifier(primary, legacy)
	if err != nil {
		return nil, err
	}

	// -------- PERMISSION REGISTRY --------
	registry, err := permission.NewRegistry(cfg.Permission.MaxBits, cfg.Permission.RootBitReserved)
	if err != nil {
		return nil, err
	}
	for _, key := range b.operations.Keys() {
		if _, err := registry.Register(key); err != nil {
			return nil, err
		}
	}
	registry.Freeze()
	b.operations.Freeze()

	// -------- PERMISSION MATRIX --------
	matrix := permission.NewMatrix(registry)
	for _, profile := range cfg.Permission.RootProfiles {
		if err := matrix.GrantRoot(profile); err != nil {
			return nil, err
		}
	}
	for _, g := range b.grants {
		if err := matrix.Grant(g.Profile, g.Key); err != nil {
			if cfg.Dispatch.StrictGrants {
				return nil, fmt.Errorf("grant %s to %q: %w", g.Key, g.Profile, err)
			}
			logger.Warn("skipping grant",
				zap.String("profile", g.Profile),
				zap.String("operation", g.Key.String()),
				zap.Error(err),
			)
		}
	}
	matrix.Freeze()

	// -------- SESSIONS & LIMITERS --------
	store := session.NewStore(b.redis, cfg.Session.RedisPrefix, cfg.Session.SlidingExpiration, cfg.Session.IdleTTL)
	manager := session.NewManager(store, session.ManagerConfig{
		AbsoluteTTL: cfg.Session.AbsoluteTTL,
		RecoveryTTL: cfg.Session.RecoveryTTL,
	})

	attempts := b.attemptStore
	if attempts == nil {
		attempts = limiters.NewRedisAttemptStore(b.redis, cfg.Lockout.KeyPrefix)
	}

	engine := &Engine{
		config:       cfg,
		logger:       logger,
		sessions:     manager,
		guard:        limiters.NewGuard(attempts, limiters.LockoutConfig{MaxAttempts: cfg.Lockout.MaxAttempts}),
		verifier:     verifier,
		userProvider: b.userProvider,
		mailer:       b.mailer,
		matrix:       matrix,
		operations:   b.operations,
		dispatcher:   dispatch.New(matrix, b.operations),
		metrics:      NewMetrics(cfg.Metrics),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:         cfg.Audit.Enabled,
			BufferSize:      cfg.Audit.BufferSize,
			DropIfFull:      cfg.Audit.DropIfFull,
			DeliveryTimeout: cfg.Audit.DeliveryTimeout,
		}, b.auditSink),
		recoveryLimiter: limiters.NewRecoveryLimiter(b.redis, limiters.RecoveryConfig{
			MaxAnswerAttempts: cfg.Recovery.MaxAnswerAttempts,
			AnswerWindow:      cfg.Recovery.AnswerWindow,
			KeyPrefix:         cfg.Recovery.KeyPrefix,
		}),
		rateLimiter: rate.New(b.redis, rate.Config{
			Enabled:     cfg.Security.EnableIPThrottle,
			MaxAttempts: cfg.Security.MaxAttemptsPerClient,
			Window:      cfg.Security.ThrottleWindow,
		}),
	}
	if b.mailer == nil {
		logger.Warn("no mailer configured; forgot-password recovery will fail")
	}
	engine.initFlowDeps()

	b.built = true
	return engine, nil
}
