package goGate

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete engine configuration. Start from [DefaultConfig] and
// override fields; Build clones and validates it.
type Config struct {
	Session    SessionConfig
	Lockout    LockoutConfig
	Recovery   RecoveryConfig
	Password   PasswordConfig
	Permission PermissionConfig
	Dispatch   DispatchConfig
	Security   SecurityConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session storage and lifetimes.
type SessionConfig struct {
	RedisPrefix       string
	SlidingExpiration bool
	// IdleTTL is the sliding window for Authenticated sessions.
	IdleTTL time.Duration
	// AbsoluteTTL caps an Authenticated session regardless of activity.
	AbsoluteTTL time.Duration
	// RecoveryTTL caps a Recovery session.
	RecoveryTTL time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the per-user login attempt budget.
type LockoutConfig struct {
	MaxAttempts int
	// KeyPrefix is used by the Redis attempt store when no AttemptStore is supplied.
	KeyPrefix string
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig controls the security-question recovery flows.
type RecoveryConfig struct {
	// MaxAnswerAttempts per user per AnswerWindow. Zero disables the budget.
	MaxAnswerAttempts int
	AnswerWindow      time.Duration
	// NewSecretLength is the length of the generated password on forgot-password.
	NewSecretLength int
	MailSubject     string
	// MailBody formats the forgot-password mail; its single %s receives the
	// generated secret.
	MailBody string
	// KeyPrefix namespaces the answer budget counters in Redis.
	KeyPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls credential hashing and the length policy.
type PasswordConfig struct {
	BcryptCost     int
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
	// Legacy, when set, verifies argon2id hashes left by an older deployment.
	Legacy *password.Argon2Params
}

/*
====================================
PERMISSION CONFIG
====================================
*/

// PermissionConfig controls the permission registry.
type PermissionConfig struct {
	MaxBits         int
	RootBitReserved bool
	// RootProfiles are granted every registered operation.
	RootProfiles []string
}

/*
====================================
DISPATCH CONFIG
====================================
*/

// DispatchConfig controls operation dispatch.
type DispatchConfig struct {
	// StrictGrants fails Build when a grant names an unregistered operation.
	StrictGrants bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds per-client throttling for unauthenticated entry points.
type SecurityConfig struct {
	ProductionMode       bool
	EnableIPThrottle     bool
	MaxAttemptsPerClient int
	ThrottleWindow       time.Duration
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// DeliveryTimeout bounds each sink call; zero waits as long as the sink does.
	DeliveryTimeout time.Duration
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "gs",
			SlidingExpiration: true,
			IdleTTL:           30 * time.Minute,
			AbsoluteTTL:       12 * time.Hour,
			RecoveryTTL:       10 * time.Minute,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 5,
			KeyPrefix:   "gla",
		},
		Recovery: RecoveryConfig{
			MaxAnswerAttempts: 5,
			AnswerWindow:      15 * time.Minute,
			NewSecretLength:   12,
			MailSubject:       "Nueva contraseña",
			MailBody:          "Tu nueva contraseña es: %s",
			KeyPrefix:         "gra",
		},
		Password: PasswordConfig{
			BcryptCost:     bcrypt.DefaultCost,
			MinLength:      8,
			MaxLength:      20,
			UpgradeOnLogin: true,
		},
		Permission: PermissionConfig{
			MaxBits:         64,
			RootBitReserved: true,
		},
		Dispatch: DispatchConfig{
			StrictGrants: true,
		},
		Security: SecurityConfig{
			ProductionMode:       false,
			EnableIPThrottle:     false,
			MaxAttemptsPerClient: 20,
			ThrottleWindow:       time.Minute,
		},
		Audit: AuditConfig{
			Enabled:         false,
			BufferSize:      1024,
			DropIfFull:      true,
			DeliveryTimeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.Password.Legacy != nil {
		legacy := *cfg.Password.Legacy
		out.Password.Legacy = &legacy
	}
	if cfg.Permission.RootProfiles != nil {
		out.Permission.RootProfiles = append([]string(nil), cfg.Permission.RootProfiles...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// Session
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.AbsoluteTTL <= 0 {
		return errors.New("Session AbsoluteTTL must be > 0")
	}
	if c.Session.RecoveryTTL <= 0 {
		return errors.New("Session RecoveryTTL must be > 0")
	}
	if c.Session.SlidingExpiration {
		if c.Session.IdleTTL <= 0 {
			return errors.New("Session IdleTTL must be > 0 when SlidingExpiration is true")
		}
		if c.Session.IdleTTL > c.Session.AbsoluteTTL {
			return errors.New("Session IdleTTL must be <= AbsoluteTTL")
		}
	}

	// Lockout
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}

	// Recovery
	if c.Recovery.MaxAnswerAttempts < 0 {
		return errors.New("Recovery MaxAnswerAttempts must be >= 0")
	}
	if c.Recovery.MaxAnswerAttempts > 0 && c.Recovery.AnswerWindow <= 0 {
		return errors.New("Recovery AnswerWindow must be > 0 when MaxAnswerAttempts is set")
	}
	if strings.Count(c.Recovery.MailBody, "%") != 1 || strings.Count(c.Recovery.MailBody, "%s") != 1 {
		return errors.New("Recovery MailBody must contain exactly one %s and no other verbs")
	}
	if c.Recovery.KeyPrefix == "" {
		return errors.New("Recovery KeyPrefix must not be empty")
	}
	if c.Recovery.NewSecretLength < c.Password.MinLength || c.Recovery.NewSecretLength > c.Password.MaxLength {
		return errors.New("Recovery NewSecretLength must satisfy the password length bounds")
	}

	// Password
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost) {
		return errors.New("Password BcryptCost out of range")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.MaxLength > password.MaxSecretBytes {
		return errors.New("Password MaxLength must be <= 72")
	}

	// Permission
	switch c.Permission.MaxBits {
	case 64, 128, 256, 512:
	default:
		return errors.New("Permission MaxBits must be 64, 128, 256, or 512")
	}
	if len(c.Permission.RootProfiles) > 0 && !c.Permission.RootBitReserved {
		return errors.New("Permission RootProfiles require RootBitReserved")
	}

	// Security
	if c.Security.EnableIPThrottle {
		if c.Security.MaxAttemptsPerClient < 1 {
			return errors.New("Security MaxAttemptsPerClient must be >= 1 when EnableIPThrottle is true")
		}
		if c.Security.ThrottleWindow <= 0 {
			return errors.New("Security ThrottleWindow must be > 0 when EnableIPThrottle is true")
		}
	}
	if c.Security.ProductionMode && c.Password.BcryptCost != 0 && c.Password.BcryptCost < bcrypt.DefaultCost {
		return errors.New("Password BcryptCost must be >= 10 in ProductionMode")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.DeliveryTimeout < 0 {
		return errors.New("Audit DeliveryTimeout must be >= 0")
	}

	return nil
}
