package goGate

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goGate/dispatch"
	"github.com/MrEthical07/goGate/internal/limiters"
	"github.com/MrEthical07/goGate/permission"
	"github.com/MrEthical07/goGate/session"
)

// ErrProviderNotFound is returned by a [UserProvider] when a lookup matches nothing.
var ErrProviderNotFound = errors.New("provider: record not found")

// UserRecord is the account data the engine needs for authentication and recovery.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	PasswordHash string
}

// SecurityQuestion is one registered recovery question. The answer hash is
// fetched separately and never leaves the engine.
type SecurityQuestion struct {
	ID   string
	Text string
}

// UserProvider is the persistence boundary callers implement (see store/postgres
// and store/memory). Lookups that find nothing return an error matching
// [ErrProviderNotFound].
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
	GetSecurityQuestions(ctx context.Context, userID string) ([]SecurityQuestion, error)
	// GetAnswerHashes returns the stored answer hash per question id.
	GetAnswerHashes(ctx context.Context, userID string, questionIDs []string) (map[string]string, error)
	GetProfiles(ctx context.Context, userID string) ([]string, error)
	UserHasProfile(ctx context.Context, userID, profile string) (bool, error)
}

// Mailer delivers a plain-text message.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AttemptStore persists login attempt counters.
type AttemptStore = limiters.AttemptStore

// AttemptState is a snapshot of one user's login attempt counter.
type AttemptState = limiters.AttemptState

// Session is the resolved server-side session.
type Session = session.Session

// SessionKind distinguishes Authenticated from Recovery sessions.
type SessionKind = session.Kind

// RecoveryMode selects the terminal action of a recovery flow.
type RecoveryMode = session.RecoveryMode

const (
	SessionNone          = session.KindNone
	SessionAuthenticated = session.KindAuthenticated
	SessionRecovery      = session.KindRecovery

	RecoveryForgotPassword = session.ModeForgotPassword
	RecoveryUnlock         = session.ModeUnlock
)

// InvokeRequest names an operation and its positional arguments.
type InvokeRequest = dispatch.Request

// Operation binds an operation key to its handler.
type Operation = dispatch.Operation

// OperationKey is the (area, object, method) triple.
type OperationKey = permission.Key

// Grant allows a profile to invoke one operation.
type Grant = permission.Grant

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	SessionID string
	UserID    string
	Username  string
	Profiles  []string
	// Profile is set when the user has exactly one profile and it was selected
	// automatically.
	Profile   string
	ExpiresAt time.Time
}

// HomeInfo is the landing view of an Authenticated session with a profile.
type HomeInfo struct {
	UserID     string
	Username   string
	Email      string
	Profile    string
	Operations []OperationKey
}

// RecoveryResult reports a completed recovery flow.
type RecoveryResult struct {
	Mode   RecoveryMode
	UserID string
	// Notified is true when the new secret was mailed.
	Notified bool
}
