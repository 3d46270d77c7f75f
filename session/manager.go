package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/internal"
)

var (
	// ErrCreation is returned when a session cannot be minted.
	ErrCreation = errors.New("session creation failed")
	// ErrInvalidOperation is returned when an operation does not apply to the
	// session's kind.
	ErrInvalidOperation = errors.New("invalid session operation")
)

// ManagerConfig holds lifetime settings per session kind.
type ManagerConfig struct {
	// AbsoluteTTL bounds an Authenticated session regardless of activity.
	AbsoluteTTL time.Duration
	// RecoveryTTL bounds a Recovery session.
	RecoveryTTL time.Duration
}

// Payload carries the identity fields of a new session.
type Payload struct {
	UserID            string
	Username          string
	Email             string
	AvailableProfiles []string
	Mode              RecoveryMode
}

// Manager applies kind rules and lifetimes on top of a [Store].
type Manager struct {
	store  *Store
	config ManagerConfig
	now    func() time.Time
}

// NewManager creates a [Manager].
func NewManager(store *Store, cfg ManagerConfig) *Manager {
	return &Manager{store: store, config: cfg, now: time.Now}
}

// Store exposes the underlying store.
func (m *Manager) Store() *Store {
	return m.store
}

// Create mints a session of the given kind and returns it with its fresh ID.
// Every failure is reported as [ErrCreation].
func (m *Manager) Create(ctx context.Context, kind Kind, payload Payload) (*Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreation, err)
	}

	now := m.now()
	sess := &Session{
		SessionID: sid.String(),
		Kind:      kind,
		UserID:    payload.UserID,
		Username:  payload.Username,
		Email:     payload.Email,
		CreatedAt: now.Unix(),
	}

	var ttl time.Duration
	switch kind {
	case KindAuthenticated:
		sess.AvailableProfiles = append([]string(nil), payload.AvailableProfiles...)
		ttl = m.config.AbsoluteTTL
	case KindRecovery:
		sess.Recovery = &Challenge{Mode: payload.Mode}
		ttl = m.config.RecoveryTTL
	default:
		return nil, fmt.Errorf("%w: %w", ErrCreation, ErrInvalidOperation)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: non-positive ttl for %s session", ErrCreation, kind)
	}
	sess.ExpiresAt = now.Add(ttl).Unix()

	if err := m.store.Save(ctx, sess, ttl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreation, err)
	}
	return sess, nil
}

// Resolve returns the live session for sessionID, or nil when there is none.
// A corrupt record is dropped and treated as absent.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, nil
	}

	sess, err := m.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case errors.Is(err, ErrCorrupt):
		if delErr := m.store.Delete(ctx, sessionID); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	default:
		return nil, err
	}
}

// Exists reports whether any session is bound to sessionID.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return false, nil
	}
	return m.store.Exists(ctx, sessionID)
}

// Destroy tears down the session of any kind. Destroying nothing is a no-op.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// DestroyRecovery discards a Recovery session. It fails with
// [ErrInvalidOperation] when the session is of another kind and [ErrNotFound]
// when none exists.
func (m *Manager) DestroyRecovery(ctx context.Context, sessionID string) error {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return ErrNotFound
	}
	err := m.store.DeleteIfKind(ctx, sessionID, KindRecovery)
	if errors.Is(err, ErrKindMismatch) {
		return ErrInvalidOperation
	}
	return err
}

// DestroyAllForUser tears down every session indexed for userID.
func (m *Manager) DestroyAllForUser(ctx context.Context, userID string) error {
	return m.store.DeleteAllForUser(ctx, userID)
}

// SetProfile selects the profile of an Authenticated session exactly once.
func (m *Manager) SetProfile(ctx context.Context, sessionID, profile string) error {
	if profile == "" {
		return ErrInvalidOperation
	}
	err := m.store.SetProfile(ctx, sessionID, profile)
	if errors.Is(err, ErrKindMismatch) {
		return ErrInvalidOperation
	}
	return err
}

// SetQuestions binds the drawn question pair to a Recovery session.
func (m *Manager) SetQuestions(ctx context.Context, sessionID string, questions []Question) error {
	if len(questions) == 0 {
		return ErrInvalidOperation
	}
	err := m.store.SetQuestions(ctx, sessionID, questions)
	if errors.Is(err, ErrKindMismatch) {
		return ErrInvalidOperation
	}
	return err
}
