package session

import "errors"

// Kind distinguishes the two live session shapes.
type Kind uint8

const (
	KindNone Kind = iota
	KindAuthenticated
	KindRecovery
)

func (k Kind) String() string {
	switch k {
	case KindAuthenticated:
		return "authenticated"
	case KindRecovery:
		return "recovery"
	default:
		return "none"
	}
}

// RecoveryMode selects the terminal action of a recovery challenge.
type RecoveryMode uint8

const (
	ModeForgotPassword RecoveryMode = iota + 1
	ModeUnlock
)

func (m RecoveryMode) String() string {
	switch m {
	case ModeForgotPassword:
		return "forgot_password"
	case ModeUnlock:
		return "unlock"
	default:
		return "unknown"
	}
}

// Question is the public half of a security question. Answer hashes are never
// placed on a session.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Challenge is the recovery state bound to a Recovery session. Questions is empty
// until the pair has been drawn.
type Challenge struct {
	Mode      RecoveryMode `json:"mode"`
	Questions []Question   `json:"questions,omitempty"`
}

// Issued reports whether questions have been selected for this challenge.
func (c *Challenge) Issued() bool {
	return c != nil && len(c.Questions) > 0
}

// Session is the server-side state bound to a session identifier.
type Session struct {
	SessionID string
	Kind      Kind

	UserID   string
	Username string
	Email    string

	// Profile is empty until selected and is set at most once.
	Profile           string
	AvailableProfiles []string

	Recovery *Challenge

	CreatedAt int64
	ExpiresAt int64
}

// HasProfile reports whether a profile has been selected.
func (s *Session) HasProfile() bool {
	return s != nil && s.Profile != ""
}

// CanUseProfile reports whether profile is in the session's available set.
func (s *Session) CanUseProfile(profile string) bool {
	for _, p := range s.AvailableProfiles {
		if p == profile {
			return true
		}
	}
	return false
}

// Validate enforces the shape rules of each kind.
func (s *Session) Validate() error {
	if s.UserID == "" {
		return errors.New("session user id is required")
	}
	switch s.Kind {
	case KindAuthenticated:
		if s.Recovery != nil {
			return errors.New("authenticated session cannot carry a recovery challenge")
		}
	case KindRecovery:
		if s.Profile != "" || len(s.AvailableProfiles) > 0 {
			return errors.New("recovery session cannot carry profiles")
		}
		if s.Recovery == nil {
			return errors.New("recovery session requires a challenge")
		}
		if s.Recovery.Mode != ModeForgotPassword && s.Recovery.Mode != ModeUnlock {
			return errors.New("recovery session has unknown mode")
		}
	default:
		return errors.New("session kind must be authenticated or recovery")
	}
	return nil
}
