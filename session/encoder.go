package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	sessionFormatVersionCurrent = 1

	fieldVersion   = "v"
	fieldKind      = "kind"
	fieldUserID    = "uid"
	fieldUsername  = "user"
	fieldEmail     = "email"
	fieldProfile   = "profile"
	fieldProfiles  = "profiles"
	fieldMode      = "mode"
	fieldQuestions = "questions"
	fieldCreatedAt = "created"
	fieldExpiresAt = "expires"
)

// ErrCorrupt is returned when a stored hash cannot be decoded.
var ErrCorrupt = errors.New("session record corrupt")

// Encode flattens s into the field/value pairs stored in the session hash.
func Encode(s *Session) (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]any{
		fieldVersion:   sessionFormatVersionCurrent,
		fieldKind:      int(s.Kind),
		fieldUserID:    s.UserID,
		fieldUsername:  s.Username,
		fieldEmail:     s.Email,
		fieldProfile:   s.Profile,
		fieldCreatedAt: s.CreatedAt,
		fieldExpiresAt: s.ExpiresAt,
	}

	if len(s.AvailableProfiles) > 0 {
		raw, err := json.Marshal(s.AvailableProfiles)
		if err != nil {
			return nil, err
		}
		fields[fieldProfiles] = string(raw)
	}

	if s.Recovery != nil {
		fields[fieldMode] = int(s.Recovery.Mode)
		raw, err := EncodeQuestions(s.Recovery.Questions)
		if err != nil {
			return nil, err
		}
		fields[fieldQuestions] = raw
	}

	return fields, nil
}

// EncodeQuestions renders the questions field value.
func EncodeQuestions(questions []Question) (string, error) {
	if len(questions) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Decode rebuilds a session from the stored hash fields.
func Decode(fields map[string]string) (*Session, error) {
	version, err := strconv.Atoi(fields[fieldVersion])
	if err != nil || version < 1 || version > sessionFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrCorrupt, fields[fieldVersion])
	}

	kind, err := strconv.Atoi(fields[fieldKind])
	if err != nil {
		return nil, fmt.Errorf("%w: kind", ErrCorrupt)
	}

	s := &Session{
		Kind:     Kind(kind),
		UserID:   fields[fieldUserID],
		Username: fields[fieldUsername],
		Email:    fields[fieldEmail],
		Profile:  fields[fieldProfile],
	}

	if s.CreatedAt, err = parseInt64(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("%w: created", ErrCorrupt)
	}
	if s.ExpiresAt, err = parseInt64(fields[fieldExpiresAt]); err != nil {
		return nil, fmt.Errorf("%w: expires", ErrCorrupt)
	}

	if raw := fields[fieldProfiles]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.AvailableProfiles); err != nil {
			return nil, fmt.Errorf("%w: profiles", ErrCorrupt)
		}
	}

	if rawMode, ok := fields[fieldMode]; ok && rawMode != "" {
		mode, err := strconv.Atoi(rawMode)
		if err != nil {
			return nil, fmt.Errorf("%w: mode", ErrCorrupt)
		}
		s.Recovery = &Challenge{Mode: RecoveryMode(mode)}
		if raw := fields[fieldQuestions]; raw != "" {
			if err := json.Unmarshal([]byte(raw), &s.Recovery.Questions); err != nil {
				return nil, fmt.Errorf("%w: questions", ErrCorrupt)
			}
		}
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func parseInt64(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
