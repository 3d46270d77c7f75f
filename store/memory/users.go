// Package memory provides an in-process goGate.UserProvider for development
// servers and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	goGate "github.com/MrEthical07/goGate"
)

type user struct {
	record    goGate.UserRecord
	profiles  map[string]struct{}
	questions []goGate.SecurityQuestion
	answers   map[string]string
}

// UserStore is a mutex-guarded map of users. The zero value is not usable; call
// [NewUserStore].
type UserStore struct {
	mu     sync.RWMutex
	byID   map[string]*user
	byName map[string]string
}

var _ goGate.UserProvider = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{
		byID:   make(map[string]*user),
		byName: make(map[string]string),
	}
}

// AddUser inserts or replaces rec together with its profiles.
func (s *UserStore) AddUser(rec goGate.UserRecord, profiles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &user{
		record:   rec,
		profiles: make(map[string]struct{}, len(profiles)),
		answers:  make(map[string]string),
	}
	for _, p := range profiles {
		u.profiles[p] = struct{}{}
	}
	if old, ok := s.byID[rec.UserID]; ok {
		delete(s.byName, old.record.Username)
	}
	s.byID[rec.UserID] = u
	s.byName[rec.Username] = rec.UserID
}

// AddQuestion registers a security question whose answer is already hashed.
func (s *UserStore) AddQuestion(userID string, q goGate.SecurityQuestion, answerHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return goGate.ErrProviderNotFound
	}
	u.questions = append(u.questions, q)
	u.answers[q.ID] = answerHash
	return nil
}

// RevokeProfile removes profile from the user.
func (s *UserStore) RevokeProfile(userID, profile string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[userID]; ok {
		delete(u.profiles, profile)
	}
}

func (s *UserStore) GetUserByUsername(_ context.Context, username string) (goGate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[username]
	if !ok {
		return goGate.UserRecord{}, goGate.ErrProviderNotFound
	}
	return s.byID[id].record, nil
}

func (s *UserStore) GetUserByID(_ context.Context, userID string) (goGate.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return goGate.UserRecord{}, goGate.ErrProviderNotFound
	}
	return u.record, nil
}

func (s *UserStore) UpdatePasswordHash(_ context.Context, userID, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[userID]
	if !ok {
		return goGate.ErrProviderNotFound
	}
	u.record.PasswordHash = newHash
	return nil
}

func (s *UserStore) GetSecurityQuestions(_ context.Context, userID string) ([]goGate.SecurityQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, goGate.ErrProviderNotFound
	}
	return append([]goGate.SecurityQuestion(nil), u.questions...), nil
}

func (s *UserStore) GetAnswerHashes(_ context.Context, userID string, questionIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, goGate.ErrProviderNotFound
	}
	out := make(map[string]string, len(questionIDs))
	for _, id := range questionIDs {
		if h, ok := u.answers[id]; ok {
			out[id] = h
		}
	}
	return out, nil
}

// GetProfiles returns the user's profiles in name order.
func (s *UserStore) GetProfiles(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return nil, goGate.ErrProviderNotFound
	}
	out := make([]string, 0, len(u.profiles))
	for p := range u.profiles {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (s *UserStore) UserHasProfile(_ context.Context, userID, profile string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return false, nil
	}
	_, has := u.profiles[profile]
	return has, nil
}
