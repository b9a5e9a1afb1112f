// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
)

// SessionStore implements identity.SessionRepository in memory.
type SessionStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]identity.Session
	byToken map[string]ulid.ULID
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:    make(map[ulid.ULID]identity.Session),
		byToken: make(map[string]ulid.ULID),
	}
}

// Find retrieves a session by its ID.
func (s *SessionStore) Find(_ context.Context, id ulid.ULID) (*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(identity.ErrNotFound)
	}
	return &session, nil
}

// FindByToken retrieves the session holding token.
func (s *SessionStore) FindByToken(_ context.Context, token string) (*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	session := s.byID[id]
	return &session, nil
}

// FindByUser retrieves all sessions for a user, newest first.
func (s *SessionStore) FindByUser(_ context.Context, userID ulid.ULID) ([]*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*identity.Session, 0)
	for _, session := range s.byID {
		if session.UserID == userID {
			session := session
			sessions = append(sessions, &session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ID.Compare(sessions[j].ID) > 0
	})
	return sessions, nil
}

// Save stores a new session.
func (s *SessionStore) Save(_ context.Context, session *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[session.ID]; exists {
		return oops.Code("SESSION_DUPLICATE").
			With("id", session.ID.String()).
			Wrap(identity.ErrConflict)
	}
	if _, exists := s.byToken[session.Token]; exists {
		return oops.Code("SESSION_DUPLICATE_TOKEN").Wrap(identity.ErrConflict)
	}
	s.byID[session.ID] = *session
	s.byToken[session.Token] = session.ID
	return nil
}

// DeleteByUser removes every session for a user.
func (s *SessionStore) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.byID {
		if session.UserID == userID {
			delete(s.byToken, session.Token)
			delete(s.byID, id)
		}
	}
	return nil
}

// Len returns the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Compile-time interface check.
var _ identity.SessionRepository = (*SessionStore)(nil)
