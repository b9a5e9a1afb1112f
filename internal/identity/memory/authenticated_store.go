// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
)

// AuthenticatedStore implements identity.AuthenticatedRepository in memory.
type AuthenticatedStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]identity.Authenticated
	byEmail map[identity.Email]ulid.ULID
}

// NewAuthenticatedStore creates an empty AuthenticatedStore.
func NewAuthenticatedStore() *AuthenticatedStore {
	return &AuthenticatedStore{
		byID:    make(map[ulid.ULID]identity.Authenticated),
		byEmail: make(map[identity.Email]ulid.ULID),
	}
}

// Find retrieves an authenticated identity by ID.
func (s *AuthenticatedStore) Find(_ context.Context, id ulid.ULID) (*identity.Authenticated, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("AUTHENTICATED_NOT_FOUND").With("id", id.String()).Wrap(identity.ErrNotFound)
	}
	return &user, nil
}

// FindByEmail retrieves an authenticated identity by email.
func (s *AuthenticatedStore) FindByEmail(_ context.Context, email identity.Email) (*identity.Authenticated, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, oops.Code("AUTHENTICATED_NOT_FOUND").With("email", email.String()).Wrap(identity.ErrNotFound)
	}
	user := s.byID[id]
	return &user, nil
}

// Save stores a new authenticated identity.
func (s *AuthenticatedStore) Save(_ context.Context, user *identity.Authenticated) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[user.ID]; exists {
		return oops.Code("AUTHENTICATED_DUPLICATE").With("id", user.ID.String()).Wrap(identity.ErrConflict)
	}
	if _, exists := s.byEmail[user.Email]; exists {
		return oops.Code("AUTHENTICATED_DUPLICATE_EMAIL").With("email", user.Email.String()).Wrap(identity.ErrConflict)
	}
	s.byID[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

// Delete removes an authenticated identity.
func (s *AuthenticatedStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.byID[id]
	if !exists {
		return oops.Code("AUTHENTICATED_NOT_FOUND").With("id", id.String()).Wrap(identity.ErrNotFound)
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, id)
	return nil
}

// Compile-time interface check.
var _ identity.AuthenticatedRepository = (*AuthenticatedStore)(nil)
