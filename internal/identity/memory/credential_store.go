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

// CredentialStore implements identity.CredentialRepository in memory.
type CredentialStore struct {
	mu     sync.RWMutex
	byUser map[ulid.ULID]identity.PasswordCredential
}

// NewCredentialStore creates an empty CredentialStore.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byUser: make(map[ulid.ULID]identity.PasswordCredential)}
}

// Save stores or replaces a credential.
func (s *CredentialStore) Save(_ context.Context, cred *identity.PasswordCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[cred.UserID] = *cred
	return nil
}

// FindByUser retrieves the credential for a user.
func (s *CredentialStore) FindByUser(_ context.Context, userID ulid.ULID) (*identity.PasswordCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byUser[userID]
	if !ok {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").With("user_id", userID.String()).Wrap(identity.ErrNotFound)
	}
	return &cred, nil
}

// Delete removes the credential for a user.
func (s *CredentialStore) Delete(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
	return nil
}

// Compile-time interface check.
var _ identity.CredentialRepository = (*CredentialStore)(nil)
