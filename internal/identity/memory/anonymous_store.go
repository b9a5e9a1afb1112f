// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
)

// AnonymousStore implements identity.AnonymousRepository in memory.
type AnonymousStore struct {
	mu   sync.RWMutex
	byID map[ulid.ULID]identity.Anonymous
}

// NewAnonymousStore creates an empty AnonymousStore.
func NewAnonymousStore() *AnonymousStore {
	return &AnonymousStore{byID: make(map[ulid.ULID]identity.Anonymous)}
}

// Find retrieves an anonymous identity by ID.
func (s *AnonymousStore) Find(_ context.Context, id ulid.ULID) (*identity.Anonymous, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	anon, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("ANONYMOUS_NOT_FOUND").With("id", id.String()).Wrap(identity.ErrNotFound)
	}
	return &anon, nil
}

// Save stores a new anonymous identity.
func (s *AnonymousStore) Save(_ context.Context, anon *identity.Anonymous) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[anon.ID]; exists {
		return oops.Code("ANONYMOUS_DUPLICATE").With("id", anon.ID.String()).Wrap(identity.ErrConflict)
	}
	s.byID[anon.ID] = *anon
	return nil
}

// Delete removes an anonymous identity.
func (s *AnonymousStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return oops.Code("ANONYMOUS_NOT_FOUND").With("id", id.String()).Wrap(identity.ErrNotFound)
	}
	delete(s.byID, id)
	return nil
}

// ListCreatedBefore returns up to limit identities created before cutoff
// that sort after the cursor, oldest first.
func (s *AnonymousStore) ListCreatedBefore(_ context.Context, cutoff time.Time, after identity.AnonymousCursor, limit int) ([]*identity.Anonymous, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*identity.Anonymous, 0)
	for _, anon := range s.byID {
		if anon.CreatedAt.Before(cutoff) && after.Precedes(&anon) {
			anon := anon
			out = append(out, &anon)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Compare(out[j].ID) < 0
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Compile-time interface check.
var _ identity.AnonymousRepository = (*AnonymousStore)(nil)
