// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/holomush/passport/internal/identity"
)

// SequenceIDs returns the given IDs in order, then zero IDs.
type SequenceIDs struct {
	mu  sync.Mutex
	ids []ulid.ULID
}

// NewSequenceIDs creates a SequenceIDs generator.
func NewSequenceIDs(ids ...ulid.ULID) *SequenceIDs {
	return &SequenceIDs{ids: ids}
}

// NewID implements identity.IDGenerator.
func (g *SequenceIDs) NewID() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return ulid.ULID{}
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id
}

// FixedToken returns the same token for every seed and records the seeds.
type FixedToken struct {
	mu    sync.Mutex
	Token string
	Seeds []ulid.ULID
}

// Generate implements identity.TokenGenerator.
func (g *FixedToken) Generate(seed ulid.ULID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Seeds = append(g.Seeds, seed)
	return g.Token
}

var (
	_ identity.IDGenerator    = (*SequenceIDs)(nil)
	_ identity.TokenGenerator = (*FixedToken)(nil)
)
