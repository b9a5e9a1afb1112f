// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TokenBytes is the amount of randomness in a generated token (64 hex chars).
const TokenBytes = 32

// IDGenerator supplies unique identifiers.
type IDGenerator interface {
	NewID() ulid.ULID
}

// TokenGenerator supplies opaque session tokens.
// The seed is the identifier the token is issued for; generators may ignore it.
type TokenGenerator interface {
	Generate(seed ulid.ULID) string
}

// ULIDGenerator generates monotonic ULIDs. It is safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a ULIDGenerator backed by crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID implements IDGenerator.
func (g *ULIDGenerator) NewID() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// RandomTokenGenerator produces hex-encoded random tokens.
type RandomTokenGenerator struct{}

// NewRandomTokenGenerator creates a RandomTokenGenerator.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{}
}

// Generate implements TokenGenerator. The seed is not used.
func (g *RandomTokenGenerator) Generate(_ ulid.ULID) string {
	b := make([]byte, TokenBytes)
	// crypto/rand.Read never returns an error; it aborts the program if the
	// system entropy source fails.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// Compile-time interface checks.
var (
	_ IDGenerator    = (*ULIDGenerator)(nil)
	_ TokenGenerator = (*RandomTokenGenerator)(nil)
)
