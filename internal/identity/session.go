// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session binds a bearer token to a user identifier.
// Sessions are created once and never mutated; they are removed per user.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Token     string
	CreatedAt time.Time
}

// NewSession creates a validated Session.
func NewSession(id, userID ulid.ULID, token string) (*Session, error) {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ID").Errorf("session ID cannot be zero")
	}
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if token == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// HashToken computes the SHA256 hash of a session token.
// Storage adapters that must not keep plaintext tokens index sessions by this value.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
