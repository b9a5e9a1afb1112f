// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Password length limits, in bytes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordCredential is the stored password hash for an authenticated user.
type PasswordCredential struct {
	UserID       ulid.ULID
	PasswordHash string
	UpdatedAt    time.Time
}

// NewPasswordCredential creates a validated PasswordCredential.
func NewPasswordCredential(userID ulid.ULID, passwordHash string) (*PasswordCredential, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("CREDENTIAL_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if passwordHash == "" {
		return nil, oops.Code("CREDENTIAL_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &PasswordCredential{
		UserID:       userID,
		PasswordHash: passwordHash,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// ValidatePassword checks a plaintext password against the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_WEAK_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}
