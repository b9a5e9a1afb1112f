// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/passport/internal/identity"
)

// CredentialRepository implements identity.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	pool Pool
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(pool Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// Save stores or replaces the credential for cred.UserID.
func (r *CredentialRepository) Save(ctx context.Context, cred *identity.PasswordCredential) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at
	`, cred.UserID.String(), cred.PasswordHash, cred.UpdatedAt)
	if err != nil {
		return oops.Code("CREDENTIAL_SAVE_FAILED").
			With("operation", "upsert password credential").
			With("user_id", cred.UserID.String()).
			Wrap(err)
	}
	return nil
}

// FindByUser retrieves the credential for a user.
func (r *CredentialRepository) FindByUser(ctx context.Context, userID ulid.ULID) (*identity.PasswordCredential, error) {
	var (
		hash      string
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT password_hash, updated_at FROM password_credentials WHERE user_id = $1
	`, userID.String()).Scan(&hash, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("operation", "get password credential").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return &identity.PasswordCredential{UserID: userID, PasswordHash: hash, UpdatedAt: updatedAt}, nil
}

// Delete removes the credential for a user. A missing credential is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM password_credentials WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("CREDENTIAL_DELETE_FAILED").
			With("operation", "delete password credential").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ identity.CredentialRepository = (*CredentialRepository)(nil)
