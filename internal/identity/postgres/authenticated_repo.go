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

const selectAuthenticated = `
	SELECT id, first_name, last_name, email, created_at
	FROM authenticated_identities
`

// AuthenticatedRepository implements identity.AuthenticatedRepository using PostgreSQL.
type AuthenticatedRepository struct {
	pool Pool
}

// NewAuthenticatedRepository creates a new AuthenticatedRepository.
func NewAuthenticatedRepository(pool Pool) *AuthenticatedRepository {
	return &AuthenticatedRepository{pool: pool}
}

// Find retrieves an authenticated identity by ID.
func (r *AuthenticatedRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Authenticated, error) {
	row := r.pool.QueryRow(ctx, selectAuthenticated+`WHERE id = $1`, id.String())

	user, err := scanAuthenticated(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("AUTHENTICATED_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTHENTICATED_GET_FAILED").
			With("operation", "get authenticated identity").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// FindByEmail retrieves an authenticated identity by normalized email.
func (r *AuthenticatedRepository) FindByEmail(ctx context.Context, email identity.Email) (*identity.Authenticated, error) {
	row := r.pool.QueryRow(ctx, selectAuthenticated+`WHERE email = $1`, email.String())

	user, err := scanAuthenticated(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("AUTHENTICATED_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("AUTHENTICATED_GET_BY_EMAIL_FAILED").
			With("operation", "get authenticated identity by email").
			Wrap(err)
	}
	return user, nil
}

// Save stores a new authenticated identity.
func (r *AuthenticatedRepository) Save(ctx context.Context, user *identity.Authenticated) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authenticated_identities (id, first_name, last_name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Name.First,
		user.Name.Last,
		user.Email.String(),
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("AUTHENTICATED_DUPLICATE").
			With("id", user.ID.String()).
			Wrap(identity.ErrConflict)
	}
	if err != nil {
		return oops.Code("AUTHENTICATED_CREATE_FAILED").
			With("operation", "insert authenticated identity").
			With("id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// Delete removes an authenticated identity. Its credential goes with it.
func (r *AuthenticatedRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM authenticated_identities WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("AUTHENTICATED_DELETE_FAILED").
			With("operation", "delete authenticated identity").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("AUTHENTICATED_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	return nil
}

// scanAuthenticated scans a single row. Callers handle pgx.ErrNoRows.
func scanAuthenticated(row pgx.Row) (*identity.Authenticated, error) {
	var (
		idStr     string
		first     string
		last      string
		email     string
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &first, &last, &email, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.Code("AUTHENTICATED_SCAN_FAILED").
			With("operation", "scan authenticated identity").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("AUTHENTICATED_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return &identity.Authenticated{
		ID:        id,
		Name:      identity.Name{First: first, Last: last},
		Email:     identity.Email(email),
		CreatedAt: createdAt,
	}, nil
}

// Compile-time interface check.
var _ identity.AuthenticatedRepository = (*AuthenticatedRepository)(nil)
