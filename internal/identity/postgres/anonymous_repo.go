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

// AnonymousRepository implements identity.AnonymousRepository using PostgreSQL.
type AnonymousRepository struct {
	pool Pool
}

// NewAnonymousRepository creates a new AnonymousRepository.
func NewAnonymousRepository(pool Pool) *AnonymousRepository {
	return &AnonymousRepository{pool: pool}
}

// Find retrieves an anonymous identity by ID.
func (r *AnonymousRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Anonymous, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM anonymous_identities WHERE id = $1
	`, id.String()).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ANONYMOUS_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ANONYMOUS_GET_FAILED").
			With("operation", "get anonymous identity").
			With("id", id.String()).
			Wrap(err)
	}
	return &identity.Anonymous{ID: id, CreatedAt: createdAt}, nil
}

// Save stores a new anonymous identity.
func (r *AnonymousRepository) Save(ctx context.Context, anon *identity.Anonymous) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO anonymous_identities (id, created_at) VALUES ($1, $2)
	`, anon.ID.String(), anon.CreatedAt)
	if isUniqueViolation(err) {
		return oops.Code("ANONYMOUS_DUPLICATE").
			With("id", anon.ID.String()).
			Wrap(identity.ErrConflict)
	}
	if err != nil {
		return oops.Code("ANONYMOUS_CREATE_FAILED").
			With("operation", "insert anonymous identity").
			With("id", anon.ID.String()).
			Wrap(err)
	}
	return nil
}

// Delete removes an anonymous identity.
func (r *AnonymousRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM anonymous_identities WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("ANONYMOUS_DELETE_FAILED").
			With("operation", "delete anonymous identity").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ANONYMOUS_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	return nil
}

// ListCreatedBefore returns up to limit identities created before cutoff
// that sort after the cursor, oldest first. A limit of zero or less returns
// all of them. A zero cursor compares below every stored row.
func (r *AnonymousRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time, after identity.AnonymousCursor, limit int) ([]*identity.Anonymous, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, `
			SELECT id, created_at FROM anonymous_identities
			WHERE created_at < $1 AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id
			LIMIT $4
		`, cutoff, after.CreatedAt, after.ID.String(), limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id, created_at FROM anonymous_identities
			WHERE created_at < $1 AND (created_at, id) > ($2, $3)
			ORDER BY created_at, id
		`, cutoff, after.CreatedAt, after.ID.String())
	}
	if err != nil {
		return nil, oops.Code("ANONYMOUS_LIST_FAILED").
			With("operation", "list anonymous identities").
			Wrap(err)
	}
	defer rows.Close()

	var out []*identity.Anonymous
	for rows.Next() {
		var (
			idStr     string
			createdAt time.Time
		)
		if err := rows.Scan(&idStr, &createdAt); err != nil {
			return nil, oops.Code("ANONYMOUS_SCAN_FAILED").
				With("operation", "scan anonymous identity row").
				Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("ANONYMOUS_INVALID_ID").
				With("id", idStr).
				Wrap(err)
		}
		out = append(out, &identity.Anonymous{ID: id, CreatedAt: createdAt})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ANONYMOUS_ROWS_ERROR").
			With("operation", "iterate anonymous identity rows").
			Wrap(err)
	}
	return out, nil
}

// Compile-time interface check.
var _ identity.AnonymousRepository = (*AnonymousRepository)(nil)
