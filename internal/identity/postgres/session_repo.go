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

// SessionRepository implements identity.SessionRepository using PostgreSQL.
// Only the token hash is stored.
type SessionRepository struct {
	pool Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Find retrieves a session by its ID. The returned Token is empty.
func (r *SessionRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM sessions WHERE id = $1
	`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_ID_FAILED").
			With("operation", "get session by id").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// FindByToken retrieves the session holding token.
func (r *SessionRepository) FindByToken(ctx context.Context, token string) (*identity.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM sessions WHERE token_hash = $1
	`, identity.HashToken(token))

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}
	session.Token = token
	return session, nil
}

// FindByUser retrieves all sessions for a user, newest first. Tokens are empty.
func (r *SessionRepository) FindByUser(ctx context.Context, userID ulid.ULID) ([]*identity.Session, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, created_at FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID.String())
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_USER_FAILED").
			With("operation", "get sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	sessions := make([]*identity.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, oops.Code("SESSION_SCAN_FAILED").
				With("operation", "scan session row").
				Wrap(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SESSION_ROWS_ERROR").
			With("operation", "iterate session rows").
			Wrap(err)
	}
	return sessions, nil
}

// Save stores a new session under the hash of its token.
func (r *SessionRepository) Save(ctx context.Context, session *identity.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		session.ID.String(),
		session.UserID.String(),
		identity.HashToken(session.Token),
		session.CreatedAt,
	)
	if isUniqueViolation(err) {
		return oops.Code("SESSION_DUPLICATE").
			With("id", session.ID.String()).
			Wrap(identity.ErrConflict)
	}
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes all sessions for a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM sessions WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	// No ErrNotFound when nothing was deleted; that is a valid state.
	return nil
}

// scanSession scans one session row. pgx.ErrNoRows is returned unchanged.
func scanSession(row pgx.Row) (*identity.Session, error) {
	var (
		idStr     string
		userIDStr string
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("user_id", userIDStr).
			Wrap(err)
	}
	return &identity.Session{ID: id, UserID: userID, CreatedAt: createdAt}, nil
}

// Compile-time interface check.
var _ identity.SessionRepository = (*SessionRepository)(nil)
