// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionRepository manages session persistence.
//
// Stores that keep only HashToken(token) return sessions with an empty Token
// from Find and FindByUser. FindByToken always returns the presented token.
type SessionRepository interface {
	// Find retrieves a session by its ID.
	// Returns ErrNotFound if no session has the given ID.
	Find(ctx context.Context, id ulid.ULID) (*Session, error)

	// FindByToken retrieves the session holding token.
	// Returns ErrNotFound if no live session matches.
	FindByToken(ctx context.Context, token string) (*Session, error)

	// FindByUser retrieves all sessions for a user, newest first.
	// Returns an empty slice, not ErrNotFound, when the user has none.
	FindByUser(ctx context.Context, userID ulid.ULID) ([]*Session, error)

	// Save stores a new session. Tokens must be unique among live sessions.
	Save(ctx context.Context, session *Session) error

	// DeleteByUser removes every session for a user.
	// Deleting zero sessions is not an error.
	DeleteByUser(ctx context.Context, userID ulid.ULID) error
}

// AnonymousRepository manages anonymous identity persistence.
type AnonymousRepository interface {
	// Find retrieves an anonymous identity by ID.
	// Returns ErrNotFound if it does not exist.
	Find(ctx context.Context, id ulid.ULID) (*Anonymous, error)

	// Save stores a new anonymous identity.
	// Returns ErrConflict if the ID is already taken.
	Save(ctx context.Context, anon *Anonymous) error

	// Delete removes an anonymous identity.
	// Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id ulid.ULID) error

	// ListCreatedBefore returns up to limit identities created before cutoff
	// that sort after the cursor, ordered by (CreatedAt, ID). A zero cursor
	// starts from the oldest identity; a limit of zero or less means no limit.
	ListCreatedBefore(ctx context.Context, cutoff time.Time, after AnonymousCursor, limit int) ([]*Anonymous, error)
}

// AnonymousCursor is a keyset position in the (CreatedAt, ID) ordering of
// anonymous identities.
type AnonymousCursor struct {
	CreatedAt time.Time
	ID        ulid.ULID
}

// CursorAfter returns the cursor positioned on anon.
func CursorAfter(anon *Anonymous) AnonymousCursor {
	return AnonymousCursor{CreatedAt: anon.CreatedAt, ID: anon.ID}
}

// IsZero reports whether the cursor is at the start.
func (c AnonymousCursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID.Compare(ulid.ULID{}) == 0
}

// Precedes reports whether anon sorts strictly after the cursor.
func (c AnonymousCursor) Precedes(anon *Anonymous) bool {
	if c.IsZero() {
		return true
	}
	if !anon.CreatedAt.Equal(c.CreatedAt) {
		return anon.CreatedAt.After(c.CreatedAt)
	}
	return anon.ID.Compare(c.ID) > 0
}

// AuthenticatedRepository manages authenticated identity persistence.
type AuthenticatedRepository interface {
	// Find retrieves an authenticated identity by ID.
	// Returns ErrNotFound if it does not exist; any other error is operational.
	Find(ctx context.Context, id ulid.ULID) (*Authenticated, error)

	// FindByEmail retrieves an authenticated identity by normalized email.
	// Returns ErrNotFound if no identity has the email.
	FindByEmail(ctx context.Context, email Email) (*Authenticated, error)

	// Save stores a new authenticated identity.
	// Returns ErrConflict if the ID or email is already taken.
	Save(ctx context.Context, user *Authenticated) error

	// Delete removes an authenticated identity.
	// Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id ulid.ULID) error
}

// CredentialRepository manages password credentials.
type CredentialRepository interface {
	// Save stores or replaces the credential for cred.UserID.
	Save(ctx context.Context, cred *PasswordCredential) error

	// FindByUser retrieves the credential for a user.
	// Returns ErrNotFound if the user has no password.
	FindByUser(ctx context.Context, userID ulid.ULID) (*PasswordCredential, error)

	// Delete removes the credential for a user.
	Delete(ctx context.Context, userID ulid.ULID) error
}
