// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Kind names an identity variant.
type Kind string

// Identity kinds.
const (
	KindAnonymous     Kind = "anonymous"
	KindAuthenticated Kind = "authenticated"
)

// Identity is the resolved caller: either *Anonymous or *Authenticated.
//
// The interface is sealed by an unexported method. Adding a third kind is a
// breaking change that must be reflected in Match and every consumer.
type Identity interface {
	// UserID returns the identifier shared with the caller's sessions.
	UserID() ulid.ULID

	// Kind reports which variant this is.
	Kind() Kind

	identity()
}

// Anonymous is a caller with no durable profile.
type Anonymous struct {
	ID        ulid.ULID
	CreatedAt time.Time
}

// NewAnonymous creates an anonymous identity for id.
func NewAnonymous(id ulid.ULID) (*Anonymous, error) {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("IDENTITY_INVALID_ID").Errorf("identity ID cannot be zero")
	}
	return &Anonymous{ID: id, CreatedAt: time.Now().UTC()}, nil
}

// UserID implements Identity.
func (a *Anonymous) UserID() ulid.ULID { return a.ID }

// Kind implements Identity.
func (a *Anonymous) Kind() Kind { return KindAnonymous }

func (a *Anonymous) identity() {}

// Authenticated is a caller with a registered profile.
type Authenticated struct {
	ID        ulid.ULID
	Name      Name
	Email     Email
	CreatedAt time.Time
}

// NewAuthenticated creates an authenticated identity for id.
func NewAuthenticated(id ulid.ULID, name Name, email Email) (*Authenticated, error) {
	if id.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("IDENTITY_INVALID_ID").Errorf("identity ID cannot be zero")
	}
	if name.IsZero() {
		return nil, oops.Code("IDENTITY_INVALID_NAME").Errorf("name is required")
	}
	if email == "" {
		return nil, oops.Code("IDENTITY_INVALID_EMAIL").Errorf("email is required")
	}
	return &Authenticated{ID: id, Name: name, Email: email, CreatedAt: time.Now().UTC()}, nil
}

// UserID implements Identity.
func (a *Authenticated) UserID() ulid.ULID { return a.ID }

// Kind implements Identity.
func (a *Authenticated) Kind() Kind { return KindAuthenticated }

func (a *Authenticated) identity() {}

// Match calls exactly one of the handlers depending on the variant of id.
// It panics on a nil identity.
func Match[T any](id Identity, onAnonymous func(*Anonymous) T, onAuthenticated func(*Authenticated) T) T {
	switch v := id.(type) {
	case *Anonymous:
		return onAnonymous(v)
	case *Authenticated:
		return onAuthenticated(v)
	default:
		panic("identity: unknown identity variant")
	}
}

// MaxNamePartLength is the rune limit for each part of a Name.
const MaxNamePartLength = 100

// Name is a person's first and last name.
type Name struct {
	First string
	Last  string
}

// NewName validates and trims a first and last name.
func NewName(first, last string) (Name, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)

	if first == "" {
		return Name{}, oops.Code("IDENTITY_INVALID_NAME").Errorf("first name cannot be empty")
	}
	if last == "" {
		return Name{}, oops.Code("IDENTITY_INVALID_NAME").Errorf("last name cannot be empty")
	}
	if utf8.RuneCountInString(first) > MaxNamePartLength || utf8.RuneCountInString(last) > MaxNamePartLength {
		return Name{}, oops.Code("IDENTITY_INVALID_NAME").
			With("max", MaxNamePartLength).
			Errorf("name parts must be at most %d characters", MaxNamePartLength)
	}
	return Name{First: first, Last: last}, nil
}

// IsZero reports whether the name is unset.
func (n Name) IsZero() bool { return n.First == "" && n.Last == "" }

func (n Name) String() string { return n.First + " " + n.Last }

// Email is a normalized (trimmed, lower-case) email address.
type Email string

// NewEmail parses and normalizes a bare email address.
// Display-name forms such as "Sarah <s@example.com>" are rejected.
func NewEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", oops.Code("IDENTITY_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return "", oops.Code("IDENTITY_INVALID_EMAIL").
			With("email", s).
			Errorf("invalid email address")
	}
	return Email(strings.ToLower(addr.Address)), nil
}

func (e Email) String() string { return string(e) }
