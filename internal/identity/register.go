// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/passport/pkg/errutil"
)

// RegisterInput describes a password registration.
// UserID is usually the caller's current anonymous identifier.
type RegisterInput struct {
	UserID    ulid.ULID
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// RegistrationService promotes identifiers to authenticated accounts.
type RegistrationService struct {
	authenticated AuthenticatedRepository
	anonymous     AnonymousRepository
	credentials   CredentialRepository
	hasher        PasswordHasher
	logger        *slog.Logger
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(
	authenticated AuthenticatedRepository,
	anonymous AnonymousRepository,
	credentials CredentialRepository,
	hasher PasswordHasher,
	opts ...ServiceOption,
) (*RegistrationService, error) {
	if authenticated == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("authenticated repository is required")
	}
	if anonymous == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("anonymous repository is required")
	}
	if credentials == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("credentials repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RegistrationService{
		authenticated: authenticated,
		anonymous:     anonymous,
		credentials:   credentials,
		hasher:        hasher,
		logger:        o.logger,
	}, nil
}

// Register creates an authenticated identity with a password for in.UserID.
//
// If an anonymous identity with the same ID exists it is deleted afterwards,
// so the ID lives in exactly one store. Sessions issued to the anonymous
// identity remain valid and now resolve to the authenticated one.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (user *Authenticated, err error) {
	ctx, span := startSpan(ctx, "identity.Register")
	defer func() { endSpan(span, err) }()

	name, err := NewName(in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	email, err := NewEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err = ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	user, err = NewAuthenticated(in.UserID, name, email)
	if err != nil {
		return nil, err
	}

	if _, err = s.authenticated.FindByEmail(ctx, email); err == nil {
		return nil, oops.Code("AUTH_EMAIL_TAKEN").With("email", email.String()).Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "find identity by email").Wrap(err)
	}

	if _, err = s.authenticated.Find(ctx, in.UserID); err == nil {
		return nil, oops.Code("AUTH_ALREADY_REGISTERED").With("user_id", in.UserID.String()).Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "find identity by id").Wrap(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}
	cred, err := NewPasswordCredential(in.UserID, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create credential").Wrap(err)
	}

	if err = s.authenticated.Save(ctx, user); err != nil {
		code := "AUTH_REGISTER_FAILED"
		if errors.Is(err, ErrConflict) {
			code = "AUTH_REGISTER_CONFLICT"
		}
		return nil, oops.Code(code).
			With("operation", "persist authenticated identity").
			With("user_id", in.UserID.String()).
			Wrap(err)
	}

	if err = s.credentials.Save(ctx, cred); err != nil {
		// An account without a password can never log in; undo it.
		if delErr := s.authenticated.Delete(ctx, user.ID); delErr != nil {
			errutil.LogError(s.logger, "failed to remove account after credential failure", delErr)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "persist credential").
			With("user_id", in.UserID.String()).
			Wrap(err)
	}

	if delErr := s.anonymous.Delete(ctx, user.ID); delErr != nil && !errors.Is(delErr, ErrNotFound) {
		errutil.LogWarn(s.logger, "anonymous identity kept after registration", delErr)
	}

	s.logger.InfoContext(ctx, "identity registered", "user_id", user.ID.String())
	return user, nil
}
