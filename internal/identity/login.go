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

// dummyPasswordHash is verified when the account does not exist so that
// response time does not reveal which emails are registered.
// It decodes with DefaultArgon2Params and never matches any password.
//
//nolint:gosec // G101: not a credential
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// LoginService authenticates accounts by password and ends their sessions.
type LoginService struct {
	authenticated AuthenticatedRepository
	credentials   CredentialRepository
	sessions      SessionRepository
	hasher        PasswordHasher
	ids           IDGenerator
	tokens        TokenGenerator
	logger        *slog.Logger
}

// NewLoginService creates a new LoginService.
func NewLoginService(
	authenticated AuthenticatedRepository,
	credentials CredentialRepository,
	sessions SessionRepository,
	hasher PasswordHasher,
	ids IDGenerator,
	tokens TokenGenerator,
	opts ...ServiceOption,
) (*LoginService, error) {
	switch {
	case authenticated == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("authenticated repository is required")
	case credentials == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("credentials repository is required")
	case sessions == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	case hasher == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("password hasher is required")
	case ids == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("id generator is required")
	case tokens == nil:
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("token generator is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &LoginService{
		authenticated: authenticated,
		credentials:   credentials,
		sessions:      sessions,
		hasher:        hasher,
		ids:           ids,
		tokens:        tokens,
		logger:        o.logger,
	}, nil
}

// Login verifies email and password and opens a new session.
// Unknown emails and wrong passwords fail identically with AUTH_INVALID_CREDENTIALS.
// Existing sessions of the account are kept.
func (s *LoginService) Login(ctx context.Context, email, password string) (user *Authenticated, session *Session, err error) {
	ctx, span := startSpan(ctx, "identity.Login")
	defer func() { endSpan(span, err) }()

	user, cred, err := s.lookup(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	targetHash := dummyPasswordHash
	if cred != nil {
		targetHash = cred.PasswordHash
	}

	// Always verify so unknown accounts cost the same as known ones.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if cred == nil {
		return nil, nil, invalidCredentials()
	}
	if verifyErr != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(verifyErr)
	}
	if !valid {
		return nil, nil, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(cred.PasswordHash) {
		s.upgradeHash(ctx, user.ID, password)
	}

	session, err = NewSession(s.ids.NewID(), user.ID, s.tokens.Generate(user.ID))
	if err == nil {
		err = s.sessions.Save(ctx, session)
	}
	if err != nil {
		return nil, nil, oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "login succeeded",
		"user_id", user.ID.String(),
		"session_id", session.ID.String())
	return user, session, nil
}

// lookup finds the account and credential for email. A nil credential with a
// nil error means the login must fail as invalid credentials. Malformed
// addresses are treated as unknown accounts, so Login still runs the dummy
// verify for them.
func (s *LoginService) lookup(ctx context.Context, rawEmail string) (*Authenticated, *PasswordCredential, error) {
	email, err := NewEmail(rawEmail)
	if err != nil {
		return nil, nil, nil
	}

	user, err := s.authenticated.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find identity by email").
			Wrap(err)
	}

	cred, err := s.credentials.FindByUser(ctx, user.ID)
	if errors.Is(err, ErrNotFound) {
		return user, nil, nil
	}
	if err != nil {
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find credential").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return user, cred, nil
}

// upgradeHash re-hashes password with current parameters. Failures are
// logged; the login succeeds regardless.
func (s *LoginService) upgradeHash(ctx context.Context, userID ulid.ULID, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogWarn(s.logger, "password hash upgrade failed", err)
		return
	}
	cred, err := NewPasswordCredential(userID, hash)
	if err != nil {
		errutil.LogWarn(s.logger, "password hash upgrade failed", err)
		return
	}
	if err := s.credentials.Save(ctx, cred); err != nil {
		errutil.LogWarn(s.logger, "password hash upgrade failed", err)
	}
}

// Logout removes every session of userID, on every device.
func (s *LoginService) Logout(ctx context.Context, userID ulid.ULID) (err error) {
	ctx, span := startSpan(ctx, "identity.Logout")
	defer func() { endSpan(span, err) }()

	if err = s.sessions.DeleteByUser(ctx, userID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "logged out", "user_id", userID.String())
	return nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
}
