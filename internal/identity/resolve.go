// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ResolutionService maps session tokens to identities.
type ResolutionService struct {
	sessions      SessionRepository
	authenticated AuthenticatedRepository
	anonymous     AnonymousRepository
	logger        *slog.Logger
	recorder      Recorder
}

// NewResolutionService creates a new ResolutionService.
func NewResolutionService(
	sessions SessionRepository,
	authenticated AuthenticatedRepository,
	anonymous AnonymousRepository,
	opts ...ServiceOption,
) (*ResolutionService, error) {
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	if authenticated == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("authenticated repository is required")
	}
	if anonymous == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("anonymous repository is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ResolutionService{
		sessions:      sessions,
		authenticated: authenticated,
		anonymous:     anonymous,
		logger:        o.logger,
		recorder:      o.recorder,
	}, nil
}

// Resolve returns the identity owning the session that holds token.
//
// The authenticated store is consulted before the anonymous store. An
// operational failure of any store stops resolution with UserRepositoryError;
// only a genuine ErrNotFound falls through to the next store.
func (s *ResolutionService) Resolve(ctx context.Context, token string) (id Identity, err error) {
	ctx, span := startSpan(ctx, "identity.Resolve")
	defer func() {
		endSpan(span, err)
		s.recorder.RecordResolution(resolutionResult(err))
	}()

	if token == "" {
		return nil, wrongToken()
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, wrongToken()
		}
		return nil, repositoryFailure("find session by token", ulid.ULID{}, err)
	}

	user, err := s.authenticated.Find(ctx, session.UserID)
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "token resolved",
			"kind", string(KindAuthenticated),
			"user_id", user.ID.String())
		return user, nil
	case !errors.Is(err, ErrNotFound):
		return nil, repositoryFailure("find authenticated identity", session.UserID, err)
	}

	anon, err := s.anonymous.Find(ctx, session.UserID)
	switch {
	case err == nil:
		s.logger.DebugContext(ctx, "token resolved",
			"kind", string(KindAnonymous),
			"user_id", anon.ID.String())
		return anon, nil
	case errors.Is(err, ErrNotFound):
		s.logger.WarnContext(ctx, "session references no identity",
			"session_id", session.ID.String(),
			"user_id", session.UserID.String())
		return nil, oops.Code("AUTH_USER_NOT_FOUND").
			With("user_id", session.UserID.String()).
			Wrap(&AuthenticationError{Kind: UserNotFound})
	default:
		return nil, repositoryFailure("find anonymous identity", session.UserID, err)
	}
}

func wrongToken() error {
	return oops.Code("AUTH_WRONG_TOKEN").Wrap(&AuthenticationError{Kind: WrongToken})
}

func repositoryFailure(operation string, userID ulid.ULID, cause error) error {
	b := oops.Code("AUTH_USER_REPOSITORY_ERROR").With("operation", operation)
	if userID.Compare(ulid.ULID{}) != 0 {
		b = b.With("user_id", userID.String())
	}
	return b.Wrap(&AuthenticationError{Kind: UserRepositoryError, Cause: cause})
}

func resolutionResult(err error) string {
	if err == nil {
		return ResultOK
	}
	var ae *AuthenticationError
	if errors.As(err, &ae) {
		return ae.Kind.String()
	}
	return "error"
}
