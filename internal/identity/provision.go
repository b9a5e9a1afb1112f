// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/passport/pkg/errutil"
)

// ProvisioningService creates anonymous identities together with their first session.
type ProvisioningService struct {
	ids       IDGenerator
	tokens    TokenGenerator
	anonymous AnonymousRepository
	sessions  SessionRepository
	logger    *slog.Logger
	recorder  Recorder
}

// NewProvisioningService creates a new ProvisioningService.
func NewProvisioningService(
	ids IDGenerator,
	tokens TokenGenerator,
	anonymous AnonymousRepository,
	sessions SessionRepository,
	opts ...ServiceOption,
) (*ProvisioningService, error) {
	if ids == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("id generator is required")
	}
	if tokens == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("token generator is required")
	}
	if anonymous == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("anonymous repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("SERVICE_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	return &ProvisioningService{
		ids:       ids,
		tokens:    tokens,
		anonymous: anonymous,
		sessions:  sessions,
		logger:    o.logger,
		recorder:  o.recorder,
	}, nil
}

// Provision persists a new anonymous identity for id and then a session for it.
//
// The two writes are not atomic. When the session write fails the identity
// stays persisted and the returned error matches ErrSessionSaveFailed; the
// caller must retry session creation or leave the orphan to the sweeper.
// Nothing is retried here.
func (s *ProvisioningService) Provision(ctx context.Context, id ulid.ULID) (anon *Anonymous, session *Session, err error) {
	ctx, span := startSpan(ctx, "identity.Provision",
		trace.WithAttributes(attribute.String("user_id", id.String())))
	defer func() {
		endSpan(span, err)
		s.recorder.RecordProvision(provisionResult(err))
	}()

	anon, err = NewAnonymous(id)
	if err != nil {
		return nil, nil, provisioningFailure(IdentitySaveFailed, id, "validate anonymous identity", err)
	}

	if err = s.anonymous.Save(ctx, anon); err != nil {
		return nil, nil, provisioningFailure(IdentitySaveFailed, id, "persist anonymous identity", err)
	}

	session, err = NewSession(s.ids.NewID(), id, s.tokens.Generate(id))
	if err == nil {
		err = s.sessions.Save(ctx, session)
	}
	if err != nil {
		err = provisioningFailure(SessionSaveFailed, id, "persist session", err)
		errutil.LogWarn(s.logger, "anonymous identity persisted without a session", err)
		return nil, nil, err
	}

	s.logger.DebugContext(ctx, "anonymous identity provisioned",
		"user_id", id.String(),
		"session_id", session.ID.String())

	return anon, session, nil
}

func provisioningFailure(kind ProvisioningErrorKind, id ulid.ULID, operation string, cause error) error {
	code := "PROVISION_IDENTITY_SAVE_FAILED"
	if kind == SessionSaveFailed {
		code = "PROVISION_SESSION_SAVE_FAILED"
	}
	return oops.Code(code).
		With("operation", operation).
		With("user_id", id.String()).
		Wrap(&ProvisioningError{Kind: kind, Cause: cause})
}

func provisionResult(err error) string {
	if err == nil {
		return ResultOK
	}
	var pe *ProvisioningError
	if errors.As(err, &pe) {
		return pe.Kind.String()
	}
	return "error"
}
