// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"errors"
	"fmt"
)

// Repository-level sentinel errors. Adapters wrap these so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a save would duplicate a unique key.
	ErrConflict = errors.New("conflict")
)

// Workflow error kinds. ProvisioningError and AuthenticationError match these with errors.Is.
var (
	ErrIdentitySaveFailed = errors.New("can't save anonymous identity")
	ErrSessionSaveFailed  = errors.New("can't save session")
	ErrWrongToken         = errors.New("wrong token")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserRepository     = errors.New("user repository error")
)

// ProvisioningErrorKind enumerates the ways anonymous provisioning can fail.
type ProvisioningErrorKind int

// Provisioning failure kinds.
const (
	// IdentitySaveFailed means nothing was persisted.
	IdentitySaveFailed ProvisioningErrorKind = iota + 1
	// SessionSaveFailed means the identity was persisted but its session was not.
	SessionSaveFailed
)

func (k ProvisioningErrorKind) String() string {
	switch k {
	case IdentitySaveFailed:
		return "identity_save_failed"
	case SessionSaveFailed:
		return "session_save_failed"
	default:
		return fmt.Sprintf("provisioning_error(%d)", int(k))
	}
}

// ProvisioningError is returned by ProvisioningService.Provision.
type ProvisioningError struct {
	Kind  ProvisioningErrorKind
	Cause error
}

func (e *ProvisioningError) Error() string {
	msg := e.sentinel().Error()
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *ProvisioningError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e.Kind.
func (e *ProvisioningError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *ProvisioningError) sentinel() error {
	if e.Kind == SessionSaveFailed {
		return ErrSessionSaveFailed
	}
	return ErrIdentitySaveFailed
}

// AuthenticationErrorKind enumerates the ways token resolution can fail.
type AuthenticationErrorKind int

// Authentication failure kinds.
const (
	// WrongToken means no session matches the presented token.
	WrongToken AuthenticationErrorKind = iota + 1
	// UserNotFound means the session references no live identity.
	UserNotFound
	// UserRepositoryError means an identity store failed operationally.
	UserRepositoryError
)

func (k AuthenticationErrorKind) String() string {
	switch k {
	case WrongToken:
		return "wrong_token"
	case UserNotFound:
		return "user_not_found"
	case UserRepositoryError:
		return "user_repository_error"
	default:
		return fmt.Sprintf("authentication_error(%d)", int(k))
	}
}

// AuthenticationError is returned by ResolutionService.Resolve.
// Cause is only set for UserRepositoryError.
type AuthenticationError struct {
	Kind  AuthenticationErrorKind
	Cause error
}

func (e *AuthenticationError) Error() string {
	msg := e.sentinel().Error()
	if e.Cause == nil {
		return msg
	}
	return msg + ": " + e.Cause.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e.Kind.
func (e *AuthenticationError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *AuthenticationError) sentinel() error {
	switch e.Kind {
	case WrongToken:
		return ErrWrongToken
	case UserNotFound:
		return ErrUserNotFound
	default:
		return ErrUserRepository
	}
}

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsUnauthenticated reports whether err should be presented to an external
// caller as a plain "not authenticated". WrongToken and UserNotFound are
// deliberately indistinguishable to prevent identity enumeration.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrWrongToken) || errors.Is(err, ErrUserNotFound)
}
