// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/internal/identity/mocks"
	"github.com/holomush/passport/pkg/errutil"
)

func (s accountStores) login(t *testing.T) *identity.LoginService {
	t.Helper()
	svc, err := identity.NewLoginService(s.authenticated, s.credentials, s.sessions, s.hasher,
		identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
	require.NoError(t, err)
	return svc
}

func registered(t *testing.T, s accountStores) *identity.Authenticated {
	t.Helper()
	user, err := s.registrar(t).Register(context.Background(), validInput(ulid.Make()))
	require.NoError(t, err)
	return user
}

func TestLoginService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials open a session", func(t *testing.T) {
		s := newAccountStores()
		user := registered(t, s)

		got, session, err := s.login(t).Login(ctx, "SARAH-CONNOR@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.ID, session.UserID)

		id, err := s.resolver(t).Resolve(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, id.UserID())
	})

	t.Run("existing sessions are kept", func(t *testing.T) {
		s := newAccountStores()
		registered(t, s)
		svc := s.login(t)

		_, first, err := svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)
		_, second, err := svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)

		_, err = s.resolver(t).Resolve(ctx, first.Token)
		assert.NoError(t, err)
	})

	invalid := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "sarah-connor@example.com", "wrong-password"},
		{"unknown email", "kyle@example.com", "no-fate-but-what-we-make"},
		{"malformed email", "not-an-email", "no-fate-but-what-we-make"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			s := newAccountStores()
			registered(t, s)

			user, session, err := s.login(t).Login(ctx, tt.email, tt.password)
			assert.Nil(t, user)
			assert.Nil(t, session)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
			assert.Equal(t, 0, s.sessions.Len())
		})
	}

	for _, email := range []string{"nobody@example.com", "not-an-email", ""} {
		t.Run("no account still verifies a hash: "+email, func(t *testing.T) {
			s := newAccountStores()
			hasher := mocks.NewMockPasswordHasher(t)
			hasher.On("Verify", "secret-password", mock.AnythingOfType("string")).Return(false, nil).Once()

			svc, err := identity.NewLoginService(s.authenticated, s.credentials, s.sessions, hasher,
				identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
			require.NoError(t, err)

			_, _, err = svc.Login(ctx, email, "secret-password")
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
		})
	}

	t.Run("outdated hash is upgraded", func(t *testing.T) {
		s := newAccountStores()
		user := registered(t, s)
		before, err := s.credentials.FindByUser(ctx, user.ID)
		require.NoError(t, err)

		stronger := identity.NewArgon2idHasherWithParams(identity.Argon2Params{
			Time: 2, Memory: fastParams.Memory, Threads: 1, SaltLen: 16, KeyLen: 32,
		})
		svc, err := identity.NewLoginService(s.authenticated, s.credentials, s.sessions, stronger,
			identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)

		after, err := s.credentials.FindByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
		assert.False(t, stronger.NeedsUpgrade(after.PasswordHash))
	})

	t.Run("session failure", func(t *testing.T) {
		s := newAccountStores()
		registered(t, s)
		sessions := mocks.NewMockSessionRepository(t)
		sessions.On("Save", mock.Anything, mock.Anything).Return(errors.New("write failed"))

		svc, err := identity.NewLoginService(s.authenticated, s.credentials, sessions, s.hasher,
			identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		errutil.AssertErrorCode(t, err, "AUTH_SESSION_CREATE_FAILED")
	})

	t.Run("repository failure is not reported as bad credentials", func(t *testing.T) {
		s := newAccountStores()
		authRepo := mocks.NewMockAuthenticatedRepository(t)
		authRepo.On("FindByEmail", mock.Anything, identity.Email("sarah@example.com")).Return(nil, errors.New("offline"))

		svc, err := identity.NewLoginService(authRepo, s.credentials, s.sessions, s.hasher,
			identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "sarah@example.com", "whatever-password")
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	})
}

func TestLoginService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("removes all sessions of the user", func(t *testing.T) {
		s := newAccountStores()
		user := registered(t, s)
		svc := s.login(t)

		_, first, err := svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)
		_, second, err := svc.Login(ctx, "sarah-connor@example.com", "no-fate-but-what-we-make")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, user.ID))

		resolver := s.resolver(t)
		for _, tok := range []string{first.Token, second.Token} {
			_, err := resolver.Resolve(ctx, tok)
			assert.ErrorIs(t, err, identity.ErrWrongToken)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		s := newAccountStores()
		sessions := mocks.NewMockSessionRepository(t)
		userID := ulid.Make()
		sessions.On("DeleteByUser", mock.Anything, userID).Return(errors.New("offline"))

		svc, err := identity.NewLoginService(s.authenticated, s.credentials, sessions, s.hasher,
			identity.NewULIDGenerator(), identity.NewRandomTokenGenerator())
		require.NoError(t, err)

		err = svc.Logout(ctx, userID)
		errutil.AssertErrorCode(t, err, "AUTH_LOGOUT_FAILED")
	})
}
