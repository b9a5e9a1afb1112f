// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/passport/internal/identity"
	"github.com/holomush/passport/pkg/errutil"
)

func TestIdentityCommands_Lifecycle(t *testing.T) {
	isolate(t)
	deps, stores := sharedStores()
	cfg := memoryConfig(t, "")

	out, err := execute(t, deps, "", "--config", cfg, "provision")
	require.NoError(t, err)
	userID := field(t, out, "user_id")
	anonToken := field(t, out, "token")
	assert.Len(t, anonToken, 2*identity.TokenBytes)

	out, err = execute(t, deps, "", "--config", cfg, "resolve", anonToken)
	require.NoError(t, err)
	assert.Equal(t, "anonymous", field(t, out, "kind"))
	assert.Equal(t, userID, field(t, out, "user_id"))

	out, err = execute(t, deps, "correct-horse-battery\n", "--config", cfg, "register",
		"--user-id", userID, "--first", "Ada", "--last", "Lovelace", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered Ada Lovelace <ada@example.com> as "+userID)

	out, err = execute(t, deps, "", "--config", cfg, "resolve", anonToken)
	require.NoError(t, err)
	assert.Equal(t, "authenticated", field(t, out, "kind"))
	assert.Equal(t, "Ada Lovelace", field(t, out, "name"))
	assert.Equal(t, "ada@example.com", field(t, out, "email"))

	out, err = execute(t, deps, "correct-horse-battery\r\n", "--config", cfg, "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, field(t, out, "user_id"))
	loginToken := field(t, out, "token")
	assert.NotEqual(t, anonToken, loginToken)

	out, err = execute(t, deps, "", "--config", cfg, "logout", userID)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out "+userID)

	for _, token := range []string{anonToken, loginToken} {
		_, err = execute(t, deps, "", "--config", cfg, "resolve", token)
		require.Error(t, err)
		assert.ErrorIs(t, err, identity.ErrWrongToken)
	}

	sessions, err := stores.Sessions.FindByUser(context.Background(), ulid.MustParse(userID))
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLoginCommand_WrongPassword(t *testing.T) {
	isolate(t)
	deps, _ := sharedStores()
	cfg := memoryConfig(t, "")

	_, err := execute(t, deps, "correct-horse-battery\n", "--config", cfg, "register",
		"--first", "Ada", "--last", "Lovelace", "--email", "ada@example.com")
	require.NoError(t, err)

	_, err = execute(t, deps, "wrong-password\n", "--config", cfg, "login", "--email", "ada@example.com")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
}

func TestIdentityCommands_InputErrors(t *testing.T) {
	isolate(t)
	deps, _ := sharedStores()
	cfg := memoryConfig(t, "")

	tests := []struct {
		name  string
		stdin string
		args  []string
		code  string
	}{
		{"logout bad id", "", []string{"logout", "not-a-ulid"}, "INVALID_USER_ID"},
		{"register bad id", "pw-long-enough\n", []string{"register", "--user-id", "nope", "--first", "A", "--last", "B", "--email", "a@b.co"}, "INVALID_USER_ID"},
		{"register no password", "", []string{"register", "--first", "A", "--last", "B", "--email", "a@b.co"}, "PASSWORD_READ_FAILED"},
		{"login no password", "", []string{"login", "--email", "a@b.co"}, "PASSWORD_READ_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, deps, tt.stdin, append([]string{"--config", cfg}, tt.args...)...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestRegisterCommand_RequiredFlags(t *testing.T) {
	isolate(t)
	deps, _ := sharedStores()

	_, err := execute(t, deps, "pw-long-enough\n", "--config", memoryConfig(t, ""), "register", "--first", "Ada")
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	ids := identity.NewULIDGenerator()
	anon, err := identity.NewAnonymous(ids.NewID())
	require.NoError(t, err)
	assert.Equal(t, "kind:    anonymous\nuser_id: "+anon.ID.String()+"\n", describe(anon))

	name, err := identity.NewName("Grace", "Hopper")
	require.NoError(t, err)
	email, err := identity.NewEmail("grace@example.com")
	require.NoError(t, err)
	user, err := identity.NewAuthenticated(ids.NewID(), name, email)
	require.NoError(t, err)
	assert.Contains(t, describe(user), "name:    Grace Hopper\n")
}
