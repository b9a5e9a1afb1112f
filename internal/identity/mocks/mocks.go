// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the identity package contracts.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/passport/internal/identity"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t testingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockSessionRepository is a mock identity.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockSessionRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Session, error) {
	ret := m.Called(ctx, id)
	s, _ := ret.Get(0).(*identity.Session)
	return s, ret.Error(1)
}

func (m *MockSessionRepository) FindByToken(ctx context.Context, token string) (*identity.Session, error) {
	ret := m.Called(ctx, token)
	s, _ := ret.Get(0).(*identity.Session)
	return s, ret.Error(1)
}

func (m *MockSessionRepository) FindByUser(ctx context.Context, userID ulid.ULID) ([]*identity.Session, error) {
	ret := m.Called(ctx, userID)
	s, _ := ret.Get(0).([]*identity.Session)
	return s, ret.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, session *identity.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockAnonymousRepository is a mock identity.AnonymousRepository.
type MockAnonymousRepository struct {
	mock.Mock
}

// NewMockAnonymousRepository creates a mock that asserts its expectations on cleanup.
func NewMockAnonymousRepository(t testingT) *MockAnonymousRepository {
	m := &MockAnonymousRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockAnonymousRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Anonymous, error) {
	ret := m.Called(ctx, id)
	a, _ := ret.Get(0).(*identity.Anonymous)
	return a, ret.Error(1)
}

func (m *MockAnonymousRepository) Save(ctx context.Context, anon *identity.Anonymous) error {
	return m.Called(ctx, anon).Error(0)
}

func (m *MockAnonymousRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAnonymousRepository) ListCreatedBefore(ctx context.Context, cutoff time.Time, after identity.AnonymousCursor, limit int) ([]*identity.Anonymous, error) {
	ret := m.Called(ctx, cutoff, after, limit)
	a, _ := ret.Get(0).([]*identity.Anonymous)
	return a, ret.Error(1)
}

// MockAuthenticatedRepository is a mock identity.AuthenticatedRepository.
type MockAuthenticatedRepository struct {
	mock.Mock
}

// NewMockAuthenticatedRepository creates a mock that asserts its expectations on cleanup.
func NewMockAuthenticatedRepository(t testingT) *MockAuthenticatedRepository {
	m := &MockAuthenticatedRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockAuthenticatedRepository) Find(ctx context.Context, id ulid.ULID) (*identity.Authenticated, error) {
	ret := m.Called(ctx, id)
	a, _ := ret.Get(0).(*identity.Authenticated)
	return a, ret.Error(1)
}

func (m *MockAuthenticatedRepository) FindByEmail(ctx context.Context, email identity.Email) (*identity.Authenticated, error) {
	ret := m.Called(ctx, email)
	a, _ := ret.Get(0).(*identity.Authenticated)
	return a, ret.Error(1)
}

func (m *MockAuthenticatedRepository) Save(ctx context.Context, user *identity.Authenticated) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockAuthenticatedRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// MockCredentialRepository is a mock identity.CredentialRepository.
type MockCredentialRepository struct {
	mock.Mock
}

// NewMockCredentialRepository creates a mock that asserts its expectations on cleanup.
func NewMockCredentialRepository(t testingT) *MockCredentialRepository {
	m := &MockCredentialRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockCredentialRepository) Save(ctx context.Context, cred *identity.PasswordCredential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *MockCredentialRepository) FindByUser(ctx context.Context, userID ulid.ULID) (*identity.PasswordCredential, error) {
	ret := m.Called(ctx, userID)
	c, _ := ret.Get(0).(*identity.PasswordCredential)
	return c, ret.Error(1)
}

func (m *MockCredentialRepository) Delete(ctx context.Context, userID ulid.ULID) error {
	return m.Called(ctx, userID).Error(0)
}

// MockPasswordHasher is a mock identity.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	register(&m.Mock, t)
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}

// Compile-time interface checks.
var (
	_ identity.SessionRepository       = (*MockSessionRepository)(nil)
	_ identity.AnonymousRepository     = (*MockAnonymousRepository)(nil)
	_ identity.AuthenticatedRepository = (*MockAuthenticatedRepository)(nil)
	_ identity.CredentialRepository    = (*MockCredentialRepository)(nil)
	_ identity.PasswordHasher          = (*MockPasswordHasher)(nil)
)
