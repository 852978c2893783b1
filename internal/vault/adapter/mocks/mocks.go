// Package mocks provides mock implementations for testing the credential
// adapters.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/provider"
)

// MockCredentialStore is a mock implementation of CredentialStore for testing.
type MockCredentialStore struct {
	mock.Mock
}

// Put mocks the Put method of CredentialStore.
func (m *MockCredentialStore) Put(
	ctx context.Context,
	identity vaultDomain.Identity,
	envelope string,
	expiresAt *time.Time,
) (uuid.UUID, error) {
	args := m.Called(ctx, identity, envelope, expiresAt)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// Get mocks the Get method of CredentialStore.
func (m *MockCredentialStore) Get(
	ctx context.Context,
	identity vaultDomain.Identity,
) (*vaultDomain.CredentialRecord, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.CredentialRecord), args.Error(1)
}

// MarkInvalid mocks the MarkInvalid method of CredentialStore.
func (m *MockCredentialStore) MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// MockOAuthTokenClient is a mock implementation of provider.OAuthTokenClient
// for testing.
type MockOAuthTokenClient struct {
	mock.Mock
}

// Exchange mocks the Exchange method of OAuthTokenClient.
func (m *MockOAuthTokenClient) Exchange(
	ctx context.Context,
	code, redirectURI string,
) (*provider.TokenResponse, error) {
	args := m.Called(ctx, code, redirectURI)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.TokenResponse), args.Error(1)
}

// Refresh mocks the Refresh method of OAuthTokenClient.
func (m *MockOAuthTokenClient) Refresh(
	ctx context.Context,
	refreshToken string,
) (*provider.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.TokenResponse), args.Error(1)
}

// Probe mocks the Probe method of OAuthTokenClient.
func (m *MockOAuthTokenClient) Probe(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

// MockTokenIssuer is a mock implementation of provider.TokenIssuer for testing.
type MockTokenIssuer struct {
	mock.Mock
}

// IssueToken mocks the IssueToken method of TokenIssuer.
func (m *MockTokenIssuer) IssueToken(
	ctx context.Context,
	id, secret string,
) (*provider.IssuedToken, error) {
	args := m.Called(ctx, id, secret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.IssuedToken), args.Error(1)
}

// MockSessionClient is a mock implementation of provider.SessionClient for
// testing.
type MockSessionClient struct {
	mock.Mock
}

// Login mocks the Login method of SessionClient.
func (m *MockSessionClient) Login(
	ctx context.Context,
	creds provider.SessionCredentials,
) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

// Logout mocks the Logout method of SessionClient.
func (m *MockSessionClient) Logout(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
