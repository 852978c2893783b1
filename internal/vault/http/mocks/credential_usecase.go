// Package mocks provides mock implementations for testing HTTP handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	vaultUseCase "github.com/connectkit/credvault/internal/vault/usecase"
)

// MockCredentialUseCase is a mock implementation of CredentialUseCase for testing.
type MockCredentialUseCase struct {
	mock.Mock
}

// GetUsableCredential mocks the GetUsableCredential method of CredentialUseCase.
func (m *MockCredentialUseCase) GetUsableCredential(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	kind vaultDomain.Kind,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	args := m.Called(ctx, tenantID, provider, kind, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.PlaintextCredential), args.Error(1)
}

// RunInSession mocks the RunInSession method of CredentialUseCase.
func (m *MockCredentialUseCase) RunInSession(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	fn func(sessionID string) error,
) error {
	args := m.Called(ctx, tenantID, provider, fn)
	return args.Error(0)
}

// StoreCredential mocks the StoreCredential method of CredentialUseCase.
func (m *MockCredentialUseCase) StoreCredential(
	ctx context.Context,
	input *vaultUseCase.StoreCredentialInput,
) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// Disconnect mocks the Disconnect method of CredentialUseCase.
func (m *MockCredentialUseCase) Disconnect(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	args := m.Called(ctx, tenantID, provider)
	return args.Error(0)
}

// RefreshIdentity mocks the RefreshIdentity method of CredentialUseCase.
func (m *MockCredentialUseCase) RefreshIdentity(
	ctx context.Context,
	identity vaultDomain.Identity,
) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

// ValidateConnection mocks the ValidateConnection method of CredentialUseCase.
func (m *MockCredentialUseCase) ValidateConnection(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	identifier string,
) error {
	args := m.Called(ctx, tenantID, provider, identifier)
	return args.Error(0)
}

// ListConnections mocks the ListConnections method of CredentialUseCase.
func (m *MockCredentialUseCase) ListConnections(
	ctx context.Context,
	tenantID uuid.UUID,
	offset, limit int,
) ([]*vaultDomain.Connection, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.Connection), args.Error(1)
}
