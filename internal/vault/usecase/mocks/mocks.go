// Package mocks provides mock implementations for testing the credential
// lifecycle orchestrator.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// MockCredentialRepository is a mock implementation of CredentialRepository
// for testing.
type MockCredentialRepository struct {
	mock.Mock
}

// Put mocks the Put method of CredentialRepository.
func (m *MockCredentialRepository) Put(
	ctx context.Context,
	identity vaultDomain.Identity,
	envelope string,
	expiresAt *time.Time,
) (uuid.UUID, error) {
	args := m.Called(ctx, identity, envelope, expiresAt)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// Get mocks the Get method of CredentialRepository.
func (m *MockCredentialRepository) Get(
	ctx context.Context,
	identity vaultDomain.Identity,
) (*vaultDomain.CredentialRecord, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.CredentialRecord), args.Error(1)
}

// MarkInvalid mocks the MarkInvalid method of CredentialRepository.
func (m *MockCredentialRepository) MarkInvalid(
	ctx context.Context,
	id uuid.UUID,
	reason string,
) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

// Delete mocks the Delete method of CredentialRepository.
func (m *MockCredentialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DeleteAll mocks the DeleteAll method of CredentialRepository.
func (m *MockCredentialRepository) DeleteAll(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	args := m.Called(ctx, tenantID, provider)
	return args.Error(0)
}

// FindExpiring mocks the FindExpiring method of CredentialRepository.
func (m *MockCredentialRepository) FindExpiring(
	ctx context.Context,
	within time.Duration,
	provider vaultDomain.Provider,
) ([]vaultDomain.Identity, error) {
	args := m.Called(ctx, within, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vaultDomain.Identity), args.Error(1)
}

// MockConnectionRepository is a mock implementation of ConnectionRepository
// for testing.
type MockConnectionRepository struct {
	mock.Mock
}

// Upsert mocks the Upsert method of ConnectionRepository.
func (m *MockConnectionRepository) Upsert(
	ctx context.Context,
	connection *vaultDomain.Connection,
) error {
	args := m.Called(ctx, connection)
	return args.Error(0)
}

// GetByTenantAndProvider mocks the GetByTenantAndProvider method of
// ConnectionRepository.
func (m *MockConnectionRepository) GetByTenantAndProvider(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) (*vaultDomain.Connection, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Connection), args.Error(1)
}

// ListByTenant mocks the ListByTenant method of ConnectionRepository.
func (m *MockConnectionRepository) ListByTenant(
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

// SetStatus mocks the SetStatus method of ConnectionRepository.
func (m *MockConnectionRepository) SetStatus(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
	status vaultDomain.ConnectionStatus,
) error {
	args := m.Called(ctx, tenantID, provider, status)
	return args.Error(0)
}

// Delete mocks the Delete method of ConnectionRepository.
func (m *MockConnectionRepository) Delete(
	ctx context.Context,
	tenantID uuid.UUID,
	provider vaultDomain.Provider,
) error {
	args := m.Called(ctx, tenantID, provider)
	return args.Error(0)
}

// MockOAuthAdapter is a mock implementation of OAuthAdapter for testing.
type MockOAuthAdapter struct {
	mock.Mock
}

// GetAccessToken mocks the GetAccessToken method of OAuthAdapter.
func (m *MockOAuthAdapter) GetAccessToken(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
	buffer time.Duration,
) (*vaultDomain.PlaintextCredential, error) {
	args := m.Called(ctx, tenantID, identifier, buffer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.PlaintextCredential), args.Error(1)
}

// Refresh mocks the Refresh method of OAuthAdapter.
func (m *MockOAuthAdapter) Refresh(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) (*vaultDomain.PlaintextCredential, error) {
	args := m.Called(ctx, tenantID, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.PlaintextCredential), args.Error(1)
}

// Probe mocks the Probe method of OAuthAdapter.
func (m *MockOAuthAdapter) Probe(
	ctx context.Context,
	tenantID uuid.UUID,
	identifier string,
) error {
	args := m.Called(ctx, tenantID, identifier)
	return args.Error(0)
}

// MockReissuableAdapter is a mock implementation of ReissuableAdapter for
// testing.
type MockReissuableAdapter struct {
	mock.Mock
}

// GetToken mocks the GetToken method of ReissuableAdapter.
func (m *MockReissuableAdapter) GetToken(
	ctx context.Context,
	tenantID uuid.UUID,
) (*vaultDomain.PlaintextCredential, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.PlaintextCredential), args.Error(1)
}

// MockSessionRunner is a mock implementation of SessionRunner for testing.
type MockSessionRunner struct {
	mock.Mock
}

// WithSession mocks the WithSession method of SessionRunner.
func (m *MockSessionRunner) WithSession(
	ctx context.Context,
	tenantID uuid.UUID,
	fn func(sessionID string) error,
) error {
	args := m.Called(ctx, tenantID, fn)
	return args.Error(0)
}

// MockNotificationPublisher is a mock implementation of NotificationPublisher
// for testing.
type MockNotificationPublisher struct {
	mock.Mock
}

// Publish mocks the Publish method of NotificationPublisher.
func (m *MockNotificationPublisher) Publish(
	ctx context.Context,
	tenantID uuid.UUID,
	eventType string,
	payload map[string]string,
) error {
	args := m.Called(ctx, tenantID, eventType, payload)
	return args.Error(0)
}

// MockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for
// testing.
type MockBusinessMetrics struct {
	mock.Mock
}

// RecordOperation mocks the RecordOperation method of BusinessMetrics.
func (m *MockBusinessMetrics) RecordOperation(
	ctx context.Context,
	domain, operation, status string,
) {
	m.Called(ctx, domain, operation, status)
}

// RecordDuration mocks the RecordDuration method of BusinessMetrics.
func (m *MockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}
