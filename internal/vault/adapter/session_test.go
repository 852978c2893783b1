package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/adapter/mocks"
	"github.com/connectkit/credvault/internal/vault/provider"
)

func sessionCredentialsRecord(
	t *testing.T,
	cipher cryptoService.Cipher,
	tenantID uuid.UUID,
) *vaultDomain.CredentialRecord {
	t.Helper()
	return &vaultDomain.CredentialRecord{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		Provider:   vaultDomain.ProviderICount,
		Kind:       vaultDomain.KindAPICredentials,
		Ciphertext: seal(t, cipher, `{"cid":"company-1","user":"user","pass":"pass"}`),
		IsValid:    true,
	}
}

func icountIdentity(tenantID uuid.UUID) vaultDomain.Identity {
	return vaultDomain.Identity{
		TenantID: tenantID,
		Provider: vaultDomain.ProviderICount,
		Kind:     vaultDomain.KindAPICredentials,
	}
}

func newSessionAdapter(
	t *testing.T,
	tenantID uuid.UUID,
	client *mocks.MockSessionClient,
) *SessionLifecycleAdapter {
	t.Helper()
	cipher := testCipher(t)
	store := new(mocks.MockCredentialStore)
	store.On("Get", mock.Anything, icountIdentity(tenantID)).
		Return(sessionCredentialsRecord(t, cipher, tenantID), nil)
	return NewSessionLifecycleAdapter(
		vaultDomain.ProviderICount, store, cipher, client, testLogger(),
	)
}

func TestSessionLifecycleAdapter_WithSession(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, provider.SessionCredentials{
		CompanyID: "company-1",
		Username:  "user",
		Password:  "pass",
	}).Return("session-1", nil)
	client.On("Logout", mock.Anything, "session-1").Return(nil)

	a := newSessionAdapter(t, tenantID, client)

	var gotSessionID string
	err := a.WithSession(context.Background(), tenantID, func(sessionID string) error {
		gotSessionID = sessionID
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "session-1", gotSessionID)
	client.AssertExpectations(t)
}

func TestSessionLifecycleAdapter_WithSession_LogsOutOnError(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil)
	client.On("Logout", mock.Anything, "session-1").Return(nil)

	a := newSessionAdapter(t, tenantID, client)

	boom := errors.New("work failed")
	err := a.WithSession(context.Background(), tenantID, func(string) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	client.AssertCalled(t, "Logout", mock.Anything, "session-1")
}

func TestSessionLifecycleAdapter_WithSession_LogsOutOnPanic(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil)
	client.On("Logout", mock.Anything, "session-1").Return(nil)

	a := newSessionAdapter(t, tenantID, client)

	assert.Panics(t, func() {
		_ = a.WithSession(context.Background(), tenantID, func(string) error {
			panic("worker bug")
		})
	})
	client.AssertCalled(t, "Logout", mock.Anything, "session-1")
}

func TestSessionLifecycleAdapter_WithSession_ExpiredSessionSkipsLogout(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil).Once()
	client.On("Login", mock.Anything, mock.Anything).Return("session-2", nil).Once()
	client.On("Logout", mock.Anything, "session-2").Return(nil)

	a := newSessionAdapter(t, tenantID, client)

	err := a.WithSession(context.Background(), tenantID, func(string) error {
		return vaultDomain.ErrSessionExpired
	})
	assert.ErrorIs(t, err, vaultDomain.ErrSessionExpired)

	// The dead session is not logged out; the next cycle authenticates fresh.
	client.AssertNotCalled(t, "Logout", mock.Anything, "session-1")

	err = a.WithSession(context.Background(), tenantID, func(sessionID string) error {
		assert.Equal(t, "session-2", sessionID)
		return nil
	})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSessionLifecycleAdapter_LogoutFailureSwallowed(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil)
	client.On("Logout", mock.Anything, "session-1").Return(errors.New("logout rejected"))

	a := newSessionAdapter(t, tenantID, client)

	err := a.WithSession(context.Background(), tenantID, func(string) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestSessionLifecycleAdapter_Login_ReusesHeldSession(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	client := new(mocks.MockSessionClient)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil)

	a := newSessionAdapter(t, tenantID, client)

	first, err := a.Login(context.Background(), tenantID)
	require.NoError(t, err)
	second, err := a.Login(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	client.AssertNumberOfCalls(t, "Login", 1)
}

func TestSessionLifecycleAdapter_Login_RejectedCredentials(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	cipher := testCipher(t)
	store := new(mocks.MockCredentialStore)
	client := new(mocks.MockSessionClient)

	record := sessionCredentialsRecord(t, cipher, tenantID)
	store.On("Get", mock.Anything, icountIdentity(tenantID)).Return(record, nil)
	store.On("MarkInvalid", mock.Anything, record.ID, "refresh_failed").Return(nil)
	client.On("Login", mock.Anything, mock.Anything).Return("", vaultDomain.ErrRefreshFailed)

	a := NewSessionLifecycleAdapter(
		vaultDomain.ProviderICount, store, cipher, client, testLogger(),
	)

	sessionID, err := a.Login(context.Background(), tenantID)
	assert.Empty(t, sessionID)
	assert.ErrorIs(t, err, vaultDomain.ErrReauthorizationRequired)
	store.AssertExpectations(t)
}

func TestSessionFactory_FreshAdapterPerUnitOfWork(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	cipher := testCipher(t)
	store := new(mocks.MockCredentialStore)
	client := new(mocks.MockSessionClient)

	store.On("Get", mock.Anything, icountIdentity(tenantID)).
		Return(sessionCredentialsRecord(t, cipher, tenantID), nil)
	client.On("Login", mock.Anything, mock.Anything).Return("session-1", nil).Once()
	client.On("Login", mock.Anything, mock.Anything).Return("session-2", nil).Once()
	client.On("Logout", mock.Anything, mock.Anything).Return(nil).Twice()

	factory := NewSessionFactory(
		vaultDomain.ProviderICount, store, cipher, client, testLogger(),
	)

	var sessions []string
	for range 2 {
		err := factory.WithSession(context.Background(), tenantID, func(sessionID string) error {
			sessions = append(sessions, sessionID)
			return nil
		})
		require.NoError(t, err)
	}

	// Each unit of work logged in on its own; no session id leaked across.
	assert.Equal(t, []string{"session-1", "session-2"}, sessions)
	client.AssertExpectations(t)
}
