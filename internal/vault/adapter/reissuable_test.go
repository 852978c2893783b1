package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/connectkit/credvault/internal/crypto/service"
	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
	"github.com/connectkit/credvault/internal/vault/adapter/mocks"
	"github.com/connectkit/credvault/internal/vault/provider"
)

func apiCredentialsRecord(
	t *testing.T,
	cipher cryptoService.Cipher,
	tenantID uuid.UUID,
) *vaultDomain.CredentialRecord {
	t.Helper()
	return &vaultDomain.CredentialRecord{
		ID:         uuid.Must(uuid.NewV7()),
		TenantID:   tenantID,
		Provider:   vaultDomain.ProviderGreeninvoice,
		Kind:       vaultDomain.KindAPICredentials,
		Ciphertext: seal(t, cipher, `{"id":"api-id","secret":"api-secret"}`),
		IsValid:    true,
	}
}

func greeninvoiceIdentity(tenantID uuid.UUID) vaultDomain.Identity {
	return vaultDomain.Identity{
		TenantID: tenantID,
		Provider: vaultDomain.ProviderGreeninvoice,
		Kind:     vaultDomain.KindAPICredentials,
	}
}

func TestTokenCache(t *testing.T) {
	cache := NewTokenCache()
	tenantID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	_, ok := cache.Get(tenantID, now, 5*time.Minute)
	assert.False(t, ok)

	cache.Put(tenantID, "jwt-1", now.Add(time.Hour))
	token, ok := cache.Get(tenantID, now, 5*time.Minute)
	assert.True(t, ok)
	assert.Equal(t, "jwt-1", token)

	// Inside the buffer the entry no longer counts as usable.
	cache.Put(tenantID, "jwt-2", now.Add(2*time.Minute))
	_, ok = cache.Get(tenantID, now, 5*time.Minute)
	assert.False(t, ok)

	cache.Put(tenantID, "jwt-3", now.Add(time.Hour))
	cache.Invalidate(tenantID)
	_, ok = cache.Get(tenantID, now, 5*time.Minute)
	assert.False(t, ok)
}

func TestReissuableTokenAdapter_GetToken_IssuesOnCacheMiss(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	store.On("Get", mock.Anything, greeninvoiceIdentity(tenantID)).
		Return(apiCredentialsRecord(t, cipher, tenantID), nil)
	issuer.On("IssueToken", mock.Anything, "api-id", "api-secret").
		Return(&provider.IssuedToken{
			Token:     "issued-jwt",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, NewTokenCache(), testLogger(),
	)

	cred, err := a.GetToken(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "issued-jwt", cred.Value)

	// Second call is served from the cache.
	cred, err = a.GetToken(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "issued-jwt", cred.Value)
	issuer.AssertNumberOfCalls(t, "IssueToken", 1)
	store.AssertNumberOfCalls(t, "Get", 1)
}

func TestReissuableTokenAdapter_GetToken_NoCredential(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	store.On("Get", mock.Anything, greeninvoiceIdentity(tenantID)).
		Return(nil, vaultDomain.ErrNoCredential)

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, NewTokenCache(), testLogger(),
	)

	cred, err := a.GetToken(context.Background(), tenantID)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, vaultDomain.ErrNoCredential)
}

func TestReissuableTokenAdapter_GetToken_RejectedPairMarksInvalid(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	record := apiCredentialsRecord(t, cipher, tenantID)
	store.On("Get", mock.Anything, greeninvoiceIdentity(tenantID)).Return(record, nil)
	store.On("MarkInvalid", mock.Anything, record.ID, "refresh_failed").Return(nil)
	issuer.On("IssueToken", mock.Anything, "api-id", "api-secret").
		Return(nil, vaultDomain.ErrRefreshFailed)

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, NewTokenCache(), testLogger(),
	)

	cred, err := a.GetToken(context.Background(), tenantID)
	assert.Nil(t, cred)
	assert.ErrorIs(t, err, vaultDomain.ErrReauthorizationRequired)
	store.AssertExpectations(t)
}

func TestReissuableTokenAdapter_Do_RetriesOnceOnUnauthorized(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	store.On("Get", mock.Anything, greeninvoiceIdentity(tenantID)).
		Return(apiCredentialsRecord(t, cipher, tenantID), nil)
	issuer.On("IssueToken", mock.Anything, "api-id", "api-secret").
		Return(&provider.IssuedToken{
			Token:     "fresh-jwt",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)

	cache := NewTokenCache()
	cache.Put(tenantID, "stale-jwt", time.Now().UTC().Add(time.Hour))

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, cache, testLogger(),
	)

	var calls []string
	err := a.Do(context.Background(), tenantID, func(token string) error {
		calls = append(calls, token)
		if token == "stale-jwt" {
			return vaultDomain.ErrUnauthorizedToken
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale-jwt", "fresh-jwt"}, calls)
	issuer.AssertNumberOfCalls(t, "IssueToken", 1)
}

func TestReissuableTokenAdapter_Do_SecondRejectionSurfaces(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	store.On("Get", mock.Anything, greeninvoiceIdentity(tenantID)).
		Return(apiCredentialsRecord(t, cipher, tenantID), nil)
	issuer.On("IssueToken", mock.Anything, "api-id", "api-secret").
		Return(&provider.IssuedToken{
			Token:     "jwt",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}, nil)

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, NewTokenCache(), testLogger(),
	)

	callCount := 0
	err := a.Do(context.Background(), tenantID, func(token string) error {
		callCount++
		return vaultDomain.ErrUnauthorizedToken
	})
	assert.ErrorIs(t, err, vaultDomain.ErrUnauthorizedToken)
	assert.Equal(t, 2, callCount)
}

func TestReissuableTokenAdapter_Do_OtherErrorsNotRetried(t *testing.T) {
	cipher := testCipher(t)
	tenantID := uuid.Must(uuid.NewV7())
	store := new(mocks.MockCredentialStore)
	issuer := new(mocks.MockTokenIssuer)

	cache := NewTokenCache()
	cache.Put(tenantID, "jwt", time.Now().UTC().Add(time.Hour))

	a := NewReissuableTokenAdapter(
		vaultDomain.ProviderGreeninvoice, store, cipher, issuer, cache, testLogger(),
	)

	boom := errors.New("downstream exploded")
	callCount := 0
	err := a.Do(context.Background(), tenantID, func(token string) error {
		callCount++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, callCount)
	issuer.AssertNotCalled(t, "IssueToken", mock.Anything, mock.Anything, mock.Anything)
}
