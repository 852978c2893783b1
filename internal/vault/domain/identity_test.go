package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/connectkit/credvault/internal/errors"
)

func TestProviderModel(t *testing.T) {
	tests := []struct {
		provider Provider
		model    CredentialModel
	}{
		{ProviderGoogle, ModelOAuthRotation},
		{ProviderWhatsApp, ModelOAuthRotation},
		{ProviderGreeninvoice, ModelReissuable},
		{ProviderICount, ModelSessionLifecycle},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.model, tt.provider.Model())
		})
	}
}

func TestProviderValidate(t *testing.T) {
	assert.NoError(t, ProviderGoogle.Validate())
	assert.ErrorIs(t, Provider("stripe").Validate(), errors.ErrInvalidInput)
}

func TestKindValidate(t *testing.T) {
	assert.NoError(t, KindAccessToken.Validate())
	assert.ErrorIs(t, Kind("password").Validate(), errors.ErrInvalidInput)
}

func TestIdentityKey(t *testing.T) {
	tenantID := uuid.Must(uuid.NewV7())
	identity := Identity{
		TenantID:   tenantID,
		Provider:   ProviderWhatsApp,
		Kind:       KindAccessToken,
		Identifier: "waba-123",
	}

	assert.Equal(t, fmt.Sprintf("%s/whatsapp/access_token/waba-123", tenantID), identity.Key())

	// Identifier-less identities still produce distinct keys per kind.
	other := identity
	other.Identifier = ""
	other.Kind = KindRefreshToken
	assert.NotEqual(t, identity.Key(), other.Key())
}

func TestIdentityValidate(t *testing.T) {
	valid := Identity{
		TenantID: uuid.Must(uuid.NewV7()),
		Provider: ProviderGoogle,
		Kind:     KindAccessToken,
	}
	assert.NoError(t, valid.Validate())

	missingTenant := valid
	missingTenant.TenantID = uuid.Nil
	assert.ErrorIs(t, missingTenant.Validate(), errors.ErrInvalidInput)

	badProvider := valid
	badProvider.Provider = "unknown"
	assert.ErrorIs(t, badProvider.Validate(), errors.ErrInvalidInput)
}

func TestCredentialRecordExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("no expiry never expires", func(t *testing.T) {
		record := &CredentialRecord{}
		assert.False(t, record.IsExpired(now))
		assert.False(t, record.ExpiresWithin(now, time.Hour))
	})

	t.Run("past expiry", func(t *testing.T) {
		expiresAt := now.Add(-time.Minute)
		record := &CredentialRecord{ExpiresAt: &expiresAt}
		assert.True(t, record.IsExpired(now))
		assert.True(t, record.ExpiresWithin(now, time.Minute))
	})

	t.Run("inside buffer", func(t *testing.T) {
		expiresAt := now.Add(3 * time.Minute)
		record := &CredentialRecord{ExpiresAt: &expiresAt}
		assert.False(t, record.IsExpired(now))
		assert.True(t, record.ExpiresWithin(now, 5*time.Minute))
	})

	t.Run("outside buffer", func(t *testing.T) {
		expiresAt := now.Add(time.Hour)
		record := &CredentialRecord{ExpiresAt: &expiresAt}
		assert.False(t, record.IsExpired(now))
		assert.False(t, record.ExpiresWithin(now, 5*time.Minute))
	})
}
