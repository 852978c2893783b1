// Package domain defines the core domain models for the credential vault:
// the identity tuple addressing each stored credential, the encrypted
// credential record, and the non-secret tenant-provider connection mirror.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/connectkit/credvault/internal/errors"
)

// Provider identifies an external system a tenant can connect.
type Provider string

const (
	ProviderGoogle       Provider = "google"
	ProviderWhatsApp     Provider = "whatsapp"
	ProviderGreeninvoice Provider = "greeninvoice"
	ProviderICount       Provider = "icount"
)

// Kind identifies what a stored credential is.
type Kind string

const (
	KindAccessToken    Kind = "access_token"
	KindRefreshToken   Kind = "refresh_token"
	KindAPICredentials Kind = "api_credentials"
)

// CredentialModel is the authentication model a provider follows. Adapter
// dispatch switches exhaustively over this enum instead of matching strings.
type CredentialModel string

const (
	// ModelOAuthRotation rotates a short-lived access token via a long-lived
	// refresh token.
	ModelOAuthRotation CredentialModel = "oauth_rotation"
	// ModelReissuable re-derives a short-lived JWT from a stored ID/secret pair.
	ModelReissuable CredentialModel = "reissuable"
	// ModelSessionLifecycle binds a session id to an explicit login/logout pair.
	ModelSessionLifecycle CredentialModel = "session_lifecycle"
)

// Validate checks that the provider is a known value.
func (p Provider) Validate() error {
	switch p {
	case ProviderGoogle, ProviderWhatsApp, ProviderGreeninvoice, ProviderICount:
		return nil
	}
	return fmt.Errorf("%w: unknown provider %q", errors.ErrInvalidInput, string(p))
}

// Model returns the credential model the provider follows.
func (p Provider) Model() CredentialModel {
	switch p {
	case ProviderGoogle, ProviderWhatsApp:
		return ModelOAuthRotation
	case ProviderGreeninvoice:
		return ModelReissuable
	case ProviderICount:
		return ModelSessionLifecycle
	}
	return ""
}

// IdentifierBearing reports whether the provider supports multiple
// credentials per tenant, disambiguated by the identity's Identifier (e.g.
// one per WhatsApp Business Account). Single-credential providers use an
// empty identifier.
func (p Provider) IdentifierBearing() bool {
	return p == ProviderWhatsApp
}

// Validate checks that the kind is a known value.
func (k Kind) Validate() error {
	switch k {
	case KindAccessToken, KindRefreshToken, KindAPICredentials:
		return nil
	}
	return fmt.Errorf("%w: unknown credential kind %q", errors.ErrInvalidInput, string(k))
}

// Identity is the addressing key for one credential. Identifier disambiguates
// multiple credentials of the same kind under one provider (e.g. multiple
// WhatsApp Business Accounts per tenant); it is empty for single-credential
// providers. At most one non-deleted record exists per identity.
type Identity struct {
	TenantID   uuid.UUID
	Provider   Provider
	Kind       Kind
	Identifier string
}

// Key returns a stable string form of the identity, used as the single-flight
// lock key and in log attributes.
func (i Identity) Key() string {
	return fmt.Sprintf("%s/%s/%s/%s", i.TenantID, i.Provider, i.Kind, i.Identifier)
}

// Validate checks the identity fields.
func (i Identity) Validate() error {
	if i.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant id is required", errors.ErrInvalidInput)
	}
	if err := i.Provider.Validate(); err != nil {
		return err
	}
	return i.Kind.Validate()
}
