// Package adapter implements the three credential lifecycle models the vault
// supports: OAuth access-token rotation, reissuable short-lived JWTs, and
// explicit session login/logout. Each adapter owns the renewal mechanics for
// its model; the orchestrator dispatches on the provider's CredentialModel
// and never inspects provider-specific behavior itself.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	vaultDomain "github.com/connectkit/credvault/internal/vault/domain"
)

// Adapter is implemented by every credential adapter. Model identifies which
// lifecycle the adapter drives so dispatch stays an exhaustive enum switch.
type Adapter interface {
	Model() vaultDomain.CredentialModel
}

// CredentialStore is the slice of the credential repository the adapters
// consume. All reads and writes go through the encrypted record store;
// adapters never hold plaintext beyond the call that produced it.
type CredentialStore interface {
	Put(
		ctx context.Context,
		identity vaultDomain.Identity,
		envelope string,
		expiresAt *time.Time,
	) (uuid.UUID, error)
	Get(ctx context.Context, identity vaultDomain.Identity) (*vaultDomain.CredentialRecord, error)
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error
}

// APICredentials is the decrypted payload of an api_credentials record for
// providers that derive tokens or sessions from a stored pair.
type APICredentials struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}
