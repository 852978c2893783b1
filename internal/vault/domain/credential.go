package domain

import (
	"time"

	"github.com/google/uuid"
)

// CredentialRecord is the unit of storage in the vault. The payload is always
// an envelope produced by the envelope cipher; the store never sees plaintext
// and the record never carries it.
type CredentialRecord struct {
	// ID is the unique identifier of this record.
	ID uuid.UUID
	// TenantID, Provider, Kind and Identifier form the identity tuple.
	TenantID   uuid.UUID
	Provider   Provider
	Kind       Kind
	Identifier string
	// Ciphertext is the base64 envelope holding the encrypted secret.
	Ciphertext string
	// ExpiresAt is when the secret stops being usable (nil for non-expiring
	// secrets such as refresh tokens and API credential pairs).
	ExpiresAt *time.Time
	// IsValid is false once the credential is known to be unusable.
	IsValid bool
	// LastError holds the category of the last terminal failure (nil when valid).
	LastError *string
	// LastUsedAt is bumped best-effort on every read.
	LastUsedAt *time.Time
	// LastRefreshedAt is when the ciphertext was last replaced.
	LastRefreshedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity returns the record's addressing tuple.
func (c *CredentialRecord) Identity() Identity {
	return Identity{
		TenantID:   c.TenantID,
		Provider:   c.Provider,
		Kind:       c.Kind,
		Identifier: c.Identifier,
	}
}

// IsExpired reports whether the record's expiry has passed. Records without
// an expiry never expire.
func (c *CredentialRecord) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// ExpiresWithin reports whether the record expires inside the given buffer.
func (c *CredentialRecord) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now.Add(buffer))
}

// PlaintextCredential is a decrypted secret scoped to one call. It lives only
// on the requester's stack: never logged, never persisted.
type PlaintextCredential struct {
	// Value is the usable secret (access token, JWT, session id, ...).
	Value string
	// ExpiresAt mirrors the record's expiry when known.
	ExpiresAt *time.Time
	// NeedsRefresh signals the credential is still valid but close enough to
	// expiry that the caller may refresh proactively without blocking.
	NeedsRefresh bool
}
