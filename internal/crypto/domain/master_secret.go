// Package domain defines the core domain types for envelope encryption.
package domain

import (
	"fmt"
	"os"
)

// MinMasterSecretLength is the minimum accepted length of the master secret.
const MinMasterSecretLength = 32

// MasterSecret is the process-wide secret all per-credential keys are derived
// from. It is read once at startup and is read-only afterwards; there is no
// runtime rotation path.
type MasterSecret struct {
	value []byte
}

// NewMasterSecret validates and wraps raw master secret material.
func NewMasterSecret(value string) (*MasterSecret, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: ENCRYPTION_SECRET is not set", ErrConfiguration)
	}
	if len(value) < MinMasterSecretLength {
		return nil, fmt.Errorf(
			"%w: ENCRYPTION_SECRET must be at least %d characters, got %d",
			ErrConfiguration,
			MinMasterSecretLength,
			len(value),
		)
	}
	return &MasterSecret{value: []byte(value)}, nil
}

// LoadMasterSecretFromEnv reads the master secret from the ENCRYPTION_SECRET
// environment variable. The process must refuse to start when this fails; no
// partial initialization is allowed.
func LoadMasterSecretFromEnv() (*MasterSecret, error) {
	return NewMasterSecret(os.Getenv("ENCRYPTION_SECRET"))
}

// Bytes returns the raw secret material. Callers must not retain or log it.
func (m *MasterSecret) Bytes() []byte {
	return m.value
}

// Close clears the secret material from memory.
func (m *MasterSecret) Close() {
	Zero(m.value)
	m.value = nil
}
