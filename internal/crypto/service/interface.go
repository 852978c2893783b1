// Package service implements the envelope cipher used to protect credentials
// at rest. Each secret is sealed with a key derived from the process-wide
// master secret and a fresh random salt, so no two records share a key.
package service

// Cipher defines the interface for sealing and opening credential envelopes.
type Cipher interface {
	// Encrypt seals plaintext into a self-contained base64 envelope.
	Encrypt(plaintext []byte) (string, error)

	// Decrypt opens an envelope produced by Encrypt. It fails with
	// domain.ErrDecryptionFailed when the envelope is malformed or the
	// authentication tag does not verify, and never returns partial data.
	Decrypt(envelope string) ([]byte, error)
}
