package domain

import (
	"github.com/connectkit/credvault/internal/errors"
)

// Cryptographic operation error definitions.
var (
	// ErrConfiguration indicates the process-wide master secret is missing or
	// too weak. This is fatal at startup: a misconfigured deployment must never
	// silently run with a weak or absent encryption key.
	ErrConfiguration = errors.New("invalid encryption configuration")

	// ErrDecryptionFailed indicates an envelope could not be decrypted.
	//
	// This error covers tampering (authentication tag failure), the wrong
	// master secret, data corruption, and malformed envelopes (bad base64 or
	// truncated layout). The specific cause is deliberately not disclosed.
	// It is never auto-recovered and should trigger an operator alert, since
	// it implies either bit-rot or a security event.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
