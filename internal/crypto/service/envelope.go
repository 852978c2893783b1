package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/scrypt"

	cryptoDomain "github.com/connectkit/credvault/internal/crypto/domain"
)

// Envelope layout: base64(salt[16] ‖ nonce[12] ‖ tag[16] ‖ ciphertext[N]).
// Ciphertext length equals plaintext length (AES-GCM, no padding).
const (
	saltSize  = 16
	nonceSize = 12
	tagSize   = 16

	// scrypt parameters: N=2^15 keeps derivation memory-hard (~32MiB) while
	// staying under the HTTP client timeout budget of callers.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
	keySize = 32
)

// EnvelopeCipher seals secrets with AES-256-GCM under a key derived per
// envelope from the master secret and a random salt via scrypt.
//
// The cipher is stateless apart from the master secret and safe for
// concurrent use. Every Encrypt call draws a fresh salt and nonce from
// crypto/rand, so re-encrypting the same plaintext never yields the same
// envelope and keys are never shared across records.
type EnvelopeCipher struct {
	masterSecret *cryptoDomain.MasterSecret
}

// NewEnvelopeCipher creates an EnvelopeCipher bound to the given master secret.
func NewEnvelopeCipher(masterSecret *cryptoDomain.MasterSecret) *EnvelopeCipher {
	return &EnvelopeCipher{masterSecret: masterSecret}
}

// DeriveKey derives a 256-bit encryption key from the master secret and salt.
// Deterministic for identical inputs; the caller must zero the returned key
// after use with cryptoDomain.Zero.
func (e *EnvelopeCipher) DeriveKey(salt []byte) ([]byte, error) {
	key, err := scrypt.Key(e.masterSecret.Bytes(), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext into a base64 envelope.
func (e *EnvelopeCipher) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := e.DeriveKey(salt)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	// Seal appends the tag after the ciphertext; the envelope layout places
	// the tag before it, so split and reorder.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	envelope := make([]byte, 0, saltSize+nonceSize+tagSize+len(ciphertext))
	envelope = append(envelope, salt...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, tag...)
	envelope = append(envelope, ciphertext...)

	return base64.StdEncoding.EncodeToString(envelope), nil
}

// Decrypt opens a base64 envelope produced by Encrypt.
func (e *EnvelopeCipher) Decrypt(envelope string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if len(raw) < saltSize+nonceSize+tagSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	salt := raw[:saltSize]
	nonce := raw[saltSize : saltSize+nonceSize]
	tag := raw[saltSize+nonceSize : saltSize+nonceSize+tagSize]
	ciphertext := raw[saltSize+nonceSize+tagSize:]

	key, err := e.DeriveKey(salt)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

// newGCM builds an AES-256-GCM AEAD for the given 32-byte key.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}
