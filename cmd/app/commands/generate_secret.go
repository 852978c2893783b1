package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/connectkit/credvault/internal/crypto/domain"
)

// RunGenerateSecret generates a cryptographically secure master secret and
// prints it in env file format. The secret meets the minimum length the
// process enforces at startup.
func RunGenerateSecret(w io.Writer) error {
	raw := make([]byte, cryptoDomain.MinMasterSecretLength)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate master secret: %w", err)
	}

	encoded := base64.RawStdEncoding.EncodeToString(raw)
	cryptoDomain.Zero(raw)

	fmt.Fprintln(w, "# Add to your environment, e.g. via .env:")
	fmt.Fprintf(w, "ENCRYPTION_SECRET=%q\n", encoded)
	return nil
}
