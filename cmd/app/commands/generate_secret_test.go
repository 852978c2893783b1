package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/connectkit/credvault/internal/crypto/domain"
)

func TestRunGenerateSecret(t *testing.T) {
	var out bytes.Buffer
	err := RunGenerateSecret(&out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], `ENCRYPTION_SECRET="`))

	secret := strings.TrimSuffix(strings.TrimPrefix(lines[1], `ENCRYPTION_SECRET="`), `"`)
	require.GreaterOrEqual(t, len(secret), cryptoDomain.MinMasterSecretLength)

	// The generated secret must pass startup validation.
	masterSecret, err := cryptoDomain.NewMasterSecret(secret)
	require.NoError(t, err)
	masterSecret.Close()
}
