package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEncryptedSecret(t *testing.T, secret, password string) string {
	t.Helper()
	blob, err := EncryptSecret(secret, password)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "webhook_secret.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))
	return path
}

func TestLoadSecret_RawSecretWins(t *testing.T) {
	secret, err := LoadSecret(SecretConfig{
		RawSecret:     "whsec_plain",
		EncryptedPath: "/nonexistent/path.json",
	})
	require.NoError(t, err)
	assert.Equal(t, "whsec_plain", secret)
}

func TestLoadSecret_EncryptedRoundtrip(t *testing.T) {
	path := writeEncryptedSecret(t, "whsec_encrypted", "hunter2")

	secret, err := LoadSecret(SecretConfig{EncryptedPath: path, Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "whsec_encrypted", secret)
}

func TestLoadSecret_WrongPassword(t *testing.T) {
	path := writeEncryptedSecret(t, "whsec_encrypted", "hunter2")

	_, err := LoadSecret(SecretConfig{EncryptedPath: path, Password: "wrong"})
	assert.ErrorContains(t, err, "wrong password or corrupted file")
}

func TestLoadSecret_NoSecretConfigured(t *testing.T) {
	_, err := LoadSecret(SecretConfig{})
	assert.ErrorContains(t, err, "no webhook secret configured")
}

func TestLoadSecret_MissingFile(t *testing.T) {
	_, err := LoadSecret(SecretConfig{
		EncryptedPath: filepath.Join(t.TempDir(), "absent.json"),
		Password:      "hunter2",
	})
	assert.ErrorContains(t, err, "read encrypted secret")
}

func TestEncryptSecret_EmptyPassword(t *testing.T) {
	_, err := EncryptSecret("whsec_x", "")
	assert.ErrorContains(t, err, "password must not be empty")
}

func TestEncryptSecret_UniqueSaltAndNonce(t *testing.T) {
	a, err := EncryptSecret("whsec_x", "hunter2")
	require.NoError(t, err)
	b, err := EncryptSecret("whsec_x", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
