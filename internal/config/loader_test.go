package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalTOML = `
mode = "serve"

[psp]
base_url = "https://psp.example"
api_key = "sk_test"

[webhook]
secret = "whsec_test"
`

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalTOML+`
[server]
port = 9000

[auction]
epsilon_cents = 5
dedup_retention = "12h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, int64(5), cfg.Auction.EpsilonCents)
	assert.Equal(t, 12*time.Hour, cfg.Auction.DedupRetention.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, int64(50), cfg.Auction.MinPaymentCents)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Webhook.ToleranceWindow.Duration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, minimalTOML+`
[postgres]
password = "from-file"
`)

	t.Setenv("MASRICO_POSTGRES_PASSWORD", "from-env")
	t.Setenv("MASRICO_SERVER_PORT", "9100")
	t.Setenv("MASRICO_WEBHOOK_TOLERANCE_WINDOW", "90s")
	t.Setenv("MASRICO_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MASRICO_ARCHIVE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Postgres.Password)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Webhook.ToleranceWindow.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Archive.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate_DefaultsPlusServeCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.PSP.BaseURL = "https://psp.example"
	cfg.PSP.APIKey = "sk_test"
	cfg.Webhook.Secret = "whsec_test"

	assert.NoError(t, cfg.Validate())
}

func TestValidate_ServeModeRequiresPSPAndSecret(t *testing.T) {
	cfg := Defaults()

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "psp: base_url must not be empty")
	assert.ErrorContains(t, err, "webhook: either secret or encrypted_path must be set")
}

func TestValidate_ArchiveModeSkipsServeCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"

	// Archive mode needs object storage, not processor credentials.
	assert.NoError(t, cfg.Validate())

	cfg.S3.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "s3: bucket must not be empty")
}

func TestValidate_RejectsUnknownMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "worker"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, `unknown mode "worker"`)
}

func TestValidate_EncryptedSecretNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.PSP.BaseURL = "https://psp.example"
	cfg.PSP.APIKey = "sk_test"
	cfg.Webhook.EncryptedPath = "/etc/masrico/webhook_secret.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "webhook: secret_password is required")
}

func TestValidate_AuctionBounds(t *testing.T) {
	cfg := Defaults()
	cfg.PSP.BaseURL = "https://psp.example"
	cfg.PSP.APIKey = "sk_test"
	cfg.Webhook.Secret = "whsec_test"
	cfg.Auction.EpsilonCents = 0
	cfg.Auction.MinPaymentCents = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "auction: min_payment_cents must be >= 1")
	assert.ErrorContains(t, err, "auction: epsilon_cents must be >= 1")
}
