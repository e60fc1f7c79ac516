package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yukifiles/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origWd) })
}

func TestLoad_FromEnvFile(t *testing.T) {
	td := t.TempDir()

	envContent := `APP_ENV=development
HTTP_PORT=9090
JWT_TOKEN=very_very_secret_key

DEFAULT_QUOTA_LIMIT_BYTES=2048
DEFAULT_FILE_VISIBILITY=public
AUTH_RATE_LIMIT=5
AUTH_RATE_LIMIT_WINDOW=30m

RISK_DENY_THRESHOLD=80

POSTGRES_HOST=localhost
POSTGRES_PORT=5433
POSTGRES_USER=yuki
POSTGRES_PASSWORD=2529
POSTGRES_DB=yukifiles

REDIS_HOST=localhost
REDIS_PORT=6380
`
	require.NoError(t, os.WriteFile(filepath.Join(td, ".env"), []byte(envContent), 0o644))
	chdir(t, td)

	// cleanenv's .env parser calls os.Setenv for every key in the file;
	// register each key with t.Setenv so the pollution is undone on cleanup.
	for _, key := range []string{
		"APP_ENV", "HTTP_PORT", "JWT_TOKEN",
		"DEFAULT_QUOTA_LIMIT_BYTES", "DEFAULT_FILE_VISIBILITY",
		"AUTH_RATE_LIMIT", "AUTH_RATE_LIMIT_WINDOW",
		"RISK_DENY_THRESHOLD",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"REDIS_HOST", "REDIS_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.True(t, cfg.Development())
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "very_very_secret_key", cfg.JWTSecret)

	assert.Equal(t, int64(2048), cfg.DefaultQuotaLimit)
	assert.Equal(t, "public", cfg.DefaultVisibility)
	assert.Equal(t, 5, cfg.RateLimit)
	assert.Equal(t, 30*time.Minute, cfg.RateLimitWindow)

	assert.Equal(t, 80, cfg.Risk.DenyThreshold)
	// Weights not present in the file keep their defaults.
	assert.Equal(t, 50, cfg.Risk.VPN)
	assert.Equal(t, 0.8, cfg.Risk.SimilarityThreshold)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "yuki", cfg.Postgres.Username)
	assert.Equal(t, "yukifiles", cfg.Postgres.Database)
	assert.Equal(t, "6380", cfg.Redis.Port)
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_TOKEN", "env_secret")
	t.Setenv("APP_ENV", "production")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "env_secret", cfg.JWTSecret)
	assert.False(t, cfg.Development())
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "private", cfg.DefaultVisibility)
	assert.Equal(t, int64(1073741824), cfg.DefaultQuotaLimit)
}

func TestLoad_MissingSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("JWT_TOKEN", "placeholder")
	require.NoError(t, os.Unsetenv("JWT_TOKEN"))

	_, err := config.Load()
	assert.Error(t, err)
}
