package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseVars() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/pitchside",
		"JWT_SECRET":   "dev-secret",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := parse(baseVars())

	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*24*time.Hour, cfg.Auth.JWTExpiry())
	require.Equal(t, 5, cfg.RateLimit.AuthPerHour)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 15*time.Minute, cfg.Jobs.StatusRefreshInterval)
	require.True(t, cfg.Jobs.Enabled)
	require.False(t, cfg.Email.Enabled)
	require.False(t, cfg.AdminBootstrap.Enabled())
}

func TestParseOverridesAndLists(t *testing.T) {
	vars := baseVars()
	vars["SERVER_PORT"] = "9090"
	vars["CORS_ALLOWED_ORIGINS"] = "https://a.example,https://b.example"
	vars["LOG_FORMAT"] = "console"

	cfg, err := parse(vars)

	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, "console", cfg.Logging.Format)
}

func TestValidateRequiredValues(t *testing.T) {
	_, err := parse(map[string]string{})

	require.ErrorContains(t, err, "DATABASE_URL is required")
	require.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestValidateProductionSecretLength(t *testing.T) {
	vars := baseVars()
	vars["ENVIRONMENT"] = "production"

	_, err := parse(vars)

	require.ErrorContains(t, err, "at least 32 characters")
}

func TestValidateClientURL(t *testing.T) {
	vars := baseVars()
	vars["CLIENT_URL"] = "localhost:3000/app"

	_, err := parse(vars)
	require.ErrorContains(t, err, "invalid CLIENT_URL")

	vars["CLIENT_URL"] = "http://pitchside.example"
	vars["ENVIRONMENT"] = "production"
	vars["JWT_SECRET"] = "0123456789abcdef0123456789abcdef"
	_, err = parse(vars)
	require.ErrorContains(t, err, "URL must use HTTPS in production")

	vars["CLIENT_URL"] = "https://pitchside.example"
	_, err = parse(vars)
	require.NoError(t, err)
}

func TestValidateEmailProvider(t *testing.T) {
	vars := baseVars()
	vars["EMAIL_ENABLED"] = "true"

	_, err := parse(vars)
	require.ErrorContains(t, err, "RESEND_API_KEY is required")

	vars["EMAIL_PROVIDER"] = "pigeon"
	_, err = parse(vars)
	require.ErrorContains(t, err, "must be resend or smtp")
}

func TestReadFileFlattensValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pitchside.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database_url: postgres://file/db
SERVER_PORT: 7070
CORS_ALLOWED_ORIGINS:
  - https://one.example
  - https://two.example
`), 0o600))

	vars, err := readFile(path)

	require.NoError(t, err)
	require.Equal(t, "postgres://file/db", vars["DATABASE_URL"])
	require.Equal(t, "7070", vars["SERVER_PORT"])
	require.Equal(t, "https://one.example,https://two.example", vars["CORS_ALLOWED_ORIGINS"])
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pitchside.yaml")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL: postgres://file/db\nJWT_SECRET: from-file\nSERVER_PORT: 7070\n"), 0o600))
	t.Setenv("SERVER_PORT", "6060")
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	require.Equal(t, 6060, cfg.Server.Port)
	require.Equal(t, "postgres://file/db", cfg.Database.URL)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
}
