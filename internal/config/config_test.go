package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "hospitals", cfg.HospitalsTable)
	assert.Equal(t, "cold_emails", cfg.ColdEmailsTable)
	assert.Equal(t, time.Duration(0), cfg.ResyncInterval)
	assert.Equal(t, 60, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 587, cfg.Mail.Port)

	tag, err := cfg.Language()
	require.NoError(t, err)
	assert.Equal(t, language.English, tag)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("RESYNC_INTERVAL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MAIL_HOST", "smtp.example")
	t.Setenv("PORT", "9090")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.ResyncInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "smtp.example", cfg.Mail.Host)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HOSPITALS_TABLE=prospects\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HOSPITALS_TABLE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prospects", cfg.HospitalsTable)
}

func TestLoadBadCollation(t *testing.T) {
	t.Setenv("COLLATION", "!!")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	t.Setenv("RESYNC_INTERVAL", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "parse env:")
}

func TestBuildVersion(t *testing.T) {
	t.Setenv("APP_VERSION", "2024.06.1")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "2024.06.1", cfg.BuildVersion())

	assert.NotEmpty(t, Config{}.BuildVersion())
}
