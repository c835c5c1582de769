package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("MODE", "")
	t.Setenv("MEDIA_DRIVER", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("CORS_ORIGINS_OFFLINE", "")

	cfg := FromEnv()
	assert.Equal(t, ModeOffline, cfg.Mode)
	assert.Equal(t, "fs", cfg.Media.Driver)
	assert.Equal(t, 5.0, cfg.RateLimit.RPS)
	assert.True(t, cfg.EnableLocalAuth)
	assert.Equal(t, cfg.CORSOriginsOffline, cfg.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("ENABLE_LOCAL_AUTH", "")
	t.Setenv("MEDIA_DRIVER", "s3")
	t.Setenv("MEDIA_BUCKET", "videos")
	t.Setenv("RATE_LIMIT_BURST", "7")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , https://b.example ,")

	cfg := FromEnv()
	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.False(t, cfg.EnableLocalAuth)
	assert.Equal(t, "videos", cfg.Media.Bucket)
	assert.Equal(t, 7, cfg.RateLimit.Burst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
}

func TestLoadYAMLOverlay(t *testing.T) {
	t.Setenv("MODE", "offline")
	t.Setenv("DB_DRIVER", "sqlite")
	dir := t.TempDir()
	p := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
db_driver: postgres
media:
  driver: gcs
  bucket: course-media
rate_limit:
  backend: "off"
`), 0o600))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "gcs", cfg.Media.Driver)
	assert.Equal(t, "course-media", cfg.Media.Bucket)
	assert.Equal(t, "off", cfg.RateLimit.Backend)
	// untouched keys keep their env values
	assert.Equal(t, ModeOffline, cfg.Mode)
}

func TestValidateRejectsDevSecretOnline(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_BACKEND", "")
	cfg := FromEnv()
	cfg.Mode = ModeOnline
	cfg.AuthSecret = "supersecret-dev-key"
	assert.Error(t, cfg.Validate())

	cfg.AuthSecret = "something-long-and-random"
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutOverlayValidates(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MODE", "online")
	t.Setenv("AUTH_HMAC_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_BACKEND", "")

	_, err := Load("")
	require.Error(t, err, "online mode must not start with the built-in secret")

	t.Setenv("AUTH_HMAC_SECRET", "something-long-and-random")
	t.Setenv("DB_DRIVER", "mysql")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("DB_DRIVER", "postgres")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModeOnline, cfg.Mode)
	assert.Equal(t, "something-long-and-random", cfg.AuthSecret)
}
