package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "HOST", "ALLOWED_ORIGINS", "FRONTEND_URL", "FRONTEND_URL_2", "STORE_BACKEND",
		"SESSION_TIMEOUT", "SESSION_SWEEP_INTERVAL", "STORE_PING_INTERVAL", "REDIS_URI", "POSTGRES_URI",
		"CLOUDINARY_CLOUD_NAME", "CLOUDINARY_API_KEY", "CLOUDINARY_API_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Empty(t, cfg.AllowedHost)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, 15*time.Second, cfg.StorePingInterval)
	assert.Empty(t, cfg.RedisURI)
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "Production")
	t.Setenv("HOST", "https://api.adote.example:443/v1")
	t.Setenv("ALLOWED_ORIGINS", " https://adote.example , https://www.adote.example,")
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("SESSION_TIMEOUT", "45m")
	t.Setenv("SESSION_SWEEP_INTERVAL", "-1m")
	t.Setenv("STORE_PING_INTERVAL", "soon")
	t.Setenv("CLOUDINARY_CLOUD_NAME", "demo")
	t.Setenv("CLOUDINARY_API_KEY", "key")
	t.Setenv("CLOUDINARY_API_SECRET", "secret")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "api.adote.example", cfg.AllowedHost)
	assert.Equal(t, []string{"https://adote.example", "https://www.adote.example"}, cfg.AllowedOrigins)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 45*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, 10*time.Minute, cfg.SessionSweepInterval)
	assert.Equal(t, 15*time.Second, cfg.StorePingInterval)
	assert.True(t, cfg.CloudinaryEnabled())
}

func TestUnknownBackendFallsBackToMongo(t *testing.T) {
	t.Setenv("STORE_BACKEND", "cassandra")
	assert.Equal(t, BackendMongo, Load().StoreBackend)
}
