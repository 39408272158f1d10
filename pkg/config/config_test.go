package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "course_catalog", cfg.Database.Name)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 0, cfg.RateLimit.RPS)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("ENABLE_CACHE", "true")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_RPS", "15")
	t.Setenv("LOG_FORMAT", "Console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15, cfg.RateLimit.RPS)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Env:       EnvProduction,
			Port:      8080,
			APIPrefix: "/api/v1",
			Log:       LogConfig{Format: "json"},
			RateLimit: RateLimitConfig{RPS: 5, Burst: 10},
		}
	}

	cases := map[string]func(*Config){
		"unknown env":       func(c *Config) { c.Env = "staging" },
		"port out of range": func(c *Config) { c.Port = 70000 },
		"relative prefix":   func(c *Config) { c.APIPrefix = "api" },
		"log format":        func(c *Config) { c.Log.Format = "xml" },
		"cache without ttl": func(c *Config) { c.Cache = CacheConfig{Enabled: true} },
		"negative rps":      func(c *Config) { c.RateLimit.RPS = -1 },
		"zero burst":        func(c *Config) { c.RateLimit.Burst = 0 },
	}

	base := valid()
	require.NoError(t, base.Validate())
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
