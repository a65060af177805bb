package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, []string{"https://adamcbloom.com", "https://www.adamcbloom.com"}, cfg.App.AllowedOrigins)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "", cfg.LLM.BaseURL)
	assert.Equal(t, 16000, cfg.LLM.BuildMaxTokens)
	assert.InDelta(t, 1.2, cfg.LLM.SurpriseTemperature, 1e-9)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 720*time.Hour, cfg.Site.TTL)
	assert.Equal(t, 7*720*time.Hour, cfg.PromptTTL())
	assert.Equal(t, 1500*time.Millisecond, cfg.Screenshot.Delay)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("SITE_TTL", "24h")
	t.Setenv("CEREBRAS_API_KEY", "fallback-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "production", cfg.Log.Environment)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Site.TTL)
	assert.Equal(t, "fallback-key", cfg.LLM.APIKey)
}

func TestLoad_UnparseableFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "not-a-port")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "PORT", "70000"},
		{"unknown environment", "ENVIRONMENT", "staging"},
		{"unknown store", "STORE_DRIVER", "etcd"},
		{"unknown provider", "LLM_PROVIDER", "llama"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"zero attempts", "SCREENSHOT_MAX_ATTEMPTS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresNeedsURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}
