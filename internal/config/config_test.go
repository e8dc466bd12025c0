package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/config"
	"github.com/luc118i/operacional-app/internal/rules"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.ProviderRoadSegments, cfg.Routing.Provider)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, rules.DefaultThresholds(), cfg.Rules)
	assert.Equal(t, "prefer-remote", cfg.Evaluation.Strategy)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
routing:
  provider: none
  cache_ttl: 12h
sessions:
  ttl: 30m
rules:
  rest_stop:
    min: 250
    max: 320
  margin: 0.9
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, config.ProviderNone, cfg.Routing.Provider)
	assert.Equal(t, 12*time.Hour, cfg.Routing.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, rules.Window{Min: 250, Max: 320}, cfg.Rules.RestStop)
	assert.Equal(t, 0.9, cfg.Rules.Margin)
	// Untouched thresholds keep their defaults.
	assert.Equal(t, rules.Window{Min: 402, Max: 495}, cfg.Rules.SupportPoint)
	assert.Equal(t, 20, cfg.Rules.MinDwellMin)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("APP_PORT", "7070")
	t.Setenv("BACKEND_BASE_URL", "http://backend.internal:3000")
	t.Setenv("EVALUATION_STRATEGY", "merge-both")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "http://backend.internal:3000", cfg.Services.Backend.BaseURL)
	assert.Equal(t, "merge-both", cfg.Evaluation.Strategy)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown provider", body: "routing:\n  provider: teleport\n"},
		{name: "inverted window", body: "rules:\n  rest_stop:\n    min: 330\n    max: 262\n"},
		{name: "margin above one", body: "rules:\n  margin: 1.5\n"},
		{name: "unknown strategy", body: "evaluation:\n  strategy: coin-flip\n"},
		{name: "bad backend url", body: "services:\n  backend:\n    base_url: not a url\n"},
		{name: "ors without key", body: "routing:\n  provider: openrouteservice\n"},
		{name: "malformed yaml", body: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
