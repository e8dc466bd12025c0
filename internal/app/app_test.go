package app

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luc118i/operacional-app/internal/config"
	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/routing/openrouteservice"
	"github.com/luc118i/operacional-app/internal/routing/roadsegments"
)

func TestNewProvider(t *testing.T) {
	registry := resilience.NewRegistry()

	t.Run("road segments", func(t *testing.T) {
		cfg := config.Default()
		cfg.Services.Backend.BaseURL = "http://backend.local"

		p := newProvider(cfg, registry, zerolog.Nop())

		require.NotNil(t, p)
		assert.Equal(t, roadsegments.ProviderName, p.Name())
	})

	t.Run("road segments without backend", func(t *testing.T) {
		p := newProvider(config.Default(), registry, zerolog.Nop())
		assert.Nil(t, p)
	})

	t.Run("openrouteservice", func(t *testing.T) {
		cfg := config.Default()
		cfg.Routing.Provider = config.ProviderOpenRouteService
		cfg.Services.OpenRouteService.APIKey = "test-key"

		p := newProvider(cfg, registry, zerolog.Nop())

		require.NotNil(t, p)
		assert.Equal(t, openrouteservice.ProviderName, p.Name())
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Routing.Provider = config.ProviderNone

		assert.Nil(t, newProvider(cfg, registry, zerolog.Nop()))
	})
}
