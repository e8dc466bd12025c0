// Package app wires the planning stack shared by the API server and the worker.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/config"
	"github.com/luc118i/operacional-app/internal/database"
	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/routing"
	"github.com/luc118i/operacional-app/internal/routing/openrouteservice"
	"github.com/luc118i/operacional-app/internal/routing/roadsegments"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/rules/remote"
	"github.com/luc118i/operacional-app/internal/scheme"
	"github.com/luc118i/operacional-app/internal/telemetry"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

// App holds the wired services.
type App struct {
	Pool       *pgxpool.Pool
	Registry   *resilience.Registry
	Resolver   *routing.Resolver
	Repository scheme.Repository
	Engine     *rules.Engine
	Planning   *planning.Service
	Directory  waypoint.Directory

	cache *routing.SQLiteCache
}

// Build connects to the database, opens the distance cache and wires the
// providers, the evaluation engine and the planning service. metrics may
// be nil.
func Build(ctx context.Context, cfg config.Config, metrics *telemetry.DomainMetrics, log zerolog.Logger) (*App, error) {
	a := &App{Registry: resilience.NewRegistry()}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.Pool = pool
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	if cfg.Routing.CachePath != "" {
		cache, err := routing.OpenSQLiteCache(ctx, cfg.Routing.CachePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open distance cache: %w", err)
		}
		a.cache = cache
		log.Info().Str("path", cfg.Routing.CachePath).Msg("distance cache opened")
	}

	resolverCfg := routing.ResolverConfig{
		Provider:        newProvider(cfg, a.Registry, log),
		Logger:          log,
		CacheTTL:        cfg.Routing.CacheTTL,
		StaleIfErrorTTL: cfg.Routing.StaleIfErrorTTL,
		PersistentTTL:   cfg.Routing.PersistentTTL,
		LookupTimeout:   cfg.Routing.LookupTimeout,
	}
	if a.cache != nil {
		resolverCfg.Cache = a.cache
	}
	if metrics != nil {
		resolverCfg.Metrics = metrics
	}
	a.Resolver = routing.NewResolver(resolverCfg)

	engineCfg := rules.EngineConfig{
		Thresholds: cfg.Rules,
		Logger:     log,
	}
	if cfg.Services.Backend.BaseURL != "" {
		engineCfg.Remote = remote.NewClient(remote.ClientConfig{
			BaseURL:  cfg.Services.Backend.BaseURL,
			Timeout:  cfg.Services.Backend.Timeout,
			Registry: a.Registry,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("backend not configured - evaluations use local rules only")
	}
	if metrics != nil {
		engineCfg.Observer = metrics
	}
	a.Engine = rules.NewEngine(engineCfg)

	a.Repository = scheme.NewPostgresRepository(pool)

	planningCfg := planning.Config{
		Repository:      a.Repository,
		Resolver:        a.Resolver,
		Engine:          a.Engine,
		Logger:          log,
		SessionTTL:      cfg.Sessions.TTL,
		CleanupInterval: cfg.Sessions.CleanupInterval,
	}
	if metrics != nil {
		planningCfg.Observer = metrics
	}
	a.Planning = planning.NewService(planningCfg)

	if cfg.Services.Backend.BaseURL != "" {
		a.Directory = waypoint.NewClient(waypoint.ClientConfig{
			BaseURL:  cfg.Services.Backend.BaseURL,
			Timeout:  cfg.Services.Backend.Timeout,
			Registry: a.Registry,
			Logger:   log,
		})
	} else {
		a.Directory = waypoint.NewPostgresDirectory(pool)
	}

	return a, nil
}

// newProvider returns the configured road-distance provider, or nil when
// lookups should use great-circle distances only.
func newProvider(cfg config.Config, registry *resilience.Registry, log zerolog.Logger) routing.Provider {
	switch cfg.Routing.Provider {
	case config.ProviderOpenRouteService:
		log.Info().Msg("road distances from openrouteservice")
		return openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.Services.OpenRouteService.APIKey,
			BaseURL:  cfg.Services.OpenRouteService.BaseURL,
			Profile:  cfg.Services.OpenRouteService.Profile,
			Timeout:  cfg.Services.OpenRouteService.Timeout,
			Registry: registry,
			Logger:   log,
		})
	case config.ProviderRoadSegments:
		if cfg.Services.Backend.BaseURL == "" {
			log.Warn().Msg("road-segments provider needs a backend base url - using great-circle distances")
			return nil
		}
		log.Info().Msg("road distances from the road-segment service")
		return roadsegments.NewClient(roadsegments.ClientConfig{
			BaseURL:  cfg.Services.Backend.BaseURL,
			Timeout:  cfg.Routing.LookupTimeout,
			Registry: registry,
			Logger:   log,
		})
	default:
		log.Info().Msg("road distance provider disabled - using great-circle distances")
		return nil
	}
}

// Close releases the database pool and the distance cache.
func (a *App) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
