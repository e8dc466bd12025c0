// Package api provides the HTTP API for scheme planning.
package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/luc118i/operacional-app/internal/api/handler"
	"github.com/luc118i/operacional-app/internal/api/middleware"
	"github.com/luc118i/operacional-app/internal/planning"
	"github.com/luc118i/operacional-app/internal/provider/resilience"
	"github.com/luc118i/operacional-app/internal/rules"
	"github.com/luc118i/operacional-app/internal/waypoint"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	// Metrics records HTTP server metrics (optional).
	Metrics *middleware.Metrics

	// Registry reports upstream provider health (optional).
	Registry *resilience.Registry
	// DB is pinged by the readiness check (optional).
	DB handler.Pinger

	Planning        *planning.Service
	Directory       waypoint.Directory
	DefaultStrategy rules.Strategy

	// RateLimitPerMinute overrides the standard per-IP limit when > 0.
	RateLimitPerMinute int
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Recovery sits inside Logger so panics are logged as 500s.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry, cfg.DB)
	waypointHandler := handler.NewWaypointHandler(cfg.Directory, cfg.Logger)
	draftHandler := handler.NewDraftHandler(cfg.Planning, cfg.DefaultStrategy, cfg.Logger)

	standard := middleware.StandardRateLimit
	if cfg.RateLimitPerMinute > 0 {
		standard = middleware.RateLimitConfig{RequestLimit: cfg.RateLimitPerMinute, WindowLength: time.Minute}
	}
	standardRateLimit := middleware.RateLimitByIP(standard)
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	editRateLimit := middleware.RateLimitByDraft(middleware.EditRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/providers", opsHandler.ProviderStatus)
		})

		r.Route("/waypoints", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", waypointHandler.SearchWaypoints)
			r.Get("/{waypointId}", waypointHandler.GetWaypoint)
		})

		r.With(standardRateLimit, middleware.RequireJSON).Post("/schemes/{schemeId}/drafts", draftHandler.OpenScheme)

		r.Route("/drafts", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/", draftHandler.CreateDraft)

			r.Route("/{draftId}", func(r chi.Router) {
				r.Use(editRateLimit)
				r.Get("/", draftHandler.GetDraft)
				r.Delete("/", draftHandler.CloseDraft)
				r.Put("/header", draftHandler.UpdateHeader)
				r.Get("/summary", draftHandler.GetSummary)
				r.Put("/anchor", draftHandler.SetAnchor)

				r.Route("/points", func(r chi.Router) {
					r.Post("/", draftHandler.AppendPoint)
					r.Route("/{pointId}", func(r chi.Router) {
						r.Patch("/", draftHandler.UpdatePoint)
						r.Delete("/", draftHandler.DeletePoint)
						r.Post("/insert-after", draftHandler.InsertPointAfter)
						r.Post("/move-up", draftHandler.MovePointUp)
						r.Post("/move-down", draftHandler.MovePointDown)
					})
				})

				// Upstream calls
				r.With(expensiveRateLimit).Post("/refresh-distances", draftHandler.RefreshDistances)
				r.With(expensiveRateLimit).Get("/evaluation", draftHandler.Evaluate)
				r.Post("/save", draftHandler.SaveDraft)
			})
		})
	})

	return r
}
