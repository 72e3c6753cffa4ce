// Package api provides the HTTP API for AeroWeather.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/aircraft"
	"github.com/aeroweather/aeroweather/internal/api/handler"
	"github.com/aeroweather/aeroweather/internal/api/middleware"
	"github.com/aeroweather/aeroweather/internal/api/response"
	"github.com/aeroweather/aeroweather/internal/auth"
	"github.com/aeroweather/aeroweather/internal/featureflags"
	"github.com/aeroweather/aeroweather/internal/metar"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	AuthService        *auth.Service
	WeatherService     *metar.Service
	AircraftService    *aircraft.Service
	FeatureFlagService *featureflags.Service
	ProviderRegistry   *resilience.Registry

	// RequireTLS rejects requests forwarded as plain HTTP.
	RequireTLS bool

	// Database is pinged by the readiness and status endpoints when set.
	Database handler.Pinger

	// Gatherer is exposed on /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aeroweather-api"
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.NotFound(w, req, "no route for "+req.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.MethodNotAllowed(w, req, req.Method+" is not supported on "+req.URL.Path)
	})

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.ProviderRegistry,
		Flags:     cfg.FeatureFlagService,
		Database:  cfg.Database,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(cfg.WeatherService, cfg.Logger)
	aircraftHandler := handler.NewAircraftHandler(cfg.AircraftService, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.AuthService)

	loginRateLimit := middleware.RateLimitByIP(middleware.LoginRateLimit)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(loginRateLimit) // 10 requests per minute per IP
			r.Use(middleware.RequireJSON)
			r.Post("/login", authHandler.Login)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Weather lookups call external providers - expensive rate limiting
		r.Route("/weather", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.WeatherRateLimit)) // 30 req/min per user
			r.Get("/{icao}", weatherHandler.GetWeather)
		})

		// Flight legs (authenticated) - user-based rate limiting
		r.Route("/aircraft", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit)) // 100 req/min per user
			r.Use(middleware.RequireJSON)
			r.Get("/", aircraftHandler.ListFlightLegs)
			r.Post("/", aircraftHandler.CreateFlightLeg)
			r.Get("/export.csv", aircraftHandler.ExportCSV)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RateLimitByUser(middleware.StandardRateLimit))
			r.Use(middleware.RequireJSON)

			// User management
			r.Route("/users", func(r chi.Router) {
				r.Get("/", authHandler.ListUsers)
				r.Post("/", authHandler.CreateUser)
			})

			// Feature flags management
			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
