// Package main provides the entrypoint for the AeroWeather API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/aircraft"
	"github.com/aeroweather/aeroweather/internal/airport"
	"github.com/aeroweather/aeroweather/internal/api"
	"github.com/aeroweather/aeroweather/internal/api/handler"
	"github.com/aeroweather/aeroweather/internal/api/middleware"
	"github.com/aeroweather/aeroweather/internal/auth"
	"github.com/aeroweather/aeroweather/internal/database"
	"github.com/aeroweather/aeroweather/internal/featureflags"
	"github.com/aeroweather/aeroweather/internal/metar"
	"github.com/aeroweather/aeroweather/internal/metar/aviationweather"
	"github.com/aeroweather/aeroweather/internal/metar/avwx"
	"github.com/aeroweather/aeroweather/internal/metar/openmeteo"
	"github.com/aeroweather/aeroweather/internal/observability"
	"github.com/aeroweather/aeroweather/internal/provider/resilience"
	"github.com/aeroweather/aeroweather/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aeroweather-api"

	cfg := loadConfig()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Str("store", cfg.StoreBackend).
		Msg("starting AeroWeather API")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("sample_ratio", cfg.TraceSampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	weatherMetrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	clock := clockwork.NewRealClock()

	// Repositories
	var (
		userRepo     auth.UserRepository
		flightRepo   aircraft.Repository
		flagRepo     featureflags.Repository
		databasePing handler.Pinger
	)

	switch cfg.StoreBackend {
	case storePostgres:
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply database schema")
		}
		log.Info().
			Str("database_url", dbConfig.Redacted()).
			Int32("max_conns", dbConfig.MaxConns).
			Msg("database connected")

		userRepo = auth.NewPostgresUserRepository(pool)
		flightRepo = aircraft.NewPostgresRepository(pool, clock)
		flagRepo = featureflags.NewPostgresRepository(pool)
		databasePing = pool
	case storeMemory:
		log.Warn().Msg("using in-memory stores - data is lost on restart")
		userRepo = auth.NewInMemoryUserRepository()
		flightRepo = aircraft.NewInMemoryRepository(clock)
		flagRepo = featureflags.NewInMemoryRepository()
	default:
		log.Fatal().Str("store", cfg.StoreBackend).Msg("unknown STORE_BACKEND (use memory or postgres)")
	}

	// Initialize JWT service (get signing key from environment)
	jwtSigningKey := cfg.JWTSigningKey
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		TTL:        cfg.JWTTTL,
		Clock:      clock,
	})

	authService := auth.NewService(auth.ServiceConfig{
		JWTService: jwtService,
		UserRepo:   userRepo,
		Clock:      clock,
		Logger:     log,
	})
	if err := authService.EnsureDemoUser(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed demo user")
	}
	log.Info().Msg("auth service initialized")

	// Initialize feature flags service
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository: flagRepo,
		Logger:     log,
		CacheTTL:   cfg.FlagCacheTTL,
		Clock:      clock,
	})
	log.Info().Msg("feature flags service initialized")

	// Coordinate table for the forecast fallback
	airports := airport.DefaultTable()
	if cfg.AirportsCSV != "" {
		airports, err = airport.LoadFile(cfg.AirportsCSV)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.AirportsCSV).Msg("failed to load airport table")
		}
	}
	log.Info().Int("airports", airports.Len()).Msg("airport table loaded")

	// Weather providers, each behind its own circuit breaker
	registry := resilience.NewRegistryWithClock(clock)
	providerClient := func(name string, timeout time.Duration) *resilience.Client {
		httpCfg := resilience.DefaultClientConfig(name)
		httpCfg.Timeout = timeout
		httpCfg.Registry = registry
		httpCfg.Logger = log
		return resilience.NewClient(httpCfg)
	}

	var commercial metar.ObservationProvider
	if !cfg.DisableCommercial {
		commercial = avwx.NewClient(avwx.ClientConfig{
			APIKey:     cfg.AVWXAPIKey,
			BaseURL:    cfg.AVWXBaseURL,
			HTTPClient: providerClient(avwx.ProviderName, avwx.DefaultTimeout),
			Logger:     log,
		})
	}

	weatherService := metar.NewService(metar.ServiceConfig{
		Commercial: commercial,
		Government: aviationweather.NewClient(aviationweather.ClientConfig{
			BaseURL:    cfg.AviationWeatherURL,
			HTTPClient: providerClient(aviationweather.ProviderName, aviationweather.DefaultTimeout),
			Logger:     log,
		}),
		Forecast: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.OpenMeteoURL,
			HTTPClient: providerClient(openmeteo.ProviderName, openmeteo.DefaultTimeout),
			Logger:     log,
		}),
		Airports: airports,
		Flags:    ffService,
		Health:   registry,
		Metrics:  weatherMetrics,
		Tracer:   tp.Tracer,
		Logger:   log,
	})
	log.Info().
		Strs("providers", registry.Names()).
		Msg("weather service initialized")

	aircraftService := aircraft.NewService(flightRepo, log)

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            httpMetrics,
		AuthService:        authService,
		WeatherService:     weatherService,
		AircraftService:    aircraftService,
		FeatureFlagService: ffService,
		ProviderRegistry:   registry,
		RequireTLS:         cfg.RequireTLS,
		Database:           databasePing,
		Gatherer:           prometheus.DefaultGatherer,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
