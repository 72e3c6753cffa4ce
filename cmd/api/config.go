package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	storeMemory   = "memory"
	storePostgres = "postgres"
)

// config holds the process configuration read from the environment.
type config struct {
	Port         string
	Env          string
	StoreBackend string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	JWTTTL        time.Duration

	AVWXAPIKey          string
	AVWXBaseURL         string
	AviationWeatherURL  string
	OpenMeteoURL        string
	AirportsCSV         string
	FlagCacheTTL        time.Duration
	DisableCommercial   bool
	OTLPEndpoint        string
	TelemetryEnabled    bool
	TraceSampleRatio    float64
	ShutdownGracePeriod time.Duration
	RequireTLS          bool
}

func loadConfig() config {
	return config{
		Port:         getEnvOrDefault("APP_PORT", "8080"),
		Env:          getEnvOrDefault("APP_ENV", "development"),
		StoreBackend: strings.ToLower(getEnvOrDefault("STORE_BACKEND", storeMemory)),

		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     getEnvOrDefault("JWT_ISSUER", "https://api.aeroweather.local"),
		JWTAudience:   getEnvOrDefault("JWT_AUDIENCE", "aeroweather-api"),
		JWTTTL:        getDurationOrDefault("JWT_TTL", time.Hour),

		AVWXAPIKey:          os.Getenv("AVWX_API_KEY"),
		AVWXBaseURL:         os.Getenv("AVWX_BASE_URL"),
		AviationWeatherURL:  os.Getenv("AVIATIONWEATHER_URL"),
		OpenMeteoURL:        os.Getenv("OPEN_METEO_URL"),
		AirportsCSV:         os.Getenv("AIRPORTS_CSV"),
		FlagCacheTTL:        getDurationOrDefault("FLAG_CACHE_TTL", time.Minute),
		DisableCommercial:   getBoolOrDefault("AVWX_DISABLED", false),
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:    getBoolOrDefault("OTEL_ENABLED", false),
		TraceSampleRatio:    getFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 1),
		ShutdownGracePeriod: getDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		RequireTLS:          getBoolOrDefault("REQUIRE_TLS", false),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}
