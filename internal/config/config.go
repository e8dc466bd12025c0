// Package config loads the service configuration from a YAML file, applies
// environment overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/luc118i/operacional-app/internal/database"
	"github.com/luc118i/operacional-app/internal/rules"
)

// Routing providers.
const (
	ProviderRoadSegments     = "road-segments"
	ProviderOpenRouteService = "openrouteservice"
	ProviderNone             = "none"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Database   database.Config  `yaml:"database"`
	Routing    RoutingConfig    `yaml:"routing"`
	Services   ServicesConfig   `yaml:"services"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Rules      rules.Thresholds `yaml:"rules"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port               int    `yaml:"port" validate:"gt=0,lte=65535"`
	Env                string `yaml:"env" validate:"required"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute" validate:"gte=0"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool          `yaml:"enabled"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint" validate:"required_if=Enabled true"`
	SampleRatio    float64       `yaml:"sample_ratio" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `yaml:"metric_interval" validate:"gte=0"`
}

// RoutingConfig configures the road distance resolver.
type RoutingConfig struct {
	Provider        string        `yaml:"provider" validate:"oneof=road-segments openrouteservice none"`
	CachePath       string        `yaml:"cache_path"`
	CacheTTL        time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	StaleIfErrorTTL time.Duration `yaml:"stale_if_error_ttl" validate:"gte=0"`
	PersistentTTL   time.Duration `yaml:"persistent_ttl" validate:"gte=0"`
	LookupTimeout   time.Duration `yaml:"lookup_timeout" validate:"gte=0"`
}

// ServiceEndpoint is an upstream HTTP service.
type ServiceEndpoint struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// OpenRouteServiceConfig configures the openrouteservice directions client.
type OpenRouteServiceConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Profile string        `yaml:"profile"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// ServicesConfig lists the upstream services.
type ServicesConfig struct {
	// Backend serves locations, road segments and rule evaluation.
	Backend          ServiceEndpoint        `yaml:"backend"`
	OpenRouteService OpenRouteServiceConfig `yaml:"openrouteservice"`
}

// SessionsConfig configures draft sessions.
type SessionsConfig struct {
	TTL             time.Duration `yaml:"ttl" validate:"gte=0"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" validate:"gte=0"`
}

// EvaluationConfig configures compliance evaluation.
type EvaluationConfig struct {
	Strategy string `yaml:"strategy" validate:"oneof=prefer-remote prefer-local merge-both"`
}

// WorkerConfig configures the Pub/Sub worker.
type WorkerConfig struct {
	ProjectID      string `yaml:"project_id"`
	Subscription   string `yaml:"subscription"`
	MaxOutstanding int    `yaml:"max_outstanding" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			Env:                "development",
			RateLimitPerMinute: 300,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint:   "localhost:4317",
			SampleRatio:    1,
			MetricInterval: 15 * time.Second,
		},
		Database: database.DefaultConfig(),
		Routing: RoutingConfig{
			Provider:  ProviderRoadSegments,
			CachePath: "road-distances.db",
		},
		Sessions: SessionsConfig{
			TTL:             2 * time.Hour,
			CleanupInterval: 5 * time.Minute,
		},
		Evaluation: EvaluationConfig{
			Strategy: string(rules.StrategyPreferRemote),
		},
		Rules: rules.DefaultThresholds(),
		Worker: WorkerConfig{
			Subscription:   "scheme-jobs",
			MaxOutstanding: 10,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg = cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Routing.Provider == ProviderOpenRouteService && c.Services.OpenRouteService.APIKey == "" {
		return errors.New("invalid config: openrouteservice requires an api key")
	}
	return nil
}

func (c Config) applyEnv() Config {
	if port, err := strconv.Atoi(os.Getenv("APP_PORT")); err == nil {
		c.Server.Port = port
	}
	c.Server.Env = getEnv("APP_ENV", c.Server.Env)

	if v := os.Getenv("OTEL_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true"
	}
	c.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.OTLPEndpoint)

	c.Database = c.Database.ApplyEnv()

	c.Routing.Provider = getEnv("ROUTING_PROVIDER", c.Routing.Provider)
	c.Routing.CachePath = getEnv("DISTANCE_CACHE_PATH", c.Routing.CachePath)

	c.Services.Backend.BaseURL = getEnv("BACKEND_BASE_URL", c.Services.Backend.BaseURL)
	c.Services.OpenRouteService.APIKey = getEnv("ORS_API_KEY", c.Services.OpenRouteService.APIKey)

	c.Evaluation.Strategy = getEnv("EVALUATION_STRATEGY", c.Evaluation.Strategy)

	c.Worker.ProjectID = getEnv("GCP_PROJECT_ID", c.Worker.ProjectID)
	c.Worker.Subscription = getEnv("PUBSUB_SUBSCRIPTION", c.Worker.Subscription)
	return c
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
