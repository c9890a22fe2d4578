// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Addr string
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

// ProcessorConfig configures the outbound payment processor gateway.
type ProcessorConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// SettlementConfig controls the settlement retry worker.
type SettlementConfig struct {
	Enabled      bool
	BatchSize    int
	PollInterval time.Duration
}

// TracingConfig configures the OTLP exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// Config is the root service configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	HTTP           HTTPConfig
	Database       DatabaseConfig
	Processor      ProcessorConfig
	Settlement     SettlementConfig
	Tracing        TracingConfig

	// ScheduleCacheTTL bounds how long fixture durations are cached.
	ScheduleCacheTTL time.Duration
}

// Load reads configuration from the environment with development defaults.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:    getEnv("SERVICE_NAME", "arbiter"),
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DB_DSN", "file:arbiter.db?cache=shared"),
		},
		Processor: ProcessorConfig{
			Provider: getEnv("PROCESSOR_PROVIDER", "stripe"),
			APIKey:   getEnv("PROCESSOR_API_KEY", ""),
			BaseURL:  getEnv("PROCESSOR_BASE_URL", "https://api.stripe.com"),
			Timeout:  getDuration("PROCESSOR_TIMEOUT", 10*time.Second),
		},
		Settlement: SettlementConfig{
			Enabled:      getBool("SETTLEMENT_WORKER_ENABLED", true),
			BatchSize:    getInt("SETTLEMENT_BATCH_SIZE", 20),
			PollInterval: getDuration("SETTLEMENT_POLL_INTERVAL", 30*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:          getBool("TRACING_ENABLED", false),
			ExporterEndpoint: getEnv("OTLP_ENDPOINT", ""),
			ExporterProtocol: getEnv("OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    getFloat("TRACING_SAMPLING_RATIO", 0.1),
		},
		ScheduleCacheTTL: getDuration("SCHEDULE_CACHE_TTL", 5*time.Minute),
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
