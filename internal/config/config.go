// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the webhook HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// LineChannelSecret is the LINE channel secret used to verify webhook signatures. Required for the server.
	LineChannelSecret string `mapstructure:"LINE_CHANNEL_SECRET"`
	// LineChannelAccessToken is the LINE channel access token used for reply/push API calls.
	LineChannelAccessToken string `mapstructure:"LINE_CHANNEL_ACCESS_TOKEN"`
	// LineAPIBaseURL is the LINE Messaging API base URL (default https://api.line.me).
	LineAPIBaseURL string `mapstructure:"LINE_API_BASE_URL"`
	// SessionTTLRaw is the conversation session inactivity window (e.g. "10m").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// RegistryTimeoutRaw is the bound on registry lookups during linking and reply composition (e.g. "3s").
	RegistryTimeoutRaw string `mapstructure:"REGISTRY_TIMEOUT"`
	// LinkCodeBcryptCost is the bcrypt cost factor (4–31) for hashing registry link codes; default 10.
	LinkCodeBcryptCost int `mapstructure:"LINK_CODE_BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC endpoint for traces/metrics/logs (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, the webhook server emits telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events (default busbot-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LINE_CHANNEL_SECRET", "")
	v.SetDefault("LINE_CHANNEL_ACCESS_TOKEN", "")
	v.SetDefault("LINE_API_BASE_URL", "https://api.line.me")
	v.SetDefault("SESSION_TTL", "10m")
	v.SetDefault("REGISTRY_TIMEOUT", "3s")
	v.SetDefault("LINK_CODE_BCRYPT_COST", 10)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "busbot-telemetry")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "busbot-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.LinkCodeBcryptCost == 0 {
		cfg.LinkCodeBcryptCost = 10
	}
	if cfg.LinkCodeBcryptCost < 4 || cfg.LinkCodeBcryptCost > 31 {
		return nil, errors.New("config: LINK_CODE_BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// RegistryTimeout parses RegistryTimeoutRaw as a time.Duration. Returns 3s if unset or invalid.
func (c *Config) RegistryTimeout() time.Duration {
	d, err := time.ParseDuration(c.RegistryTimeoutRaw)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
