package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"lottoengine/database"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	DatabaseName     string `mapstructure:"DATABASE_NAME"`
	DatabaseMaxConns int32  `mapstructure:"DATABASE_MAX_CONNS"`

	// Redis holds committed server seeds until reveal
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// NATS configuration
	NATSServers string `mapstructure:"NATS_SERVERS"` // Comma-separated
	NATSEnabled bool   `mapstructure:"NATS_ENABLED"`

	// Engine tuning
	SeedTTLGrace        time.Duration `mapstructure:"SEED_TTL_GRACE"` // Seed kept this long past the draw time
	WorkerPollInterval  time.Duration `mapstructure:"WORKER_POLL_INTERVAL"`
	ClaimLockTimeout    time.Duration `mapstructure:"CLAIM_LOCK_TIMEOUT"`
	EntitlementCacheTTL time.Duration `mapstructure:"ENTITLEMENT_CACHE_TTL"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `mapstructure:"OTEL_ENABLED"`
	OTelServiceName          string `mapstructure:"OTEL_SERVICE_NAME"`
	OTelExporterType         string `mapstructure:"OTEL_EXPORTER_TYPE"` // otlp, console or none
	OTelOTLPEndpoint         string `mapstructure:"OTEL_EXPORTER_ENDPOINT"`
	OTelExportIntervalMillis int    `mapstructure:"OTEL_EXPORT_INTERVAL_MILLIS"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"` // text or json

	// Environment
	Environment string `mapstructure:"ENVIRONMENT"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = Load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// GetNATSServers returns the NATS server list
func (c *Config) GetNATSServers() []string {
	var servers []string
	for _, s := range strings.Split(c.NATSServers, ",") {
		if s = strings.TrimSpace(s); s != "" {
			servers = append(servers, s)
		}
	}
	return servers
}

// Load reads configuration from environment variables, with an optional .env style config file
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("lottoengine")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv picks it up during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_NAME", "")
	v.SetDefault("DATABASE_MAX_CONNS", 20)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("NATS_SERVERS", "nats://nats:4222")
	v.SetDefault("NATS_ENABLED", true)

	v.SetDefault("SEED_TTL_GRACE", "24h")
	v.SetDefault("WORKER_POLL_INTERVAL", "30s")
	v.SetDefault("CLAIM_LOCK_TIMEOUT", "5s")
	v.SetDefault("ENTITLEMENT_CACHE_TTL", "5m")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "lottoengine")
	v.SetDefault("OTEL_EXPORTER_TYPE", "none")
	v.SetDefault("OTEL_EXPORTER_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_EXPORT_INTERVAL_MILLIS", 10000)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("ENVIRONMENT", "development")
}

func (c *Config) validate() error {
	if c.Environment == "test" {
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SeedTTLGrace <= 0 {
		return fmt.Errorf("SEED_TTL_GRACE must be positive")
	}
	if c.WorkerPollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive")
	}
	if c.ClaimLockTimeout <= 0 {
		return fmt.Errorf("CLAIM_LOCK_TIMEOUT must be positive")
	}
	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		DatabaseMaxConns:    5,
		SeedTTLGrace:        24 * time.Hour,
		WorkerPollInterval:  time.Second,
		ClaimLockTimeout:    5 * time.Second,
		EntitlementCacheTTL: time.Minute,
		OTelExporterType:    "none",
		LogLevel:            "debug",
		LogFormat:           "text",
	}
}
