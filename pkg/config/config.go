package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Plugin bundle sources
	Plugins PluginConfig

	// Entitlement change events and catalog cache
	Entitlements EntitlementsConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// PluginConfig lists where optional skill bundles are looked up
type PluginConfig struct {
	// Directories holding <bundle>/bundle.yaml manifests
	ManifestDirs []string
	// Directory holding <bundle>.so Go plugins
	SharedObjectDir string
	// Bundle loaded at startup
	PremiumBundle string
	// Watch ManifestDirs for newly installed bundles
	Watch bool

	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	S3AccessKey    string
	S3SecretKey    string
}

// EntitlementsConfig holds entitlement event and cache settings
type EntitlementsConfig struct {
	RedisURL      string
	EventsChannel string
	CacheTTL      time.Duration
	CacheSize     int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  logrus.Level
	LogFormat string

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
	OTelSampleRatio    float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Plugins:       loadPluginConfig(),
		Entitlements:  loadEntitlementsConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SKILLGATE_HOST", "0.0.0.0"),
		Port:            getEnv("SKILLGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SKILLGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SKILLGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SKILLGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SKILLGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SKILLGATE_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("SKILLGATE_POSTGRES_URL", ""),
		MaxConns: getEnvInt("SKILLGATE_POSTGRES_MAX_CONNS", 20),
		MinConns: getEnvInt("SKILLGATE_POSTGRES_MIN_CONNS", 2),
		Timeout:  getEnvDuration("SKILLGATE_POSTGRES_TIMEOUT", 10*time.Second),
	}
}

func loadPluginConfig() PluginConfig {
	return PluginConfig{
		ManifestDirs:    getEnvList("SKILLGATE_PLUGIN_DIRS"),
		SharedObjectDir: getEnv("SKILLGATE_PLUGIN_SO_DIR", ""),
		PremiumBundle:   getEnv("SKILLGATE_PREMIUM_BUNDLE", "premium-skills"),
		Watch:           getEnvBool("SKILLGATE_PLUGIN_WATCH", false),
		S3Bucket:        getEnv("SKILLGATE_PLUGIN_S3_BUCKET", ""),
		S3Prefix:        getEnv("SKILLGATE_PLUGIN_S3_PREFIX", "bundles"),
		S3Region:        getEnv("SKILLGATE_PLUGIN_S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("SKILLGATE_PLUGIN_S3_ENDPOINT", ""),
		S3UsePathStyle:  getEnvBool("SKILLGATE_PLUGIN_S3_USE_PATH_STYLE", false),
		S3AccessKey:     getEnv("SKILLGATE_PLUGIN_S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("SKILLGATE_PLUGIN_S3_SECRET_KEY", ""),
	}
}

func loadEntitlementsConfig() EntitlementsConfig {
	return EntitlementsConfig{
		RedisURL:      getEnv("SKILLGATE_REDIS_URL", ""),
		EventsChannel: getEnv("SKILLGATE_EVENTS_CHANNEL", "skillgate:entitlements"),
		CacheTTL:      getEnvDuration("SKILLGATE_CATALOG_CACHE_TTL", time.Minute),
		CacheSize:     getEnvInt("SKILLGATE_CATALOG_CACHE_SIZE", 128),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("SKILLGATE_LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("SKILLGATE_LOG_FORMAT", "json")),
		MetricsEnabled:     getEnvBool("SKILLGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SKILLGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SKILLGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SKILLGATE_OTEL_SERVICE_NAME", "skillgate"),
		OTelServiceVersion: getEnv("SKILLGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SKILLGATE_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("SKILLGATE_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("postgres max connections must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("postgres min connections (%d) exceeds max connections (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Plugins.Watch && len(c.Plugins.ManifestDirs) == 0 {
		return fmt.Errorf("plugin watching requires at least one plugin directory")
	}
	if c.Plugins.S3Endpoint != "" && c.Plugins.S3Bucket == "" {
		return fmt.Errorf("S3 bucket is required when an S3 endpoint is set")
	}

	switch c.Observability.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Observability.LogFormat)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if r := c.Observability.OTelSampleRatio; r <= 0 || r > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be in (0, 1], got %v", r)
		}
	}

	return nil
}

// parseLogLevel parses a log level string, defaulting to info
func parseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a path-list environment variable (":" on unix) into
// its non-empty entries
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range filepath.SplitList(value) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
