// Package config provides application configuration management from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	SKILLGATE_HOST="0.0.0.0"
//	SKILLGATE_PORT="8080"
//	SKILLGATE_HEALTH_PORT="9090"
//	SKILLGATE_SHUTDOWN_TIMEOUT="30s"
//
// Database settings:
//
//	SKILLGATE_POSTGRES_URL="postgres://localhost/skillgate?sslmode=disable"
//	SKILLGATE_POSTGRES_MAX_CONNS="20"
//	SKILLGATE_POSTGRES_MIN_CONNS="2"
//
// Plugin settings:
//
//	SKILLGATE_PLUGIN_DIRS="/etc/skillgate/bundles:/opt/skillgate/bundles"
//	SKILLGATE_PLUGIN_SO_DIR="/opt/skillgate/plugins"
//	SKILLGATE_PREMIUM_BUNDLE="premium-skills"
//	SKILLGATE_PLUGIN_WATCH="true"
//	SKILLGATE_PLUGIN_S3_BUCKET="skillgate-bundles"
//
// Entitlement settings:
//
//	SKILLGATE_REDIS_URL="redis://localhost:6379/0"
//	SKILLGATE_EVENTS_CHANNEL="skillgate:entitlements"
//	SKILLGATE_CATALOG_CACHE_TTL="1m"
//
// Observability settings:
//
//	SKILLGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	SKILLGATE_LOG_FORMAT="json" # json, text
//	SKILLGATE_METRICS_ENABLED="true"
//	SKILLGATE_OTEL_ENABLED="true"
//	SKILLGATE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
