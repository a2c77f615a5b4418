package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fitzroyhq/tokend/pkg/jwtx"
)

type Config struct {
	Issuer   string   // Required: issuer claim for both token classes
	Audience []string // Required: accepted audience values

	AccessSecret  string // Optional: explicit HS256 secret for access tokens
	RefreshSecret string // Optional: explicit HS256 secret for refresh tokens
	MasterSecret  string // Optional: both class secrets derived from this via HKDF

	AccessTTL  time.Duration // Access token lifetime (default: 1h)
	RefreshTTL time.Duration // Refresh token lifetime (default: 168h)

	MaxSessions        int    // Concurrent sessions per user, 0 = unlimited (default: 5)
	SessionLimitPolicy string // What a login over the limit does (reject, evict_oldest) (default: reject)

	StoreDriver  string // Refresh token store backend (sqlite, postgres, redis, memory) (default: sqlite)
	DatabaseFile string // Path to SQLite database file (default: ./tokend.db)
	DatabaseURL  string // Postgres connection string (required for the postgres driver)
	RedisAddr    string // Redis address (required for the redis driver)

	DirectoryURL  string // Optional: base URL of an upstream user directory service
	DirectoryFile string // Optional: path to a static JSON user directory
	DirectoryJSON string // Optional: inline JSON user directory (containers, tests)

	Env                   string        // Environment (dev, staging, prod) (default: dev)
	LogLevel              string        // Log level (debug, info, warn, error) (default: info)
	LogFormat             string        // Log format (json, text) (default: json)
	Port                  int           // HTTP server port (default: 8080)
	ShutdownGracePeriod   time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval  time.Duration // Expired record prune interval (default: 1h)
	HousekeepingRetention time.Duration // How long expired records stay prunable-but-kept (default: 720h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:   getEnvOrDefault("TOKEND_ISSUER", "tokend"),
		Audience: splitCSV(getEnvOrDefault("TOKEND_AUDIENCE", "tokend")),

		AccessSecret:  os.Getenv("TOKEND_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("TOKEND_REFRESH_SECRET"),
		MasterSecret:  os.Getenv("TOKEND_MASTER_SECRET"),

		AccessTTL:  getEnvDurationOrDefault("TOKEND_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL: getEnvDurationOrDefault("TOKEND_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		MaxSessions:        getEnvIntOrDefault("TOKEND_MAX_SESSIONS", 5),
		SessionLimitPolicy: getEnvOrDefault("TOKEND_SESSION_LIMIT_POLICY", "reject"),

		StoreDriver:  getEnvOrDefault("TOKEND_STORE_DRIVER", "sqlite"),
		DatabaseFile: getEnvOrDefault("TOKEND_DATABASE_FILE", "tokend.db"),
		DatabaseURL:  os.Getenv("TOKEND_DATABASE_URL"),
		RedisAddr:    os.Getenv("TOKEND_REDIS_ADDR"),

		DirectoryURL:  os.Getenv("TOKEND_DIRECTORY_URL"),
		DirectoryFile: os.Getenv("TOKEND_DIRECTORY_FILE"),
		DirectoryJSON: os.Getenv("TOKEND_USERS"),

		Env:                   getEnvOrDefault("ENV", "dev"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:             getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                  getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:   getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval:  getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		HousekeepingRetention: getEnvDurationOrDefault("HOUSEKEEPING_RETENTION", 30*24*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
