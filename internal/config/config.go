// Package config provides centralized configuration management for gamedata.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	CSV      CSVConfig
	Transfer TransferConfig
	Watch    WatchConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including running transfers (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects and tunes the table store.
type StoreConfig struct {
	// Driver is file, sqlite or postgres (default: file)
	Driver string `env:"STORE_DRIVER" default:"file"`

	// DataDir holds <Table>.json files for the file driver (default: data)
	DataDir string `env:"STORE_DATA_DIR" default:"data"`

	// SQLitePath is the database file for the sqlite driver (default: data/gamedata.db)
	SQLitePath string `env:"STORE_SQLITE_PATH" default:"data/gamedata.db"`

	// DatabaseURL is the PostgreSQL connection string for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// CSVConfig holds the exchange folder settings.
type CSVConfig struct {
	// Folder receives <Table>.csv exports and is read by imports (default: csv)
	Folder string `env:"CSV_FOLDER" default:"csv"`
}

// TransferConfig holds import and export settings.
type TransferConfig struct {
	// MaxConcurrent is the number of transfers that may run at once (default: 1)
	MaxConcurrent int `env:"TRANSFER_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for a transfer slot (default: 30s)
	MaxWaitTime time.Duration `env:"TRANSFER_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of one transfer (default: 2m)
	Timeout time.Duration `env:"TRANSFER_TIMEOUT" default:"2m"`

	// MaxImportSize is the largest accepted CSV file in bytes (default: 32MB)
	MaxImportSize int64 `env:"TRANSFER_MAX_IMPORT_SIZE" default:"33554432"`

	// HistorySize is how many transfers are kept in the history (default: 200)
	HistorySize int `env:"TRANSFER_HISTORY_SIZE" default:"200"`
}

// WatchConfig holds settings for re-importing edited CSV files.
type WatchConfig struct {
	// Debounce is the quiet period after a write before importing (default: 500ms)
	Debounce time.Duration `env:"WATCH_DEBOUNCE" default:"500ms"`

	// Mode is the import mode used for changed files: update or replace (default: update)
	Mode string `env:"WATCH_IMPORT_MODE" default:"update"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects mutating routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP and
	// X-Forwarded-For headers are believed
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled serves metrics over HTTP (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the metrics route (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
