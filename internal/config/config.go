// Package config provides configuration management for the OAuth installation
// manager. Values come from environment variables (a .env file is loaded by
// the process entry point) with defaults suited to a single-node deployment.
//
// OAuth client credentials are optional at startup: when they are absent the
// callback endpoint accepts them per request and reports missing_credentials
// otherwise.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: console or json (default: console)
//   - LOG_FILE: Log file path (default: stdout)
//   - TLS_CERT_FILE / TLS_KEY_FILE: Serve HTTPS when both are set
//
// OAuth Provider:
//   - CLIENT_ID, CLIENT_SECRET, REDIRECT_URI: Marketplace app credentials
//   - PROVIDER_BASE_URL: API base (default: https://services.leadconnectorhq.com)
//   - MARKETPLACE_URL: Install flow base (default: https://marketplace.gohighlevel.com)
//   - OAUTH_SCOPES: Space separated scopes for the install URL
//   - PROVIDER_TIMEOUT: Per call timeout (default: 15s)
//   - SUCCESS_REDIRECT_URL: Callback success target (default: /installation-success)
//   - ERROR_REDIRECT_URL: Callback failure target (default: /oauth-error)
//
// Token Lifecycle:
//   - ENABLE_AUTO_REFRESH: Arm refresh timers and the reconcile job (default: true)
//   - AUTO_REFRESH_INTERVAL_MINUTES: Reconcile job interval (default: 30)
//   - REFRESH_PADDING: Minimum lead time before expiry for timers (default: 10m)
//   - STATUS_BUFFER: Window reported as expiring_soon (default: 10m)
//   - REFRESH_BUFFER: Window that triggers proactive refresh on reconcile (default: 1h)
//   - BULK_REFRESH_CONCURRENCY: Parallel refreshes per bulk request (default: 4)
//   - INSTALLATION_RETENTION_DAYS: Delete failed installations older than this (default: 0, disabled)
//   - ENABLE_LOCATION_DISCOVERY: Query the provider when the token has no location (default: false)
//
// Storage:
//   - STORE_TYPE: memory, redis, sqlite or postgres (default: memory)
//   - DATABASE_PATH: SQLite database file path (default: ./ghl_installations.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_SSL_MODE
//   - CONFIG_ENCRYPTION_KEY: Encrypts tokens at rest (32 characters if provided)
//
// Redis Configuration (optional, enables distributed refresh locks):
//   - REDIS_ADDRESS: Redis server address (default: empty, disabled)
//   - REDIS_PASSWORD, REDIS_DB (0-15), REDIS_POOL_SIZE (default: 10)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT_DEFAULT: Requests per window per client (default: 60)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
//
// Lifecycle Events:
//   - EVENTS_BACKEND: none, redis or rabbitmq (default: none)
//   - EVENTS_CHANNEL: Redis channel (default: ghl:events)
//   - RABBITMQ_URL: RabbitMQ connection URL
//   - EVENTS_EXCHANGE: RabbitMQ fanout exchange (default: ghl.installations)
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	EventsNone     = "none"
	EventsRedis    = "redis"
	EventsRabbitMQ = "rabbitmq"
)

// Config holds all configuration values for the service.
type Config struct {
	// Application settings
	Port        string
	LogLevel    string
	LogFile     string
	TLSCertFile string
	TLSKeyFile  string

	// OAuth provider
	ClientID           string
	ClientSecret       string
	RedirectURI        string
	ProviderBaseURL    string
	MarketplaceURL     string
	OAuthScopes        []string
	ProviderTimeout    time.Duration
	SuccessRedirectURL string
	ErrorRedirectURL   string

	// Token lifecycle
	EnableAutoRefresh          bool
	AutoRefreshIntervalMinutes int
	RefreshPadding             time.Duration
	StatusBuffer               time.Duration
	RefreshBuffer              time.Duration
	BulkRefreshConcurrency     int
	InstallationRetentionDays  int
	EnableLocationDiscovery    bool

	// Storage
	StoreType        string
	DatabasePath     string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string
	EncryptionKey    string

	// Redis
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string

	// Rate limiting
	RateLimitEnabled bool
	RateLimitDefault string
	RateLimitWindow  string

	// Events
	EventsBackend  string
	EventsChannel  string
	RabbitMQURL    string
	EventsExchange string
}

// Load creates a new Config instance with values loaded from environment variables.
// It does not validate; call Validate on the result.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		ClientID:           getEnv("CLIENT_ID", ""),
		ClientSecret:       getEnv("CLIENT_SECRET", ""),
		RedirectURI:        getEnv("REDIRECT_URI", ""),
		ProviderBaseURL:    strings.TrimRight(getEnv("PROVIDER_BASE_URL", "https://services.leadconnectorhq.com"), "/"),
		MarketplaceURL:     strings.TrimRight(getEnv("MARKETPLACE_URL", "https://marketplace.gohighlevel.com"), "/"),
		OAuthScopes:        strings.Fields(getEnv("OAUTH_SCOPES", "")),
		ProviderTimeout:    getDurationEnv("PROVIDER_TIMEOUT", 15*time.Second),
		SuccessRedirectURL: getEnv("SUCCESS_REDIRECT_URL", "/installation-success"),
		ErrorRedirectURL:   getEnv("ERROR_REDIRECT_URL", "/oauth-error"),

		EnableAutoRefresh:          getBoolEnv("ENABLE_AUTO_REFRESH", true),
		AutoRefreshIntervalMinutes: getIntEnv("AUTO_REFRESH_INTERVAL_MINUTES", 30),
		RefreshPadding:             getDurationEnv("REFRESH_PADDING", 10*time.Minute),
		StatusBuffer:               getDurationEnv("STATUS_BUFFER", 10*time.Minute),
		RefreshBuffer:              getDurationEnv("REFRESH_BUFFER", time.Hour),
		BulkRefreshConcurrency:     getIntEnv("BULK_REFRESH_CONCURRENCY", 4),
		InstallationRetentionDays:  getIntEnv("INSTALLATION_RETENTION_DAYS", 0),
		EnableLocationDiscovery:    getBoolEnv("ENABLE_LOCATION_DISCOVERY", false),

		StoreType:        strings.ToLower(getEnv("STORE_TYPE", StoreMemory)),
		DatabasePath:     getEnv("DATABASE_PATH", "./ghl_installations.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnv("POSTGRES_DB", "ghl_oauth"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),
		EncryptionKey:    getEnv("CONFIG_ENCRYPTION_KEY", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimitDefault: getEnv("RATE_LIMIT_DEFAULT", "60"),
		RateLimitWindow:  getEnv("RATE_LIMIT_WINDOW", "60s"),

		EventsBackend:  strings.ToLower(getEnv("EVENTS_BACKEND", EventsNone)),
		EventsChannel:  getEnv("EVENTS_CHANNEL", "ghl:events"),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "ghl.installations"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts anything strconv.ParseBool does; other values fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15s", "1h") and bare integers as seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// HasClientCredentials reports whether a complete environment credential set exists.
func (c *Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// RedisEnabled reports whether a Redis server is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// AutoRefreshInterval is the reconcile job period.
func (c *Config) AutoRefreshInterval() time.Duration {
	return time.Duration(c.AutoRefreshIntervalMinutes) * time.Minute
}

// Retention returns the GC age for failed installations, 0 when disabled.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.InstallationRetentionDays) * 24 * time.Hour
}

// Validate checks that every value is usable before the service starts.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	if _, err := url.ParseRequestURI(c.ProviderBaseURL); err != nil {
		return fmt.Errorf("PROVIDER_BASE_URL must be an absolute URL: %w", err)
	}
	if _, err := url.ParseRequestURI(c.MarketplaceURL); err != nil {
		return fmt.Errorf("MARKETPLACE_URL must be an absolute URL: %w", err)
	}
	if c.RedirectURI != "" {
		if u, err := url.Parse(c.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("REDIRECT_URI must be an absolute URL")
		}
	}
	if c.SuccessRedirectURL == "" || c.ErrorRedirectURL == "" {
		return fmt.Errorf("SUCCESS_REDIRECT_URL and ERROR_REDIRECT_URL cannot be empty")
	}

	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be a positive duration")
	}
	if c.AutoRefreshIntervalMinutes < 1 {
		return fmt.Errorf("AUTO_REFRESH_INTERVAL_MINUTES must be at least 1")
	}
	if c.RefreshPadding < 0 || c.StatusBuffer < 0 || c.RefreshBuffer < 0 {
		return fmt.Errorf("REFRESH_PADDING, STATUS_BUFFER and REFRESH_BUFFER cannot be negative")
	}
	if c.BulkRefreshConcurrency < 1 || c.BulkRefreshConcurrency > 64 {
		return fmt.Errorf("BULK_REFRESH_CONCURRENCY must be between 1 and 64")
	}
	if c.InstallationRetentionDays < 0 {
		return fmt.Errorf("INSTALLATION_RETENTION_DAYS cannot be negative")
	}

	switch c.StoreType {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if !c.RedisEnabled() {
			return fmt.Errorf("REDIS_ADDRESS is required when STORE_TYPE is redis")
		}
	case StorePostgres, "postgresql":
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	default:
		return fmt.Errorf("STORE_TYPE must be one of memory, redis, sqlite, postgres")
	}

	if c.RedisEnabled() {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.RateLimitEnabled {
		if limit, err := strconv.Atoi(c.RateLimitDefault); err != nil || limit < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if _, err := time.ParseDuration(c.RateLimitWindow); err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration (e.g., '60s', '1m')")
		}
	}

	switch c.EventsBackend {
	case EventsNone, "":
	case EventsRedis:
		if !c.RedisEnabled() {
			return fmt.Errorf("REDIS_ADDRESS is required when EVENTS_BACKEND is redis")
		}
	case EventsRabbitMQ:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when EVENTS_BACKEND is rabbitmq")
		}
	default:
		return fmt.Errorf("EVENTS_BACKEND must be one of none, redis, rabbitmq")
	}

	if c.EncryptionKey != "" && len(c.EncryptionKey) != 32 {
		return fmt.Errorf("CONFIG_ENCRYPTION_KEY must be exactly 32 characters (256 bits) when provided")
	}

	return nil
}
