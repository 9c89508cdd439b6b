package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"listing-portal/internal/media"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Search        SearchConfig       `yaml:"search"`
	Auth          AuthConfig         `yaml:"auth"`
	Media         MediaConfig        `yaml:"media"`
	Reconcile     ReconcileConfig    `yaml:"reconcile"`
	Notifications NotificationConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// InternalBaseURL is where the subtype handlers reach the base record
	// endpoints. Empty means this same process.
	InternalBaseURL    string `yaml:"internal_base_url"`
	MaxMultipartMemory int64  `yaml:"max_multipart_memory"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes"`
	// The base stage circuit opens after this many consecutive failures
	BreakerThreshold    int `yaml:"breaker_threshold"`
	BreakerResetSeconds int `yaml:"breaker_reset_seconds"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains the SQLite file location
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
	Index  string `yaml:"index"`
}

// AuthConfig contains session and service token settings
type AuthConfig struct {
	CookieName              string `yaml:"cookie_name"`
	SessionSecret           string `yaml:"session_secret"`
	SessionTTLHours         int    `yaml:"session_ttl_hours"`
	SecureCookie            bool   `yaml:"secure_cookie"`
	InternalTokenSecret     string `yaml:"internal_token_secret"`
	InternalTokenTTLSeconds int    `yaml:"internal_token_ttl_seconds"`
}

// MediaConfig contains image storage settings
type MediaConfig struct {
	Backend        string                `yaml:"backend"`
	Root           string                `yaml:"root"`
	BaseURL        string                `yaml:"base_url"`
	Bucket         string                `yaml:"bucket"`
	Region         string                `yaml:"region"`
	Endpoint       string                `yaml:"endpoint"`
	Quality        int                   `yaml:"quality"`
	Concurrency    int                   `yaml:"concurrency"`
	MaxAttachments int                   `yaml:"max_attachments"`
	Targets        map[string]media.Size `yaml:"targets"`
}

// ReconcileConfig contains the extension reconciliation sweep settings
type ReconcileConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Cron         string `yaml:"cron"`
	GraceMinutes int    `yaml:"grace_minutes"`
	MaxBatch     int    `yaml:"max_batch"`
	DryRun       bool   `yaml:"dry_run"`
}

// NotificationConfig contains inquiry notification settings
type NotificationConfig struct {
	AdminRecipient string `yaml:"admin_recipient"`
	SiteURL        string `yaml:"site_url"`
	PollSeconds    int    `yaml:"poll_seconds"`
	BatchSize      int    `yaml:"batch_size"`
	WorkerEnabled  bool   `yaml:"worker_enabled"`
}

// RateLimitConfig contains rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	LogRequests bool   `yaml:"log_requests"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "8084",
			AllowedOrigins:      []string{"http://localhost:3000"},
			MaxMultipartMemory:  32 << 20,
			MaxUploadBytes:      64 << 20,
			BreakerThreshold:    5,
			BreakerResetSeconds: 30,
		},
		Database: DatabaseConfig{
			Type: "mysql",
			MySQL: MySQLConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "listing",
				Database: "listing_portal",
			},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "listing",
				Database: "listing_portal",
				SSLMode:  "disable",
			},
		},
		Search: SearchConfig{
			Meilisearch: MeilisearchConfig{
				Host:  "http://localhost:7700",
				Index: "properties",
			},
		},
		Auth: AuthConfig{
			CookieName:              "listing-session",
			SessionTTLHours:         24,
			InternalTokenTTLSeconds: 60,
		},
		Media: MediaConfig{
			Backend:        "local",
			Root:           "./public",
			BaseURL:        "/",
			Quality:        80,
			Concurrency:    4,
			MaxAttachments: 6,
			Targets:        media.DefaultTargets(),
		},
		Reconcile: ReconcileConfig{
			Enabled:      true,
			Cron:         "*/15 * * * *",
			GraceMinutes: 30,
			MaxBatch:     500,
		},
		Notifications: NotificationConfig{
			PollSeconds:   30,
			BatchSize:     20,
			WorkerEnabled: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			RequestsPerHour:   600,
			RequestsPerDay:    5000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "text",
			LogRequests: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		config.ApplyEnv(os.LookupEnv)
		return config, nil
	}

	// Read file
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)
	return config, nil
}

// ApplyEnv overrides connection settings and secrets from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("PORT", &c.Server.Port)
	str("INTERNAL_BASE_URL", &c.Server.InternalBaseURL)
	str("DB_TYPE", &c.Database.Type)

	switch c.Database.Type {
	case "postgres":
		str("DB_HOST", &c.Database.Postgres.Host)
		num("DB_PORT", &c.Database.Postgres.Port)
		str("DB_USER", &c.Database.Postgres.User)
		str("DB_PASSWORD", &c.Database.Postgres.Password)
		str("DB_NAME", &c.Database.Postgres.Database)
	case "sqlite":
		str("DB_NAME", &c.Database.SQLite.Path)
	default:
		str("DB_HOST", &c.Database.MySQL.Host)
		num("DB_PORT", &c.Database.MySQL.Port)
		str("DB_USER", &c.Database.MySQL.User)
		str("DB_PASSWORD", &c.Database.MySQL.Password)
		str("DB_NAME", &c.Database.MySQL.Database)
	}

	str("MEILISEARCH_HOST", &c.Search.Meilisearch.Host)
	str("MEILISEARCH_KEY", &c.Search.Meilisearch.APIKey)
	str("SESSION_SECRET", &c.Auth.SessionSecret)
	str("INTERNAL_TOKEN_SECRET", &c.Auth.InternalTokenSecret)
	str("MEDIA_ROOT", &c.Media.Root)
	if v, ok := lookup("S3_BUCKET"); ok && v != "" {
		c.Media.Bucket = v
		c.Media.Backend = "s3"
	}
	str("LOG_LEVEL", &c.Logging.Level)
}

// Validate reports settings the service cannot start without
func (c *Config) Validate() error {
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("auth.session_secret is required")
	}
	if c.Auth.InternalTokenSecret == "" {
		return fmt.Errorf("auth.internal_token_secret is required")
	}
	switch c.Media.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported media backend %q", c.Media.Backend)
	}
	if c.Media.Backend == "s3" && c.Media.Bucket == "" {
		return fmt.Errorf("media.bucket is required for the s3 backend")
	}
	return nil
}

// BreakerReset returns how long the base stage circuit stays open
func (c *ServerConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// SessionTTL returns the session lifetime as a duration
func (c *AuthConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// InternalTokenTTL returns the service token lifetime as a duration
func (c *AuthConfig) InternalTokenTTL() time.Duration {
	return time.Duration(c.InternalTokenTTLSeconds) * time.Second
}

// Grace returns how long a base record may wait for its extension
func (c *ReconcileConfig) Grace() time.Duration {
	return time.Duration(c.GraceMinutes) * time.Minute
}

// PollInterval returns the notification worker poll interval
func (c *NotificationConfig) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// DatabasePort returns the port of the configured driver as a string
func (c *DatabaseConfig) DatabasePort() string {
	if c.Type == "postgres" {
		return strconv.Itoa(c.Postgres.Port)
	}
	return strconv.Itoa(c.MySQL.Port)
}
