package config

import "time"

// Database drivers understood by the store factory.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabaseDriver string        `mapstructure:"database_driver" yaml:"database_driver"`
	DatabasePath   string        `mapstructure:"database_path" yaml:"database_path"`
	DatabaseDSN    string        `mapstructure:"database_dsn" yaml:"database_dsn"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`

	AccessTokenSecret  string        `mapstructure:"access_token_secret" yaml:"access_token_secret"`
	RefreshTokenSecret string        `mapstructure:"refresh_token_secret" yaml:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `mapstructure:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `mapstructure:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	JWTIssuer          string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`

	MaxMessageBytes    int64    `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",

		DatabaseDriver: DriverSQLite,
		DatabasePath:   "pawsit.db",
		StoreTimeout:   5 * time.Second,

		AccessTokenSecret:  "change-me-access",
		RefreshTokenSecret: "change-me-refresh",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    7 * 24 * time.Hour,
		JWTIssuer:          "pawsit",

		MaxMessageBytes:    64 << 10,
		RateLimitPerMinute: 120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabaseDriver != "" {
		c.DatabaseDriver = other.DatabaseDriver
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.DatabaseDSN != "" {
		c.DatabaseDSN = other.DatabaseDSN
	}
}
