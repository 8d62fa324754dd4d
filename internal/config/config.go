// Package config defines the service configuration and how it is loaded.
//
// Values are layered: defaults from New, an optional YAML file named by
// FUTDRAW_CONFIG, then FUTDRAW_* environment variables. A .env file in the
// working directory is read into the environment first when present.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// Environment is "development" (default) or "production". Development
	// swaps in embedded NATS, mock analytics and guest auth.
	Environment string `koanf:"environment"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the single listen address shared by HTTP and gRPC.
	Addr string `koanf:"addr"`

	// DBDriver selects the roster store: memory, sqlite or postgres.
	DBDriver    string `koanf:"db_driver"`
	SQLiteFile  string `koanf:"sqlite_file"`
	DatabaseURL string `koanf:"database_url"`
	SeedDemo    bool   `koanf:"seed_demo"`

	NATSURL     string `koanf:"nats_url"`
	NATSSubject string `koanf:"nats_subject"`
	NATSStream  string `koanf:"nats_stream"`

	ClickHouseAddr     string `koanf:"clickhouse_addr"`
	ClickHouseDB       string `koanf:"clickhouse_db"`
	ClickHouseUser     string `koanf:"clickhouse_user"`
	ClickHousePassword string `koanf:"clickhouse_password"`

	AuthentikBaseURL      string `koanf:"authentik_base_url"`
	AuthentikClientID     string `koanf:"authentik_client_id"`
	AuthentikClientSecret string `koanf:"authentik_client_secret"`
	AuthentikRedirectURL  string `koanf:"authentik_redirect_url"`

	// TokenSecret signs and verifies custom sign-in tokens (HS256).
	TokenSecret string `koanf:"token_secret"`

	// ImageStore is a blob store URL: mem://, file:///dir, s3://bucket/prefix
	// or gs://bucket/prefix.
	ImageStore     string `koanf:"image_store"`
	ImageCacheSize int    `koanf:"image_cache_size"`
	MaxImageBytes  int64  `koanf:"max_image_bytes"`

	// MinSelection is the number of selected players required before a draw.
	MinSelection int `koanf:"min_selection"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Environment:          "development",
		LogLevel:             "info",
		Addr:                 ":3000",
		DBDriver:             "memory",
		SQLiteFile:           "dev.sqlite",
		SeedDemo:             true,
		NATSURL:              "nats://localhost:4222",
		NATSSubject:          "futdraw.events",
		NATSStream:           "FUTDRAW_EVENTS",
		ClickHouseAddr:       "localhost:9000",
		ClickHouseDB:         "default",
		ClickHouseUser:       "default",
		AuthentikRedirectURL: "http://localhost:3000/auth/callback",
		TokenSecret:          "dev-secret-change-me",
		ImageStore:           "mem://",
		ImageCacheSize:       256,
		MaxImageBytes:        10 << 20,
		MinSelection:         3,
	}
}

// IsDevelopment reports whether development stand-ins should be used.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Validate checks the combination of settings. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.DBDriver) {
	case "memory":
	case "sqlite":
		if c.SQLiteFile == "" {
			return fmt.Errorf("%w: sqlite_file is required for the sqlite driver", ErrInvalidConfig)
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: database_url is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown db_driver %q (valid: memory, sqlite, postgres)", ErrInvalidConfig, c.DBDriver)
	}
	if c.MinSelection < 1 {
		return fmt.Errorf("%w: min_selection must be at least 1", ErrInvalidConfig)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("%w: max_image_bytes must be positive", ErrInvalidConfig)
	}
	if c.ImageCacheSize <= 0 {
		return fmt.Errorf("%w: image_cache_size must be positive", ErrInvalidConfig)
	}
	if !c.IsDevelopment() {
		if c.AuthentikBaseURL == "" || c.AuthentikClientID == "" || c.AuthentikClientSecret == "" {
			return fmt.Errorf("%w: authentik_base_url, authentik_client_id and authentik_client_secret are required in production", ErrInvalidConfig)
		}
		if c.TokenSecret == New().TokenSecret {
			return fmt.Errorf("%w: token_secret must be set in production", ErrInvalidConfig)
		}
	}
	return nil
}
