// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads userauth configuration from defaults, a YAML file and
// command-line flags.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete service configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" jsonschema:"description=HTTP API server"`
	Metrics  MetricsConfig  `koanf:"metrics" jsonschema:"description=Metrics and health probe server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Hash     HashConfig     `koanf:"hash" jsonschema:"description=Password hashing"`
	Session  SessionConfig  `koanf:"session"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr" jsonschema:"description=Listen address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" jsonschema:"type=string,description=Graceful shutdown timeout (Go duration)"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" jsonschema:"description=Listen address; empty disables the server"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL             string `koanf:"url" jsonschema:"description=PostgreSQL connection URL"`
	ConnectAttempts int    `koanf:"connect_attempts" jsonschema:"minimum=1"`
	AutoMigrate     bool   `koanf:"auto_migrate" jsonschema:"description=Apply pending migrations on startup"`
}

// LogConfig configures log output.
type LogConfig struct {
	Format string `koanf:"format" jsonschema:"enum=json,enum=text"`
}

// HashConfig selects the password hashing algorithm.
type HashConfig struct {
	Algorithm  string `koanf:"algorithm" jsonschema:"enum=argon2id,enum=bcrypt"`
	BcryptCost int    `koanf:"bcrypt_cost" jsonschema:"description=bcrypt cost; 0 selects the library default"`
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	CookieSecure bool `koanf:"cookie_secure" jsonschema:"description=Set the Secure attribute on the session cookie"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:5000",
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics:  MetricsConfig{Addr: "127.0.0.1:9100"},
		Database: DatabaseConfig{ConnectAttempts: 5},
		Log:      LogConfig{Format: "json"},
		Hash:     HashConfig{Algorithm: "argon2id"},
	}
}

// Validate checks semantic rules the schema cannot express.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http.addr is required")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "http.shutdown_timeout").
			Errorf("http.shutdown_timeout must be positive, got %s", c.HTTP.ShutdownTimeout)
	}
	if c.Database.ConnectAttempts < 1 {
		return oops.Code("CONFIG_INVALID").With("key", "database.connect_attempts").
			Errorf("database.connect_attempts must be at least 1, got %d", c.Database.ConnectAttempts)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch c.Hash.Algorithm {
	case "argon2id":
	case "bcrypt":
		if c.Hash.BcryptCost != 0 && (c.Hash.BcryptCost < bcrypt.MinCost || c.Hash.BcryptCost > bcrypt.MaxCost) {
			return oops.Code("CONFIG_INVALID").With("key", "hash.bcrypt_cost").
				Errorf("hash.bcrypt_cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Hash.BcryptCost)
		}
	default:
		return oops.Code("CONFIG_INVALID").With("key", "hash.algorithm").
			Errorf("hash.algorithm must be 'argon2id' or 'bcrypt', got %q", c.Hash.Algorithm)
	}
	return nil
}

// FlagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var FlagKeys = map[string]string{
	"http-addr":        "http.addr",
	"shutdown-timeout": "http.shutdown_timeout",
	"metrics-addr":     "metrics.addr",
	"database-url":     "database.url",
	"connect-attempts": "database.connect_attempts",
	"auto-migrate":     "database.auto_migrate",
	"log-format":       "log.format",
	"hash-algorithm":   "hash.algorithm",
	"bcrypt-cost":      "hash.bcrypt_cost",
	"cookie-secure":    "session.cookie_secure",
}

// RegisterFlags adds the configuration flags to fs, with defaults from Default.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("http-addr", d.HTTP.Addr, "HTTP API listen address")
	fs.Duration("shutdown-timeout", d.HTTP.ShutdownTimeout, "graceful shutdown timeout")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", d.Database.URL, "PostgreSQL URL (default: $DATABASE_URL)")
	fs.Int("connect-attempts", d.Database.ConnectAttempts, "database connection attempts at startup")
	fs.Bool("auto-migrate", d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("hash-algorithm", d.Hash.Algorithm, "password hash algorithm (argon2id or bcrypt)")
	fs.Int("bcrypt-cost", d.Hash.BcryptCost, "bcrypt cost (0 = library default)")
	fs.Bool("cookie-secure", d.Session.CookieSecure, "set Secure on the session cookie")
}

// Load builds the configuration. Precedence, lowest first: Default, the YAML
// file at path (skipped when path is empty), flags in fs that were set
// explicitly. DATABASE_URL fills an empty database.url. The result is
// validated.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := ValidateFile(path); err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			// Unchanged flags only carry defaults, which Default already holds.
			if !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
