// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/userauth/pkg/errutil"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	fs.String("unrelated", "", "not a config flag")
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "argon2id", cfg.Hash.Algorithm)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, `
http:
  addr: 0.0.0.0:8080
  shutdown_timeout: 3s
database:
  url: postgres://u:p@db/userauth
  auto_migrate: true
hash:
  algorithm: bcrypt
  bcrypt_cost: 6
`)

	cfg, err := Load(path, newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "postgres://u:p@db/userauth", cfg.Database.URL)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, "bcrypt", cfg.Hash.Algorithm)
	assert.Equal(t, 6, cfg.Hash.BcryptCost)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Metrics.Addr, cfg.Metrics.Addr)
	assert.Equal(t, 5, cfg.Database.ConnectAttempts)
}

func TestLoad_ExplicitFlagsOverrideFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, `
http:
  addr: 0.0.0.0:8080
log:
  format: text
`)

	cfg, err := Load(path, newFlags(t, "--http-addr=127.0.0.1:9999", "--metrics-addr=", "--shutdown-timeout=1s"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
	assert.Empty(t, cfg.Metrics.Addr, "explicit empty flag disables metrics")
	assert.Equal(t, time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "text", cfg.Log.Format, "unset flag must not clobber file value")
}

func TestLoad_DatabaseURLFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")

	cfg, err := Load("", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)

	cfg, err = Load("", newFlags(t, "--database-url=postgres://flag/db"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag/db", cfg.Database.URL)
}

func TestLoad_NilFlagSet(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_READ_FAILED")
	})

	t.Run("schema violation", func(t *testing.T) {
		path := writeConfig(t, "http:\n  port: 80\n")
		_, err := Load(path, nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
		errutil.AssertErrorContext(t, err, "path", path)
	})

	t.Run("semantic violation", func(t *testing.T) {
		_, err := Load("", newFlags(t, "--connect-attempts=0"))
		errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		errutil.AssertErrorContext(t, err, "key", "database.connect_attempts")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"empty http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr"},
		{"zero shutdown timeout", func(c *Config) { c.HTTP.ShutdownTimeout = 0 }, "http.shutdown_timeout"},
		{"zero attempts", func(c *Config) { c.Database.ConnectAttempts = 0 }, "database.connect_attempts"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad algorithm", func(c *Config) { c.Hash.Algorithm = "md5" }, "hash.algorithm"},
		{"bcrypt cost too high", func(c *Config) { c.Hash.Algorithm = "bcrypt"; c.Hash.BcryptCost = 40 }, "hash.bcrypt_cost"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
			errutil.AssertErrorContext(t, err, "key", tt.key)
		})
	}

	t.Run("bcrypt default cost", func(t *testing.T) {
		cfg := Default()
		cfg.Hash.Algorithm = "bcrypt"
		assert.NoError(t, cfg.Validate())
	})
}

func TestRegisterFlags_CoversFlagKeys(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	for name := range FlagKeys {
		assert.NotNil(t, fs.Lookup(name), "flag %s not registered", name)
	}
}
