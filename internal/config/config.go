// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for pagesmith.
//
// Configuration is TOML with built-in defaults, environment variable
// overrides (PAGESMITH_*), and validation. The default file location is
// ~/.pagesmith/config.toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete pagesmith configuration.
type Config struct {
	Version string `toml:"version"`

	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Provider ProviderConfig `toml:"provider"`
	Session  SessionConfig  `toml:"session"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr string `toml:"addr"`
	// AuthToken enables bearer authentication on /api routes when set.
	AuthToken string `toml:"auth_token"`
	// RateLimit is requests per second per client IP.
	RateLimit float64 `toml:"rate_limit"`
	// RateBurst is the per-IP burst allowance.
	RateBurst int `toml:"rate_burst"`
	// ReadTimeoutSecs and WriteTimeoutSecs bound request handling.
	ReadTimeoutSecs  int `toml:"read_timeout_secs"`
	WriteTimeoutSecs int `toml:"write_timeout_secs"`
}

// StoreConfig controls credential and template persistence.
type StoreConfig struct {
	// Path is the SQLite database file (empty = ~/.pagesmith/store.db).
	Path string `toml:"path"`
	// Secret derives the encryption key for credentials at rest.
	Secret string `toml:"secret"`
}

// ProviderConfig controls outbound LLM calls.
type ProviderConfig struct {
	// TimeoutSecs is the per-request timeout for provider calls.
	TimeoutSecs int `toml:"timeout_secs"`
}

// SessionConfig controls workspace sessions.
type SessionConfig struct {
	// IdleTimeoutSecs evicts workspaces idle longer than this.
	IdleTimeoutSecs int `toml:"idle_timeout_secs"`
	// MaxSessions caps concurrent workspaces (0 = unlimited).
	MaxSessions int `toml:"max_sessions"`
}

// =============================================================================
// DEFAULTS AND PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Server: ServerConfig{
			Addr:             "127.0.0.1:8080",
			RateLimit:        10,
			RateBurst:        30,
			ReadTimeoutSecs:  30,
			WriteTimeoutSecs: 120,
		},
		Store: StoreConfig{
			Secret: "pagesmith-default-secret",
		},
		Provider: ProviderConfig{
			TimeoutSecs: 60,
		},
		Session: SessionConfig{
			IdleTimeoutSecs: 3600,
			MaxSessions:     256,
		},
	}
}

// ConfigDir returns the pagesmith configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pagesmith"), nil
}

// ConfigPath returns the default TOML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// StorePath resolves the database path, defaulting under the config dir.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "store.db"), nil
}

// ensureSecurePermissions tightens the config file to 0600. The file holds
// the store secret and optionally the auth token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads the config at the default path, falling back to defaults when
// the file does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config at path. A missing file is not an error;
// defaults apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if err := ensureSecurePermissions(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as TOML with 0600 permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// ApplyEnvOverrides applies PAGESMITH_* environment variables on top of
// the loaded values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("PAGESMITH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("PAGESMITH_AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
	if v := os.Getenv("PAGESMITH_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Server.RateLimit = f
		}
	}
	if v := os.Getenv("PAGESMITH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PAGESMITH_STORE_SECRET"); v != "" {
		c.Store.Secret = v
	}
	if v := os.Getenv("PAGESMITH_PROVIDER_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Provider.TimeoutSecs = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.Addr == "" {
		errs = append(errs, ValidationError{"server.addr", "must not be empty"})
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, ValidationError{"server.rate_limit", "must be positive"})
	}
	if c.Server.RateBurst < 1 {
		errs = append(errs, ValidationError{"server.rate_burst", "must be at least 1"})
	}
	if c.Server.ReadTimeoutSecs < 1 || c.Server.ReadTimeoutSecs > 600 {
		errs = append(errs, ValidationError{"server.read_timeout_secs", "must be 1-600"})
	}
	if c.Server.WriteTimeoutSecs < 1 || c.Server.WriteTimeoutSecs > 600 {
		errs = append(errs, ValidationError{"server.write_timeout_secs", "must be 1-600"})
	}
	if c.Store.Secret == "" {
		errs = append(errs, ValidationError{"store.secret", "must not be empty"})
	}
	if c.Provider.TimeoutSecs < 1 || c.Provider.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{"provider.timeout_secs", "must be 1-600"})
	}
	if c.Session.IdleTimeoutSecs < 60 {
		errs = append(errs, ValidationError{"session.idle_timeout_secs", "must be at least 60"})
	}
	if c.Session.MaxSessions < 0 {
		errs = append(errs, ValidationError{"session.max_sessions", "must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
