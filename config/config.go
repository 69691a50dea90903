// Package config loads the toolhost configuration file.
//
// The host config is TOML and covers the process-level knobs: where the
// server catalog files live, log verbosity, and the client identity sent
// during the initialize handshake. The server catalogs themselves are JSON
// files owned by the registry package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the host configuration.
type Config struct {
	// ServersFile is the static (builtin) server catalog, JSON.
	ServersFile string `toml:"servers_file"`

	// CustomServersFile is the user-writable custom server catalog, JSON.
	CustomServersFile string `toml:"custom_servers_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// ClientName and ClientVersion are sent in the handshake clientInfo.
	ClientName    string `toml:"client_name"`
	ClientVersion string `toml:"client_version"`

	// DefaultTimeoutSeconds applies to servers with no timeout of their own.
	DefaultTimeoutSeconds int `toml:"default_timeout_seconds"`

	HTTP HTTPConfig `toml:"http"`
}

// DefaultTimeout returns DefaultTimeoutSeconds as a duration.
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutSeconds) * time.Second
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// BearerToken, when set, is sent as "Authorization: Bearer <token>"
	// on every request to HTTP servers.
	BearerToken string `toml:"bearer_token"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".toolhost")
	return &Config{
		ServersFile:           filepath.Join(base, "servers.json"),
		CustomServersFile:     filepath.Join(base, "custom_servers.json"),
		LogLevel:              "info",
		ClientName:            "toolhost",
		ClientVersion:         "1.0.0",
		DefaultTimeoutSeconds: 30,
	}
}

// Load reads the config file at path, applying defaults for unset fields.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DefaultTimeoutSeconds <= 0 {
		cfg.DefaultTimeoutSeconds = Default().DefaultTimeoutSeconds
	}
	return cfg, nil
}
