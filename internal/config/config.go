// Package config loads the client's transport configuration from TOML.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultReadTimeoutSeconds = 60
	defaultKeepaliveSeconds   = 55

	// connectTimeoutMargin is added to the keepalive interval to bound the
	// dial and handshake.
	connectTimeoutMargin = 10 * time.Second
)

// Config is the configuration surface of the transport layer.
type Config struct {
	// BaseURI is the server's HTTP(S) endpoint; the websocket URI is
	// derived from it by scheme substitution.
	BaseURI string `toml:"base_uri"`

	// TrustBundle is an optional PEM file of trusted CA certificates.
	// Empty means the system trust store.
	TrustBundle string `toml:"trust_bundle"`

	Login    string `toml:"login"`
	Password string `toml:"password"`

	// ReadTimeoutSeconds bounds the idle time between inbound frames.
	ReadTimeoutSeconds int `toml:"read_timeout_seconds"`

	// KeepaliveSeconds is the heartbeat period. It must stay below the
	// server's idle-disconnect threshold.
	KeepaliveSeconds int `toml:"keepalive_seconds"`
}

// Load reads, defaults and validates a TOML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ReadTimeoutSeconds == 0 {
		cfg.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if cfg.KeepaliveSeconds == 0 {
		cfg.KeepaliveSeconds = defaultKeepaliveSeconds
	}
}

// Validate rejects configurations the session cannot run with.
func Validate(cfg Config) error {
	if cfg.BaseURI == "" {
		return fmt.Errorf("config: base_uri is required")
	}
	u, err := url.Parse(cfg.BaseURI)
	if err != nil {
		return fmt.Errorf("config: base_uri: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_uri scheme %q, want http or https", u.Scheme)
	}
	if cfg.Login == "" {
		return fmt.Errorf("config: login is required")
	}
	if cfg.ReadTimeoutSeconds < 0 {
		return fmt.Errorf("config: read_timeout_seconds must not be negative")
	}
	if cfg.KeepaliveSeconds <= 0 {
		return fmt.Errorf("config: keepalive_seconds must be positive")
	}
	return nil
}

// ReadTimeout returns the read/idle timeout as a duration.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// KeepaliveInterval returns the heartbeat period as a duration.
func (c Config) KeepaliveInterval() time.Duration {
	return time.Duration(c.KeepaliveSeconds) * time.Second
}

// ConnectTimeout bounds the transport's dial and handshake.
func (c Config) ConnectTimeout() time.Duration {
	return c.KeepaliveInterval() + connectTimeoutMargin
}
