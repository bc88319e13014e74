// Package config loads process configuration: runtime flags from the
// environment, the service→endpoint map from a JSON file, and transport
// settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shhac/soapbridge/internal/domain"
)

var configValidator = validator.New()

// Config holds process-wide configuration.
type Config struct {
	// Debug enables debug logging and additional diagnostics
	Debug bool

	// LogPath is the log file location; empty logs to stderr
	LogPath string

	// EndpointsPath is the JSON file mapping service names to endpoint URLs
	EndpointsPath string `validate:"required"`

	// Transport configures the channel factories
	Transport domain.TransportConfig
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Transport: domain.TransportConfig{
			Scheme:      "grpc",
			OpenTimeout: 10 * time.Second,
			CallTimeout: 30 * time.Second,
		},
	}
}

// FromEnv creates a configuration from SOAPBRIDGE_* environment variables.
func FromEnv() *Config {
	cfg := DefaultConfig()

	if s := os.Getenv("SOAPBRIDGE_DEBUG"); s != "" {
		if debug, err := strconv.ParseBool(s); err == nil {
			cfg.Debug = debug
		}
	}
	if s := os.Getenv("SOAPBRIDGE_LOG_PATH"); s != "" {
		cfg.LogPath = s
	}
	if s := os.Getenv("SOAPBRIDGE_ENDPOINTS"); s != "" {
		cfg.EndpointsPath = s
	}
	if s := os.Getenv("SOAPBRIDGE_SCHEME"); s != "" {
		cfg.Transport.Scheme = s
	}
	if s := os.Getenv("SOAPBRIDGE_CALL_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.Transport.CallTimeout = d
		}
	}

	return cfg
}

// Validate checks the configuration, including the transport settings.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
