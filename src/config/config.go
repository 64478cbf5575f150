package config

import (
	"fmt"
	"os"
	"strings"

	"cryptofolio/src/helpers"
	"cryptofolio/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewValidationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills optional fields that have a sensible fallback.
func (c *Config) applyDefaults() {
	if c.Backend.RefreshPath == "" {
		c.Backend.RefreshPath = "/auth/refresh"
	}
	if c.Backend.RequestTimeout == 0 {
		c.Backend.RequestTimeout = 15
	}
	if c.Backend.CacheTTL == 0 {
		c.Backend.CacheTTL = 30
	}
	if c.Stream.Path == "" {
		c.Stream.Path = "/stream/prices"
	}
	if c.Stream.HeartbeatTimeout == 0 {
		c.Stream.HeartbeatTimeout = 60
	}
	if c.Stream.OnTransportError == "" {
		c.Stream.OnTransportError = models.PolicyForceReconnect
	}
	if c.Stream.ReconnectBaseDelay == 0 {
		c.Stream.ReconnectBaseDelay = 1
	}
	if c.Stream.ReconnectMaxRetries == 0 {
		c.Stream.ReconnectMaxRetries = 5
	}
	if c.Stream.HistoryDepth == 0 {
		c.Stream.HistoryDepth = 120
	}
	if len(c.Watch.PreferredQuotes) == 0 {
		c.Watch.PreferredQuotes = []string{"USDT", "USDC"}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Backend configuration
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend base URL cannot be empty")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base URL must start with http:// or https://")
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate Stream configuration
	if c.Stream.HeartbeatTimeout <= 0 {
		return fmt.Errorf("stream heartbeat timeout must be greater than 0")
	}
	switch c.Stream.OnTransportError {
	case models.PolicyTrustBuiltinRetry, models.PolicyForceReconnect:
	default:
		return fmt.Errorf("invalid stream transport-error policy: %q", c.Stream.OnTransportError)
	}
	if c.Stream.OnTransportError == models.PolicyForceReconnect {
		if c.Stream.ReconnectMaxRetries <= 0 {
			return fmt.Errorf("reconnect max retries must be greater than 0")
		}
		if c.Stream.ReconnectBaseDelay <= 0 {
			return fmt.Errorf("reconnect base delay must be greater than 0")
		}
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}

	// Validate Bus configuration
	if c.Bus.Enabled {
		if c.Bus.URL == "" {
			return fmt.Errorf("bus URL cannot be empty when bus is enabled")
		}
		if c.Bus.Subject == "" {
			return fmt.Errorf("bus subject cannot be empty when bus is enabled")
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
