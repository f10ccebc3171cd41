package trailerprop

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for header-to-trailer propagation
type Config struct {
	// AllowedHeaders lists the only header keys eligible for propagation.
	// Mutually exclusive with BlockedHeaders; empty means no allow-list.
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers"`
	// BlockedHeaders lists header keys excluded from propagation.
	// Mutually exclusive with AllowedHeaders; empty means no deny-list.
	BlockedHeaders []string `json:"blocked_headers" yaml:"blocked_headers"`
	// SkipMethods lists full gRPC method names ("/package.Service/Method")
	// the propagator leaves untouched
	SkipMethods []string `json:"skip_methods" yaml:"skip_methods"`
	// Debug enables debug logging
	Debug bool `json:"debug" yaml:"debug"`
}

// LoadConfigFromFile loads configuration from a file (JSON or YAML)
func LoadConfigFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, &config); err != nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file as YAML or JSON: %w", err)
		}
	}

	return &config, nil
}

// SaveConfigToFile saves configuration to a file
func SaveConfigToFile(config *Config, filename string, format string) error {
	var data []byte
	var err error

	switch format {
	case "yaml", "yml":
		data, err = yaml.Marshal(config)
	case "json":
		data, err = json.MarshalIndent(config, "", "  ")
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

// ValidateConfig checks a configuration without building a propagator from
// it. It returns a *ConfigurationError describing the first problem found.
func ValidateConfig(config *Config) error {
	if config == nil {
		return &ConfigurationError{Field: "config", Reason: "configuration is nil"}
	}
	_, err := compileRule(config)
	return err
}

// ConfigBuilder helps build configurations programmatically
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder creates a new configuration builder
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{},
	}
}

// WithAllowedHeaders sets the allow-list of header keys
func (cb *ConfigBuilder) WithAllowedHeaders(keys []string) *ConfigBuilder {
	cb.config.AllowedHeaders = keys
	return cb
}

// WithBlockedHeaders sets the deny-list of header keys
func (cb *ConfigBuilder) WithBlockedHeaders(keys []string) *ConfigBuilder {
	cb.config.BlockedHeaders = keys
	return cb
}

// WithSkipMethods sets the gRPC methods to skip
func (cb *ConfigBuilder) WithSkipMethods(methods []string) *ConfigBuilder {
	cb.config.SkipMethods = methods
	return cb
}

// WithDebug sets debug mode
func (cb *ConfigBuilder) WithDebug(debug bool) *ConfigBuilder {
	cb.config.Debug = debug
	return cb
}

// Build returns the built configuration
func (cb *ConfigBuilder) Build() *Config {
	return cb.config
}
