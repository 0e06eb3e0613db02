// Package config provides configuration types and utilities for the bot
// framework. This file is the main unified configuration entry point.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigInterface defines the interface that all configuration types must
// implement, allowing Config to validate/default each section uniformly.
type ConfigInterface interface {
	Validate() error
	SetDefaults()
}

// Config represents the complete configuration for a bot process: which LLM
// providers are available, and how logging/tracing are set up.
type Config struct {
	Name string `yaml:"name,omitempty"`

	Global GlobalSettings `yaml:"global,omitempty"`

	LLMs map[string]LLMProviderConfig `yaml:"llms,omitempty"`
}

// Validate implements ConfigInterface for Config.
func (c *Config) Validate() error {
	if err := c.Global.Validate(); err != nil {
		return fmt.Errorf("global settings validation failed: %w", err)
	}
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("LLM '%s' validation failed: %w", name, err)
		}
	}
	return nil
}

// SetDefaults implements ConfigInterface for Config.
func (c *Config) SetDefaults() {
	c.Global.SetDefaults()
	if c.LLMs == nil {
		c.LLMs = make(map[string]LLMProviderConfig)
	}
	if len(c.LLMs) == 0 {
		c.LLMs["default-llm"] = LLMProviderConfig{}
	}
	for name := range c.LLMs {
		llm := c.LLMs[name]
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
}

// GlobalSettings contains global configuration settings shared across bots.
type GlobalSettings struct {
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Tracing TracingConfig `yaml:"tracing,omitempty"`
}

// Validate implements ConfigInterface for GlobalSettings.
func (c *GlobalSettings) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config validation failed: %w", err)
	}
	return nil
}

// SetDefaults implements ConfigInterface for GlobalSettings.
func (c *GlobalSettings) SetDefaults() {
	c.Logging.SetDefaults()
	c.Tracing.SetDefaults()
}

// LoadConfig loads the complete configuration from a YAML file, expanding
// ${VAR}/${VAR:-default}/$VAR references against the process environment
// before unmarshaling, then fills in any unset fields' defaults.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return LoadConfigFromString(string(data))
}

// LoadConfigFromString loads configuration from a YAML string.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	expanded := expandEnvVars(yamlContent)
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from string: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
