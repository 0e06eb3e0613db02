// Package config provides configuration types and utilities for the bot
// framework: per-provider LLM settings and global logging settings, loaded
// from YAML with environment-variable expansion.
package config

import "fmt"

// LLMProviderConfig configures one mailbox adapter (anthropic/openai/ollama).
type LLMProviderConfig struct {
	Type        string  `yaml:"type"`        // "anthropic", "openai", "ollama"
	Model       string  `yaml:"model"`       // Model name
	APIKey      string  `yaml:"api_key"`     // API key (anthropic/openai)
	Host        string  `yaml:"host"`        // Host for ollama or a custom endpoint
	Temperature float64 `yaml:"temperature"` // Sampling temperature
	MaxTokens   int     `yaml:"max_tokens"`  // Max output tokens
	Timeout     int     `yaml:"timeout"`     // Request timeout in seconds
}

// Validate implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("type is required")
	}
	switch c.Type {
	case "anthropic", "openai", "ollama":
	default:
		return fmt.Errorf("unknown provider type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Type == "openai" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for openai")
	}
	if c.Type == "anthropic" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for anthropic")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = "ollama"
	}
	if c.Model == "" {
		switch c.Type {
		case "anthropic":
			c.Model = "claude-sonnet-4-20250514"
		case "openai":
			c.Model = "gpt-4o"
		default:
			c.Model = "llama3.2"
		}
	}
	if c.Host == "" {
		switch c.Type {
		case "openai":
			c.Host = "https://api.openai.com/v1"
		case "anthropic":
			c.Host = "https://api.anthropic.com"
		default:
			c.Host = "http://localhost:11434"
		}
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

// LoggingConfig configures pkg/logger's global handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Output string `yaml:"output"` // "stdout" or "stderr"
}

// Validate implements ConfigInterface for LoggingConfig.
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	validOutputs := map[string]bool{"stdout": true, "stderr": true}
	if !validOutputs[c.Output] {
		return fmt.Errorf("invalid output destination: %s", c.Output)
	}
	return nil
}

// SetDefaults implements ConfigInterface for LoggingConfig.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// TracingConfig configures the tracing package's global hooks.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	EndpointURL  string  `yaml:"endpoint_url"`
	SamplingRate float64 `yaml:"sampling_rate"`
	ServiceName  string  `yaml:"service_name"`
}

// Validate implements ConfigInterface for TracingConfig.
func (c *TracingConfig) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be between 0 and 1")
	}
	return nil
}

// SetDefaults implements ConfigInterface for TracingConfig.
func (c *TracingConfig) SetDefaults() {
	if c.SamplingRate == 0 {
		c.SamplingRate = 1.0
	}
	if c.ServiceName == "" {
		c.ServiceName = "bots"
	}
}
