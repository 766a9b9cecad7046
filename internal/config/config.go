// Package config loads runtime configuration from simserve.yaml, .env files,
// and environment variables.
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	Runtime RuntimeConfig `mapstructure:"runtime"`
	Mock    MockConfig    `mapstructure:"mock"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RuntimeConfig holds orchestrator settings.
type RuntimeConfig struct {
	// BasePort seeds the monotonically advancing port counter.
	BasePort int `mapstructure:"base_port"`
	// DelegatedURL is the base URL of the delegated execution service.
	// Empty means delegated execution is unavailable and every start falls
	// back to simulation.
	DelegatedURL string `mapstructure:"delegated_url"`
	// RequestTimeout bounds each delegated execution call, in milliseconds.
	RequestTimeout int `mapstructure:"request_timeout"`
	// ParseCacheSize bounds the LRU cache of parse results.
	ParseCacheSize int `mapstructure:"parse_cache_size"`
}

// MockConfig holds mock network layer settings.
type MockConfig struct {
	// LatencyMinMS and LatencyMaxMS bound the simulated latency applied to
	// every intercepted request, in milliseconds.
	LatencyMinMS int `mapstructure:"latency_min_ms"`
	LatencyMaxMS int `mapstructure:"latency_max_ms"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func applyDefaults(cfg *Config) {
	if cfg.Runtime.BasePort == 0 {
		cfg.Runtime.BasePort = 5000
	}
	if cfg.Runtime.RequestTimeout == 0 {
		cfg.Runtime.RequestTimeout = 10000
	}
	if cfg.Runtime.ParseCacheSize == 0 {
		cfg.Runtime.ParseCacheSize = 64
	}
	if cfg.Mock.LatencyMinMS == 0 {
		cfg.Mock.LatencyMinMS = 100
	}
	if cfg.Mock.LatencyMaxMS == 0 {
		cfg.Mock.LatencyMaxMS = 300
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Runtime.BasePort < 1 || cfg.Runtime.BasePort > 65535 {
		return fmt.Errorf("runtime.base_port %d out of range", cfg.Runtime.BasePort)
	}
	if cfg.Mock.LatencyMinMS < 0 || cfg.Mock.LatencyMaxMS < cfg.Mock.LatencyMinMS {
		return fmt.Errorf("mock latency bounds invalid: min=%d max=%d", cfg.Mock.LatencyMinMS, cfg.Mock.LatencyMaxMS)
	}
	if cfg.Runtime.ParseCacheSize < 1 {
		return fmt.Errorf("runtime.parse_cache_size must be positive, got %d", cfg.Runtime.ParseCacheSize)
	}
	return nil
}
