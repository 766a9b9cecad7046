package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads simserve.yaml (when present), merges environment overrides like
// SIMSERVE_RUNTIME_BASE_PORT, applies defaults, and validates the result.
// A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("simserve")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("SIMSERVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Defaults registered up front so environment overrides bind even when
	// no config file declares the key.
	v.SetDefault("runtime.base_port", 5000)
	v.SetDefault("runtime.delegated_url", "")
	v.SetDefault("runtime.request_timeout", 10000)
	v.SetDefault("runtime.parse_cache_size", 64)
	v.SetDefault("mock.latency_min_ms", 100)
	v.SetDefault("mock.latency_max_ms", 300)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found near the working directory; running
// from package subdirectories (tests) still picks up the repository root.
func loadEnvFile() {
	for _, path := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}
