package config

import (
	"os"
	"strconv"
	"time"

	"pdlens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Output   OutputConfig
	Server   ServerConfig
	Database DatabaseConfig
	LogLevel string
}

// AnalysisConfig holds the importance pipeline settings
type AnalysisConfig struct {
	TopK               int
	SelectK            int
	Seed               int64
	PermutationRepeats int
	Trees              int
	MaxDepth           int
	MIBins             int
	Workers            int
	TestFraction       float64
	RankAllMethods     bool
	Timeout            time.Duration
}

// OutputConfig holds where reports and plots are written
type OutputConfig struct {
	Dir   string
	Sheet string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds the optional run store connection
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether runs should be persisted to Postgres.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Analysis: loadAnalysisConfig(),
		Output:   loadOutputConfig(),
		Server:   loadServerConfig(),
		Database: DatabaseConfig{URL: os.Getenv("DATABASE_URL")},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration Load produces with an empty environment.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			TopK:               30,
			SelectK:            50,
			Seed:               42,
			PermutationRepeats: 10,
			Trees:              100,
			MaxDepth:           10,
			MIBins:             10,
			Workers:            4,
			TestFraction:       0.25,
			Timeout:            10 * time.Minute,
		},
		Output:   OutputConfig{Dir: ".", Sheet: "Sheet1"},
		Server:   ServerConfig{Port: "8080", GinMode: "release"},
		LogLevel: "INFO",
	}
}

func loadAnalysisConfig() AnalysisConfig {
	def := Default().Analysis
	return AnalysisConfig{
		TopK:               getEnvIntOrDefault("PDLENS_TOP_K", def.TopK),
		SelectK:            getEnvIntOrDefault("PDLENS_SELECT_K", def.SelectK),
		Seed:               int64(getEnvIntOrDefault("PDLENS_SEED", int(def.Seed))),
		PermutationRepeats: getEnvIntOrDefault("PDLENS_PERMUTATION_REPEATS", def.PermutationRepeats),
		Trees:              getEnvIntOrDefault("PDLENS_TREES", def.Trees),
		MaxDepth:           getEnvIntOrDefault("PDLENS_MAX_DEPTH", def.MaxDepth),
		MIBins:             getEnvIntOrDefault("PDLENS_MI_BINS", def.MIBins),
		Workers:            getEnvIntOrDefault("PDLENS_WORKERS", def.Workers),
		TestFraction:       getEnvFloatOrDefault("PDLENS_TEST_FRACTION", def.TestFraction),
		RankAllMethods:     getEnvBoolOrDefault("PDLENS_RANK_ALL_METHODS", false),
		Timeout:            getEnvDurationOrDefault("PDLENS_TIMEOUT", def.Timeout),
	}
}

func loadOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:   getEnvOrDefault("PDLENS_OUTPUT_DIR", "."),
		Sheet: getEnvOrDefault("PDLENS_SHEET", "Sheet1"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	a := config.Analysis
	switch {
	case a.TopK <= 0:
		return errors.ConfigInvalid("PDLENS_TOP_K must be positive")
	case a.SelectK <= 0:
		return errors.ConfigInvalid("PDLENS_SELECT_K must be positive")
	case a.PermutationRepeats <= 0:
		return errors.ConfigInvalid("PDLENS_PERMUTATION_REPEATS must be positive")
	case a.Trees <= 0:
		return errors.ConfigInvalid("PDLENS_TREES must be positive")
	case a.MaxDepth <= 0:
		return errors.ConfigInvalid("PDLENS_MAX_DEPTH must be positive")
	case a.MIBins < 2:
		return errors.ConfigInvalid("PDLENS_MI_BINS must be at least 2")
	case a.Workers <= 0:
		return errors.ConfigInvalid("PDLENS_WORKERS must be positive")
	case a.TestFraction <= 0 || a.TestFraction >= 1:
		return errors.ConfigInvalid("PDLENS_TEST_FRACTION must be in (0, 1)")
	case a.Timeout <= 0:
		return errors.ConfigInvalid("PDLENS_TIMEOUT must be positive")
	}
	if config.Output.Dir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
