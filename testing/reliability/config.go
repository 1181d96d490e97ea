package reliability

import (
	"github.com/kelseyhightower/envconfig"
)

// ReliabilityConfig holds configuration for reliability testing, read from
// SPANZ_RELIABILITY_* environment variables.
type ReliabilityConfig struct {
	Level         string // "basic" or "stress"
	MaxGoroutines int    `split_words:"true" default:"100"`
	MaxDepth      int    `split_words:"true" default:"200"`
	Iterations    int    `default:"50"`
}

// getReliabilityConfig reads configuration from environment variables.
func getReliabilityConfig() ReliabilityConfig {
	var config ReliabilityConfig
	if err := envconfig.Process("spanz_reliability", &config); err != nil {
		return ReliabilityConfig{MaxGoroutines: 100, MaxDepth: 200, Iterations: 50}
	}
	if config.Level == "stress" {
		config.MaxGoroutines *= 10
		config.MaxDepth *= 10
		config.Iterations *= 10
	}
	return config
}

// shouldSkipReliabilityTests determines if reliability tests should be skipped.
func shouldSkipReliabilityTests(config ReliabilityConfig) bool {
	return config.Level != "basic" && config.Level != "stress"
}
