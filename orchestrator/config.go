// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration. Values load from a YAML file
// when CHARTSIGHT_CONFIG_FILE is set, with environment variables taking
// precedence over the file and defaults filling the rest.
type Config struct {
	Port string `yaml:"port"`

	// Backend connection.
	BackendEndpoint string        `yaml:"backend_endpoint"`
	BackendAPIKey   string        `yaml:"backend_api_key"`
	BackendTimeout  time.Duration `yaml:"backend_timeout"`

	// Models.
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
	MaxTokens     int    `yaml:"max_tokens"`

	// Optional shared infrastructure.
	RedisAddr   string `yaml:"redis_addr"`
	DatabaseURL string `yaml:"database_url"`

	// PricingFile overrides the built-in rate tables.
	PricingFile string `yaml:"pricing_file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Port:           "8082",
		BackendTimeout: 120 * time.Second,
		Model:          "gpt-5",
		FallbackModel:  "gpt-4o",
		MaxTokens:      4096,
	}
}

// LoadConfig builds the effective configuration: defaults, then the
// optional YAML file, then environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CHARTSIGHT_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.BackendEndpoint = getEnv("VISION_API_ENDPOINT", cfg.BackendEndpoint)
	cfg.BackendAPIKey = getEnv("VISION_API_KEY", cfg.BackendAPIKey)
	cfg.Model = getEnv("VISION_MODEL", cfg.Model)
	cfg.FallbackModel = getEnv("VISION_FALLBACK_MODEL", cfg.FallbackModel)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.PricingFile = getEnv("PRICING_FILE", cfg.PricingFile)

	if v := os.Getenv("VISION_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid VISION_MAX_TOKENS: %w", err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv("VISION_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid VISION_TIMEOUT_SECONDS: %w", err)
		}
		cfg.BackendTimeout = time.Duration(n) * time.Second
	}

	return cfg, nil
}

// getEnv returns the environment value or a fallback.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
