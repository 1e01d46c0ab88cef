// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the modelbench configuration file. Loaders return an
// explicit *Config; there is no package-level state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full CLI configuration.
type Config struct {
	// API carries the endpoint settings for the generation provider.
	API APIConfig `yaml:"api"`

	// Benchmark tunes the run itself.
	Benchmark BenchmarkConfig `yaml:"benchmark"`

	// Logging configures the layered logger.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds provider endpoint settings. The key itself never lives in
// the file; see ResolveAPIKey.
type APIConfig struct {
	// BaseURL overrides the provider endpoint. Empty means the provider
	// default.
	BaseURL string `yaml:"base_url,omitempty"`

	// MaxRetries is the total attempt budget per call.
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay seeds the geometric backoff between attempts.
	BaseDelay time.Duration `yaml:"base_delay"`
}

// BenchmarkConfig tunes loop and coordinator pacing.
type BenchmarkConfig struct {
	MaxIterations      int           `yaml:"max_iterations"`
	InitialTemperature float32       `yaml:"initial_temperature"`
	FixTemperature     float32       `yaml:"fix_temperature"`
	IterationDelay     time.Duration `yaml:"iteration_delay"`
	PairDelay          time.Duration `yaml:"pair_delay"`
	MaxTokens          int           `yaml:"max_tokens"`
}

// LoggingConfig mirrors pkg/logging.Config in file form.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	LogDir string `yaml:"log_dir,omitempty"`
	JSON   bool   `yaml:"json"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		API: APIConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
		},
		Benchmark: BenchmarkConfig{
			MaxIterations:      3,
			InitialTemperature: 0.7,
			FixTemperature:     0.3,
			IterationDelay:     500 * time.Millisecond,
			PairDelay:          time.Second,
			MaxTokens:          2048,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath is the config location when no --config flag is given:
// ~/.modelbench/modelbench.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".modelbench", "modelbench.yaml"), nil
}

// Load reads the config at path, creating it with defaults on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the config at %s\n", path)
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolveAPIKey locates the provider API key: the OPENAI_API_KEY environment
// variable first, then the container secret mount at
// /run/secrets/openai_api_key.
func ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, nil
	}
	data, err := os.ReadFile("/run/secrets/openai_api_key")
	if err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key found: set OPENAI_API_KEY or mount /run/secrets/openai_api_key")
}
