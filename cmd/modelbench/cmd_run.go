// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/modelbench/cmd/modelbench/config"
	"github.com/AleutianAI/modelbench/cmd/modelbench/internal/report"
	"github.com/AleutianAI/modelbench/pkg/logging"
	"github.com/AleutianAI/modelbench/services/bench"
	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

func runBenchmark(cmd *cobra.Command, args []string) {
	os.Exit(runBenchmarkE())
}

func runBenchmarkE() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return CLIExitError
	}

	logger := newLogger(cfg)
	defer logger.Close()

	apiKey, err := config.ResolveAPIKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return CLIExitError
	}

	gateway, err := llm.NewGateway(llm.GatewayConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.API.BaseURL,
		MaxRetries: cfg.API.MaxRetries,
		BaseDelay:  cfg.API.BaseDelay,
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return CLIExitError
	}

	models, err := loadModels()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return CLIExitError
	}

	tests := defaultSuite()
	if suitePath != "" {
		if tests, err = loadSuite(suitePath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return CLIExitError
		}
	}

	coordinator := bench.NewCoordinator(
		gateway,
		validate.For(validate.KindTSX),
		bench.CoordinatorConfig{
			Loop: bench.LoopConfig{
				MaxIterations:      cfg.Benchmark.MaxIterations,
				InitialTemperature: cfg.Benchmark.InitialTemperature,
				FixTemperature:     cfg.Benchmark.FixTemperature,
				IterationDelay:     cfg.Benchmark.IterationDelay,
				MaxTokens:          cfg.Benchmark.MaxTokens,
			},
			PairDelay: cfg.Benchmark.PairDelay,
		},
		logger,
		newConsoleObserver(),
	)

	// Ctrl-C stops at the next pair boundary; completed pairs are kept and
	// reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := coordinator.Run(ctx, models, tests)
	if err != nil && run == nil {
		fmt.Fprintf(os.Stderr, "Error: benchmark failed: %v\n", err)
		return CLIExitError
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "benchmark interrupted (%v); reporting completed pairs\n", err)
	}

	report.Render(os.Stdout, run)

	if exportPath != "" {
		if err := report.WriteExport(exportPath, run); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return CLIExitError
		}
		fmt.Printf("results written to %s\n", exportPath)
	}

	for _, agg := range run.Aggregates {
		if agg.TotalFailed > 0 {
			return CLIExitFindings
		}
	}
	return CLIExitSuccess
}

// loadConfig resolves the --config flag or the default location.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

// loadModels resolves --registry and --models into the benchmark model list.
func loadModels() ([]llm.Model, error) {
	models := llm.DefaultRegistry()
	if registryPath != "" {
		var err error
		if models, err = llm.LoadRegistry(registryPath); err != nil {
			return nil, err
		}
	}
	if len(modelFilter) == 0 {
		return models, nil
	}

	wanted := make(map[string]bool, len(modelFilter))
	for _, id := range modelFilter {
		wanted[id] = true
	}
	var filtered []llm.Model
	for _, m := range models {
		if wanted[m.ID] {
			filtered = append(filtered, m)
			delete(wanted, m.ID)
		}
	}
	for id := range wanted {
		return nil, fmt.Errorf("model %q is not in the registry", id)
	}
	if len(filtered) == 0 {
		return nil, errors.New("the --models filter matched nothing")
	}
	return filtered, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.LogDir,
		Service: "modelbench",
		JSON:    cfg.Logging.JSON,
	})
}
