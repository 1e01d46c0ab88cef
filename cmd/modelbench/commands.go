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
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Operation completed with findings/violations
	CLIExitError    = 2 // Operation failed
)

// --- Global Command Variables ---
var (
	configPath   string
	registryPath string
	suitePath    string
	exportPath   string
	modelFilter  []string
	jsonOutput   bool
	verbose      bool

	rootCmd = &cobra.Command{
		Use:   "modelbench",
		Short: "A cli to benchmark LLM code generation with validate-and-fix loops",
		Long: `Modelbench drives a suite of component-generation prompts across a
set of models, validates each response, feeds detected defects back as
fix requests, and aggregates pass rates per model.`,
	}

	// --- Benchmark ---
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark suite across the configured models",
		Run:   runBenchmark, // Defined in cmd_run.go
	}

	// --- Registry ---
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List the model registry with class, protocol, and budgets",
		Run:   runListModels, // Defined in cmd_models.go
	}

	// --- Standalone validation ---
	validateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a component file without calling any model",
		Args:  cobra.ExactArgs(1),
		Run:   runValidateFile, // Defined in cmd_validate.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ~/.modelbench/modelbench.yaml)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "Path to a yaml model registry (default: built-in registry)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	runCmd.Flags().StringVar(&suitePath, "tests", "", "Path to a yaml test suite (default: built-in suite)")
	runCmd.Flags().StringVar(&exportPath, "export", "", "Write the run results as JSON to this path")
	runCmd.Flags().StringSliceVar(&modelFilter, "models", nil, "Restrict the run to these model IDs")

	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the validation result as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(validateCmd)
}
