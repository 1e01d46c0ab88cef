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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/modelbench/services/validate"
)

func runValidateFile(cmd *cobra.Command, args []string) {
	os.Exit(runValidateFileE(args[0]))
}

func runValidateFileE(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read %s: %v\n", path, err)
		return CLIExitError
	}

	validator := validate.For(validate.KindTSX)
	result, err := validator.Validate(context.Background(), string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: validation failed: %v\n", err)
		return CLIExitError
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return CLIExitError
		}
	} else if result.Valid {
		fmt.Printf("%s: valid\n", path)
	} else {
		fmt.Printf("%s: %d problem(s)\n", path, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  [%s] %s\n      fix: %s\n", e.Type, e.Message, e.Fix)
		}
	}

	if !result.Valid {
		return CLIExitFindings
	}
	return CLIExitSuccess
}
