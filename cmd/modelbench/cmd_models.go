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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/modelbench/cmd/modelbench/config"
	"github.com/AleutianAI/modelbench/services/llm"
)

func runListModels(cmd *cobra.Command, args []string) {
	models := llm.DefaultRegistry()
	if registryPath != "" {
		var err error
		if models, err = llm.LoadRegistry(registryPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(CLIExitError)
		}
	}

	// The budget column shows what the default run request expands to on
	// the wire for each model class.
	requested := config.Default().Benchmark.MaxTokens

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tCLASS\tPROTOCOL\tTOKEN BUDGET\tTIMEOUT")
	for _, m := range models {
		class := llm.ClassifyModel(m.ID)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			m.Name, m.ID, class, llm.ProtocolFor(m.ID),
			llm.TokenBudget(class, requested), llm.TimeoutFor(class))
	}
	tw.Flush()
}
