// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders a finished benchmark run: a console summary table
// for humans and a JSON export blob for downstream tooling.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/modelbench/services/bench"
)

const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"
	ansiBold  = "\033[1m"
)

// Render writes the run summary table to w. ANSI color is used only when w
// is a terminal.
func Render(w io.Writer, run *bench.Run) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	render(w, run, color)
}

func render(w io.Writer, run *bench.Run, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + ansiReset
	}

	fmt.Fprintf(w, "\n%s\n", paint(ansiBold, "Benchmark "+run.ID))
	fmt.Fprintf(w, "Started %s, %d tests x %d models\n\n",
		run.StartedAt.Format(time.RFC3339), run.TestCount, len(run.Available))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tFIRST TRY\tAFTER FIX\tFAILED\tPASS RATE\tAVG ITER\tTOKENS\tDURATION")

	for _, id := range modelOrder(run) {
		agg := run.Aggregates[id]
		completed := agg.Completed()
		passed := agg.PassedFirstTry + agg.PassedAfterLoop

		rate := "-"
		if completed > 0 {
			pct := fmt.Sprintf("%.0f%%", 100*float64(passed)/float64(completed))
			switch {
			case passed == completed:
				rate = paint(ansiGreen, pct)
			case passed == 0:
				rate = paint(ansiRed, pct)
			default:
				rate = pct
			}
		}

		avgIter := "-"
		if completed > 0 {
			avgIter = fmt.Sprintf("%.1f", float64(agg.TotalIterations)/float64(completed))
		}

		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\t%d\t%s\n",
			id, agg.PassedFirstTry, agg.PassedAfterLoop, agg.TotalFailed,
			rate, avgIter, agg.TotalTokens.Total(), agg.TotalDuration.Round(time.Millisecond))
	}
	tw.Flush()

	if len(run.Unavailable) > 0 {
		fmt.Fprintf(w, "\n%s\n", paint(ansiBold, "Unavailable models"))
		for _, status := range run.Unavailable {
			fmt.Fprintf(w, "  %s\t%s\n", status.Model.ID, paint(ansiRed, status.Reason))
		}
	}
	fmt.Fprintln(w)
}

// modelOrder renders rows in the run's model order; aggregates keyed by
// models missing from Available (never expected) come last, sorted.
func modelOrder(run *bench.Run) []string {
	ids := make([]string, 0, len(run.Aggregates))
	seen := make(map[string]bool, len(run.Aggregates))
	for _, model := range run.Available {
		if _, ok := run.Aggregates[model.ID]; ok {
			ids = append(ids, model.ID)
			seen[model.ID] = true
		}
	}
	var rest []string
	for id := range run.Aggregates {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}
