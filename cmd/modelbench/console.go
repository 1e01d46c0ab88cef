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
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/modelbench/services/bench"
)

// consoleObserver streams benchmark lifecycle events to the terminal.
// Events arrive synchronously from the coordinator, so handlers must stay
// cheap.
type consoleObserver struct {
	w     io.Writer
	color bool
}

func newConsoleObserver() *consoleObserver {
	return &consoleObserver{
		w:     os.Stderr,
		color: isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
	}
}

func (c *consoleObserver) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + "\033[0m"
}

const (
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colDim    = "\033[2m"
)

func (c *consoleObserver) OnEvent(ev bench.Event) {
	switch ev.Type {
	case bench.EventAvailabilityStart:
		fmt.Fprintf(c.w, "%s %s\n", c.paint(colDim, "[preflight]"), ev.Message)
	case bench.EventAvailabilityResult:
		if ev.Available {
			fmt.Fprintf(c.w, "%s %s %s\n", c.paint(colDim, "[preflight]"), ev.Model, c.paint(colGreen, "available"))
		} else {
			fmt.Fprintf(c.w, "%s %s %s: %s\n", c.paint(colDim, "[preflight]"), ev.Model, c.paint(colRed, "unavailable"), ev.Message)
		}
	case bench.EventBenchmarkStart:
		fmt.Fprintf(c.w, "benchmark %s started\n", ev.Message)
	case bench.EventTestStart:
		fmt.Fprintf(c.w, "\n%s %s\n", c.paint(colDim, "[test]"), ev.Test)
	case bench.EventIterationResult:
		verdict := c.paint(colGreen, "valid")
		if !ev.Valid {
			verdict = c.paint(colYellow, "invalid")
		}
		fmt.Fprintf(c.w, "  %s iteration %d: %s\n", ev.Model, ev.Iteration, verdict)
	case bench.EventTestComplete:
		fmt.Fprintf(c.w, "  %s: %s\n", ev.Model, ev.Message)
	case bench.EventBenchmarkComplete:
		fmt.Fprintf(c.w, "\nbenchmark %s complete\n", ev.Message)
	case bench.EventLog:
		fmt.Fprintf(c.w, "%s\n", ev.Message)
	}
}
