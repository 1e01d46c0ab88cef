// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/modelbench/services/bench"
)

// Export is the run serialized for downstream tooling. The shape is
// append-only: new fields may be added, existing ones never change meaning.
type Export struct {
	RunID       string                           `json:"run_id"`
	Timestamp   time.Time                        `json:"timestamp"`
	TestCount   int                              `json:"test_count"`
	Aggregates  map[string]*bench.ModelAggregate `json:"aggregates"`
	Unavailable []bench.ModelStatus              `json:"unavailable,omitempty"`
}

// NewExport builds the export blob from a finished run.
func NewExport(run *bench.Run) Export {
	return Export{
		RunID:       run.ID,
		Timestamp:   run.StartedAt,
		TestCount:   run.TestCount,
		Aggregates:  run.Aggregates,
		Unavailable: run.Unavailable,
	}
}

// WriteExport writes the export blob as indented JSON to path.
func WriteExport(path string, run *bench.Run) error {
	data, err := json.MarshalIndent(NewExport(run), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode the export: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write the export to %s: %w", path, err)
	}
	return nil
}
