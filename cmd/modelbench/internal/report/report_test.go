// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/modelbench/services/bench"
	"github.com/AleutianAI/modelbench/services/llm"
)

func sampleRun() *bench.Run {
	return &bench.Run{
		ID:        "run-abc",
		StartedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		TestCount: 2,
		Available: []llm.Model{
			{Name: "GPT-4o", ID: "gpt-4o"},
			{Name: "o3 Mini", ID: "o3-mini"},
		},
		Aggregates: map[string]*bench.ModelAggregate{
			"gpt-4o": {
				PassedFirstTry:  2,
				TotalIterations: 2,
				TotalDuration:   4 * time.Second,
				TotalTokens:     bench.TokenUsage{Prompt: 100, Completion: 200},
			},
			"o3-mini": {
				PassedAfterLoop: 1,
				TotalFailed:     1,
				TotalIterations: 6,
				TotalDuration:   30 * time.Second,
				TotalTokens:     bench.TokenUsage{Prompt: 300, Completion: 400, Reasoning: 50},
			},
		},
		Unavailable: []bench.ModelStatus{
			{Model: llm.Model{Name: "GPT-5", ID: "gpt-5"}, Reason: "rate limit exceeded"},
		},
	}
}

func TestRender_TableContents(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, sampleRun())
	out := buf.String()

	assert.Contains(t, out, "Benchmark run-abc")
	assert.Contains(t, out, "2 tests x 2 models")
	assert.Contains(t, out, "FIRST TRY")

	// One row per available model, in run order.
	gpt4oIdx := strings.Index(out, "gpt-4o")
	o3Idx := strings.Index(out, "o3-mini")
	require.Greater(t, gpt4oIdx, -1)
	require.Greater(t, o3Idx, -1)
	assert.Less(t, gpt4oIdx, o3Idx)

	assert.Contains(t, out, "100%") // gpt-4o passed both
	assert.Contains(t, out, "50%")  // o3-mini passed one of two
	assert.Contains(t, out, "3.0")  // o3-mini average iterations
	assert.Contains(t, out, "750")  // o3-mini token total

	assert.Contains(t, out, "Unavailable models")
	assert.Contains(t, out, "rate limit exceeded")

	// A bytes.Buffer is not a terminal: no escape codes.
	assert.NotContains(t, out, "\033[")
}

func TestRender_ColorCodesWhenForced(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, sampleRun(), true)

	assert.Contains(t, buf.String(), ansiGreen)
	assert.Contains(t, buf.String(), ansiRed)
}

func TestWriteExport_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	run := sampleRun()

	require.NoError(t, WriteExport(path, run))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Export
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "run-abc", got.RunID)
	assert.Equal(t, run.StartedAt, got.Timestamp)
	assert.Equal(t, 2, got.TestCount)
	require.Contains(t, got.Aggregates, "gpt-4o")
	assert.Equal(t, 2, got.Aggregates["gpt-4o"].PassedFirstTry)
	require.Len(t, got.Unavailable, 1)
	assert.Equal(t, "gpt-5", got.Unavailable[0].Model.ID)
}
