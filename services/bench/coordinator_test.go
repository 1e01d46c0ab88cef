// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

// coordGen drives a whole coordinator run: probes answer per the down set,
// benchmark calls answer via respond. Calls are recorded in order.
type coordGen struct {
	down      map[string]string // model ID -> probe failure reason
	respond   func(benchCall int, req llm.GenerateRequest) (*llm.GenerateResponse, error)
	probes    []string
	bench     []llm.GenerateRequest
	benchHook func(benchCall int)
}

func (g *coordGen) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if req.UserPrompt == probePrompt {
		g.probes = append(g.probes, req.Model)
		if reason, bad := g.down[req.Model]; bad {
			return nil, errors.New(reason)
		}
		return &llm.GenerateResponse{Text: "OK"}, nil
	}
	g.bench = append(g.bench, req)
	if g.benchHook != nil {
		g.benchHook(len(g.bench))
	}
	if g.respond != nil {
		return g.respond(len(g.bench), req)
	}
	return &llm.GenerateResponse{Text: "const App = 1;", Usage: llm.Usage{PromptTokens: 2, CompletionTokens: 3}}, nil
}

// alwaysValid satisfies every validation.
type alwaysValid struct{}

func (alwaysValid) Validate(context.Context, string) (validate.Result, error) {
	return validate.Result{Valid: true, Checks: map[string]bool{validate.CheckSyntax: true}}, nil
}

func fastConfig() CoordinatorConfig {
	return CoordinatorConfig{
		PairDelay: time.Millisecond,
		Loop:      LoopConfig{IterationDelay: time.Millisecond},
	}
}

var coordModels = []llm.Model{
	{Name: "GPT-4o", ID: "gpt-4o"},
	{Name: "GPT-4o Mini", ID: "gpt-4o-mini"},
	{Name: "o3 Mini", ID: "o3-mini"},
}

var coordTests = []TestCase{
	{Name: "counter", Prompt: "Build a counter"},
	{Name: "navbar", Prompt: "Build a navbar"},
}

func TestCoordinator_AllPassFirstTry(t *testing.T) {
	gen := &coordGen{}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(context.Background(), coordModels, coordTests)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, len(coordTests), run.TestCount)
	assert.Len(t, run.Available, 3)
	assert.Empty(t, run.Unavailable)

	// Every model was probed exactly once, in registry order.
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "o3-mini"}, gen.probes)

	// 2 tests x 3 models, each passing first try.
	require.Len(t, run.Aggregates, 3)
	for _, model := range coordModels {
		agg := run.Aggregates[model.ID]
		require.NotNil(t, agg, model.ID)
		assert.Equal(t, len(coordTests), agg.PassedFirstTry)
		assert.Zero(t, agg.PassedAfterLoop)
		assert.Zero(t, agg.TotalFailed)
		assert.Equal(t, len(coordTests), agg.TotalIterations)
		assert.Equal(t, len(coordTests), agg.Completed())
	}

	// Pairs run test-major: all models for one test before the next.
	require.Len(t, gen.bench, 6)
	assert.Equal(t, "Build a counter", gen.bench[0].UserPrompt)
	assert.Equal(t, "gpt-4o", gen.bench[0].Model)
	assert.Equal(t, "gpt-4o-mini", gen.bench[1].Model)
	assert.Equal(t, "o3-mini", gen.bench[2].Model)
	assert.Equal(t, "Build a navbar", gen.bench[3].UserPrompt)

	snap := c.Snapshot()
	assert.Equal(t, PhaseDone, snap.Phase)
	assert.Equal(t, 6, snap.CompletedPairs)
	assert.Equal(t, 6, snap.TotalPairs)
	assert.Equal(t, TokenUsage{Prompt: 12, Completion: 18}, snap.Tokens)
}

func TestCoordinator_SkipsUnavailableModels(t *testing.T) {
	gen := &coordGen{down: map[string]string{"gpt-4o-mini": "connection refused"}}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(context.Background(), coordModels, coordTests)
	require.NoError(t, err)

	assert.Len(t, run.Available, 2)
	require.Len(t, run.Unavailable, 1)
	assert.Equal(t, "gpt-4o-mini", run.Unavailable[0].Model.ID)
	assert.Equal(t, "connection refused", run.Unavailable[0].Reason)

	// The dead model never enters the main loop.
	assert.NotContains(t, run.Aggregates, "gpt-4o-mini")
	for _, req := range gen.bench {
		assert.NotEqual(t, "gpt-4o-mini", req.Model)
	}
	assert.Len(t, gen.bench, 4)
}

func TestCoordinator_NoModelsAvailable(t *testing.T) {
	gen := &coordGen{down: map[string]string{
		"gpt-4o":      "timeout",
		"gpt-4o-mini": "timeout",
		"o3-mini":     "timeout",
	}}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(context.Background(), coordModels, coordTests)
	assert.Nil(t, run)
	assert.ErrorIs(t, err, ErrNoModelsAvailable)
	assert.Empty(t, gen.bench)
}

func TestCoordinator_CancellationKeepsCompletedPairs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	gen := &coordGen{}
	gen.benchHook = func(benchCall int) {
		// The third pair's call is already in flight when we cancel, so
		// it still completes and folds; the boundary check stops pair 4.
		if benchCall == 3 {
			cancel()
		}
	}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(ctx, coordModels, coordTests)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)

	completed := 0
	for _, agg := range run.Aggregates {
		completed += agg.Completed()
	}
	assert.Equal(t, 3, completed)
	assert.Len(t, gen.bench, 3)
	assert.Equal(t, PhaseCancelled, c.Snapshot().Phase)
}

func TestCoordinator_CancelledBeforePreflight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &coordGen{}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(ctx, coordModels, coordTests)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, run)
	assert.Empty(t, run.Available)
	assert.Empty(t, gen.probes)
}

func TestCoordinator_EventOrdering(t *testing.T) {
	var types []EventType
	gen := &coordGen{}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), observerFunc(func(ev Event) {
		types = append(types, ev.Type)
	}))

	_, err := c.Run(context.Background(),
		[]llm.Model{{Name: "GPT-4o", ID: "gpt-4o"}},
		[]TestCase{{Name: "counter", Prompt: "Build a counter"}},
	)
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventAvailabilityStart,
		EventAvailabilityResult,
		EventBenchmarkStart,
		EventTestStart,
		EventIterationResult,
		EventTestComplete,
		EventBenchmarkComplete,
	}, types)
}

func TestCoordinator_TransportFailureCountsAsFailed(t *testing.T) {
	gen := &coordGen{respond: func(benchCall int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return nil, errors.New("boom")
	}}
	c := NewCoordinator(gen, alwaysValid{}, fastConfig(), quietLogger(), nil)

	run, err := c.Run(context.Background(),
		[]llm.Model{{Name: "GPT-4o", ID: "gpt-4o"}},
		[]TestCase{{Name: "counter", Prompt: "Build a counter"}},
	)
	require.NoError(t, err, "a failing pair does not fail the run")

	agg := run.Aggregates["gpt-4o"]
	require.NotNil(t, agg)
	assert.Equal(t, 1, agg.TotalFailed)
	assert.Zero(t, agg.PassedFirstTry)
	assert.Zero(t, agg.PassedAfterLoop)
}

func TestCoordinator_SnapshotBeforeRun(t *testing.T) {
	c := NewCoordinator(&coordGen{}, alwaysValid{}, fastConfig(), quietLogger(), nil)
	assert.Equal(t, PhaseIdle, c.Snapshot().Phase)
}
