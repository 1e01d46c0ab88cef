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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/modelbench/pkg/logging"
	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

// fakeGen scripts gateway behavior per call. Single-flight execution means
// no locking is needed.
type fakeGen struct {
	calls   []llm.GenerateRequest
	respond func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

func (f *fakeGen) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	f.calls = append(f.calls, req)
	return f.respond(len(f.calls), req)
}

// scriptValidator returns canned verdicts in sequence.
type scriptValidator struct {
	verdicts []validate.Result
	call     int
}

func (v *scriptValidator) Validate(context.Context, string) (validate.Result, error) {
	verdict := v.verdicts[v.call]
	v.call++
	return verdict, nil
}

func validVerdict() validate.Result {
	return validate.Result{Valid: true, Checks: map[string]bool{validate.CheckSyntax: true}}
}

func invalidVerdict(types ...validate.ErrorType) validate.Result {
	r := validate.Result{Checks: map[string]bool{validate.CheckSyntax: true}}
	for _, typ := range types {
		r.Errors = append(r.Errors, validate.Error{
			Type:    typ,
			Message: "detected " + string(typ),
			Fix:     "repair " + string(typ),
		})
	}
	return r
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Quiet: true})
}

func newTestLoop(gen Generator, v validate.Validator, cfg LoopConfig) (*FixLoop, *[]time.Duration) {
	loop := NewFixLoop(gen, v, cfg, quietLogger(), nil)
	var delays []time.Duration
	loop.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return loop, &delays
}

var (
	testModel = llm.Model{Name: "GPT-4o", ID: "gpt-4o"}
	testCase  = TestCase{Name: "counter", Prompt: "Build a counter component"}
)

func okResponse(text string, usage llm.Usage) *llm.GenerateResponse {
	return &llm.GenerateResponse{Text: text, Usage: usage}
}

func TestFixLoop_FirstTryValid(t *testing.T) {
	gen := &fakeGen{respond: func(int, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return okResponse("const App = 1;", llm.Usage{PromptTokens: 10, CompletionTokens: 20, ReasoningTokens: 3}), nil
	}}
	v := &scriptValidator{verdicts: []validate.Result{validVerdict()}}
	loop, delays := newTestLoop(gen, v, LoopConfig{})

	result := loop.Run(context.Background(), testModel, testCase)

	assert.True(t, result.Success)
	assert.True(t, result.PassedAfterLoop)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, "const App = 1;", result.Code)
	require.Len(t, result.History, 1)
	assert.Equal(t, IterationRecord{Iteration: 1, Valid: true}, result.History[0])
	assert.Equal(t, TokenUsage{Prompt: 10, Completion: 20, Reasoning: 3}, result.TokenUsage)
	assert.Empty(t, *delays, "no inter-iteration delay when the first try passes")

	// Initial call uses the task prompt at the exploratory temperature.
	require.Len(t, gen.calls, 1)
	assert.Equal(t, testCase.Prompt, gen.calls[0].UserPrompt)
	assert.InDelta(t, 0.7, gen.calls[0].Temperature, 0.001)
}

func TestFixLoop_PassesAfterFix(t *testing.T) {
	gen := &fakeGen{respond: func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		if call == 1 {
			return okResponse("<button>x</a>", llm.Usage{PromptTokens: 5, CompletionTokens: 7}), nil
		}
		return okResponse("<button>x</button>", llm.Usage{PromptTokens: 11, CompletionTokens: 13}), nil
	}}
	v := &scriptValidator{verdicts: []validate.Result{
		invalidVerdict(validate.TypeTagMismatch),
		validVerdict(),
	}}
	loop, delays := newTestLoop(gen, v, LoopConfig{})

	result := loop.Run(context.Background(), testModel, testCase)

	assert.True(t, result.Success)
	assert.True(t, result.PassedAfterLoop)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.History, 2)
	assert.False(t, result.History[0].Valid)
	assert.Equal(t, []string{string(validate.TypeTagMismatch)}, result.History[0].ErrorTypes)
	assert.True(t, result.History[1].Valid)

	// Token usage is the sum across all calls in the loop.
	assert.Equal(t, TokenUsage{Prompt: 16, Completion: 20}, result.TokenUsage)

	// One inter-iteration delay at the default pace.
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *delays)

	// The corrective call embeds the previous code, the error bullets, the
	// worked tag-mismatch example, and the return-only-code instruction,
	// at the conservative temperature.
	require.Len(t, gen.calls, 2)
	fix := gen.calls[1]
	assert.InDelta(t, 0.3, fix.Temperature, 0.001)
	assert.Contains(t, fix.UserPrompt, "<button>x</a>")
	assert.Contains(t, fix.UserPrompt, "detected "+string(validate.TypeTagMismatch))
	assert.Contains(t, fix.UserPrompt, "repair "+string(validate.TypeTagMismatch))
	assert.Contains(t, fix.UserPrompt, "Incorrect:")
	assert.Contains(t, fix.UserPrompt, "Correct:")
	assert.Contains(t, strings.ToLower(fix.UserPrompt), "only the complete corrected code")
}

func TestFixLoop_ExhaustsIterationBudget(t *testing.T) {
	gen := &fakeGen{respond: func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return okResponse("still broken", llm.Usage{CompletionTokens: 2}), nil
	}}
	v := &scriptValidator{verdicts: []validate.Result{
		invalidVerdict(validate.TypeSyntax),
		invalidVerdict(validate.TypeSyntax),
		invalidVerdict(validate.TypeSyntax),
	}}
	loop, _ := newTestLoop(gen, v, LoopConfig{MaxIterations: 3})

	result := loop.Run(context.Background(), testModel, testCase)

	// Exhaustion is a measured failure, not an infrastructure one.
	assert.True(t, result.Success)
	assert.False(t, result.PassedAfterLoop)
	assert.Empty(t, result.Err)
	assert.Equal(t, 3, result.Iterations)
	assert.Len(t, result.History, 3)
	assert.False(t, result.Validation.Valid)
	assert.Len(t, gen.calls, 3)
	assert.Equal(t, TokenUsage{Completion: 6}, result.TokenUsage)
}

func TestFixLoop_InitialTransportFailure(t *testing.T) {
	gen := &fakeGen{respond: func(int, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return nil, errors.New("retries exhausted after 3 attempts: 429")
	}}
	v := &scriptValidator{}
	loop, _ := newTestLoop(gen, v, LoopConfig{})

	result := loop.Run(context.Background(), testModel, testCase)

	assert.False(t, result.Success)
	assert.False(t, result.PassedAfterLoop)
	assert.False(t, result.Validation.Valid)
	assert.Equal(t, 1, result.Iterations)
	assert.Contains(t, result.Err, "retries exhausted")
	assert.Empty(t, result.History)
}

func TestFixLoop_FixCallTransportFailure(t *testing.T) {
	gen := &fakeGen{respond: func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		if call == 1 {
			return okResponse("broken", llm.Usage{PromptTokens: 4}), nil
		}
		return nil, errors.New("connection reset")
	}}
	v := &scriptValidator{verdicts: []validate.Result{invalidVerdict(validate.TypeInvalidHref)}}
	loop, _ := newTestLoop(gen, v, LoopConfig{})

	result := loop.Run(context.Background(), testModel, testCase)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Iterations)
	assert.Contains(t, result.Err, "connection reset")
	// The first iteration's record and usage survive the failure.
	assert.Len(t, result.History, 1)
	assert.Equal(t, TokenUsage{Prompt: 4}, result.TokenUsage)
}

func TestFixLoop_PublishesIterationEvents(t *testing.T) {
	gen := &fakeGen{respond: func(call int, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return okResponse("code", llm.Usage{}), nil
	}}
	v := &scriptValidator{verdicts: []validate.Result{
		invalidVerdict(validate.TypeSyntax),
		validVerdict(),
	}}

	var events []Event
	loop := NewFixLoop(gen, v, LoopConfig{}, quietLogger(), observerFunc(func(ev Event) {
		events = append(events, ev)
	}))
	loop.sleep = func(context.Context, time.Duration) error { return nil }

	loop.Run(context.Background(), testModel, testCase)

	require.Len(t, events, 2)
	assert.Equal(t, EventIterationResult, events[0].Type)
	assert.Equal(t, 1, events[0].Iteration)
	assert.False(t, events[0].Valid)
	assert.Equal(t, 2, events[1].Iteration)
	assert.True(t, events[1].Valid)
}

func TestFixLoop_TokenUsageMatchesHistoryLength(t *testing.T) {
	// tokenUsage equals the sum of per-call usages across the loop.
	perCall := llm.Usage{PromptTokens: 3, CompletionTokens: 5, ReasoningTokens: 1}
	gen := &fakeGen{respond: func(int, llm.GenerateRequest) (*llm.GenerateResponse, error) {
		return okResponse("x", perCall), nil
	}}
	v := &scriptValidator{verdicts: []validate.Result{
		invalidVerdict(validate.TypeSyntax),
		invalidVerdict(validate.TypeSyntax),
		invalidVerdict(validate.TypeSyntax),
	}}
	loop, _ := newTestLoop(gen, v, LoopConfig{MaxIterations: 3})

	result := loop.Run(context.Background(), testModel, testCase)

	calls := len(result.History)
	assert.Equal(t, TokenUsage{
		Prompt:     perCall.PromptTokens * calls,
		Completion: perCall.CompletionTokens * calls,
		Reasoning:  perCall.ReasoningTokens * calls,
	}, result.TokenUsage)
}

// observerFunc adapts a function to the Observer interface.
type observerFunc func(Event)

func (f observerFunc) OnEvent(ev Event) { f(ev) }
