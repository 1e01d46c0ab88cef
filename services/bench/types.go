// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench drives the benchmark itself: a bounded generate/validate/fix
// loop per (model, test) pair, and a coordinator that sequences the cross
// product of tests and models while aggregating results.
//
// Execution is single-flight by design. Upstream rate limiting makes
// parallel fan-out counterproductive and non-deterministic for comparison,
// so at most one generation call is outstanding at any time across a run.
package bench

import (
	"time"

	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

// TestCase is one benchmark prompt. Immutable; supplied by the caller.
type TestCase struct {
	Name   string `yaml:"name" json:"name"`
	Prompt string `yaml:"prompt" json:"prompt"`
}

// IterationRecord is one completed pass of the fix-loop. Appended once per
// pass and never mutated afterwards.
type IterationRecord struct {
	Iteration  int      `json:"iteration"`
	Valid      bool     `json:"valid"`
	ErrorTypes []string `json:"error_types,omitempty"`
}

// TokenUsage accumulates token counts across the calls of one pair.
// Values only grow as iterations accrue.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Reasoning  int `json:"reasoning"`
}

// Add folds one call's usage into the running total.
func (u *TokenUsage) Add(usage llm.Usage) {
	u.Prompt += usage.PromptTokens
	u.Completion += usage.CompletionTokens
	u.Reasoning += usage.ReasoningTokens
}

// AddTotals folds another accumulated TokenUsage into this one.
func (u *TokenUsage) AddTotals(other TokenUsage) {
	u.Prompt += other.Prompt
	u.Completion += other.Completion
	u.Reasoning += other.Reasoning
}

// Total is the sum of all token categories.
func (u TokenUsage) Total() int {
	return u.Prompt + u.Completion + u.Reasoning
}

// TestResult is the terminal outcome of one (model, test) pair.
//
// Success distinguishes infrastructure failure from measured failure:
// Success=false means a transport error escaped the loop (Err is set and
// Validation.Valid is false); exhausting the iteration budget without a
// valid result is Success=true with PassedAfterLoop=false. When
// Success=true, PassedAfterLoop always equals Validation.Valid.
type TestResult struct {
	Success         bool              `json:"success"`
	Code            string            `json:"code,omitempty"`
	Validation      validate.Result   `json:"validation"`
	Iterations      int               `json:"iterations"`
	History         []IterationRecord `json:"history"`
	Duration        time.Duration     `json:"duration_ms"`
	PassedAfterLoop bool              `json:"passed_after_loop"`
	TokenUsage      TokenUsage        `json:"token_usage"`
	Err             string            `json:"error,omitempty"`
}

// ModelAggregate holds per-model running totals for a run.
//
// Exactly one of the three outcome counters increments per completed
// TestResult; Fold enforces the rule.
type ModelAggregate struct {
	PassedFirstTry  int           `json:"passed_first_try"`
	PassedAfterLoop int           `json:"passed_after_loop"`
	TotalFailed     int           `json:"total_failed"`
	TotalIterations int           `json:"total_iterations"`
	TotalDuration   time.Duration `json:"total_duration_ms"`
	TotalTokens     TokenUsage    `json:"total_tokens"`
}

// Fold merges one completed TestResult into the aggregate.
func (a *ModelAggregate) Fold(res *TestResult) {
	a.TotalIterations += res.Iterations
	a.TotalDuration += res.Duration
	a.TotalTokens.AddTotals(res.TokenUsage)

	switch {
	case res.PassedAfterLoop && res.Iterations == 1:
		a.PassedFirstTry++
	case res.PassedAfterLoop:
		a.PassedAfterLoop++
	default:
		a.TotalFailed++
	}
}

// Completed is the number of pairs folded so far.
func (a *ModelAggregate) Completed() int {
	return a.PassedFirstTry + a.PassedAfterLoop + a.TotalFailed
}

// ModelStatus records why a model was excluded during pre-flight.
type ModelStatus struct {
	Model  llm.Model `json:"model"`
	Reason string    `json:"reason"`
}

// Run is the result of one benchmark run.
//
// The coordinator is the sole writer for the lifetime of a run; the struct
// is handed out only after the run reaches a terminal state (or is
// returned partially filled on cancellation, reflecting exactly the pairs
// that completed). Concurrent observers read the Progress snapshot, never
// this struct.
type Run struct {
	ID          string                     `json:"id"`
	StartedAt   time.Time                  `json:"started_at"`
	Aggregates  map[string]*ModelAggregate `json:"aggregates"`
	Available   []llm.Model                `json:"available"`
	Unavailable []ModelStatus              `json:"unavailable"`
	TestCount   int                        `json:"test_count"`
}
