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
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/modelbench/pkg/logging"
	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

// ErrNoModelsAvailable terminates a run whose pre-flight phase found
// nothing to benchmark.
var ErrNoModelsAvailable = errors.New("no models available")

// CoordinatorConfig tunes a benchmark run.
type CoordinatorConfig struct {
	// Loop configures each fix-loop invocation.
	Loop LoopConfig

	// PairDelay throttles the gap between (model, test) pairs. Default: 1s.
	PairDelay time.Duration

	// ProbeTimeout bounds each pre-flight availability probe. Deliberately
	// independent of the main loop's per-call timeouts. Default: 15s.
	ProbeTimeout time.Duration

	// ProbeTokens is the output budget for probes. Default: 16.
	ProbeTokens int
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.PairDelay <= 0 {
		c.PairDelay = 1000 * time.Millisecond
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 15 * time.Second
	}
	if c.ProbeTokens <= 0 {
		c.ProbeTokens = 16
	}
	return c
}

// Coordinator owns one benchmark run end to end: pre-flight availability,
// the tests x models main loop, aggregation, and progress publication.
//
// # Concurrency
//
// The coordinator is the sole writer of the run's aggregate state and
// executes pairs strictly one at a time. External readers observe the run
// only through Snapshot(), which returns an atomically replaced copy.
// Cancellation is cooperative: the context is checked at test and model
// boundaries, never mid-call, so an in-flight generation always runs to
// completion or to its own timeout first.
type Coordinator struct {
	gen      Generator
	loop     *FixLoop
	cfg      CoordinatorConfig
	logger   *logging.Logger
	observer Observer

	progress atomic.Pointer[Progress]
}

// NewCoordinator wires a coordinator from its collaborators. A nil
// observer is replaced with a no-op, a nil logger with the default.
func NewCoordinator(gen Generator, validator validate.Validator, cfg CoordinatorConfig, logger *logging.Logger, observer Observer) *Coordinator {
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	cfg = cfg.withDefaults()

	c := &Coordinator{
		gen:      gen,
		loop:     NewFixLoop(gen, validator, cfg.Loop, logger, observer),
		cfg:      cfg,
		logger:   logger,
		observer: observer,
	}
	c.progress.Store(&Progress{Phase: PhaseIdle})
	return c
}

// Snapshot returns the latest progress snapshot. Safe to call from any
// goroutine; the returned value is immutable.
func (c *Coordinator) Snapshot() Progress {
	return *c.progress.Load()
}

// Run executes the benchmark over models x testCases.
//
// Models found unavailable during pre-flight are excluded and recorded
// with their failure reason; a run with zero available models terminates
// with ErrNoModelsAvailable. Cancellation returns the partial Run
// accumulated so far together with the context's error; completed pairs
// are never rolled back.
func (c *Coordinator) Run(ctx context.Context, models []llm.Model, testCases []TestCase) (*Run, error) {
	ctx, span := otel.Tracer("modelbench.bench").Start(ctx, "Coordinator.Run",
		trace.WithAttributes(
			attribute.Int("models", len(models)),
			attribute.Int("tests", len(testCases)),
		),
	)
	defer span.End()

	run := &Run{
		ID:         uuid.NewString(),
		StartedAt:  time.Now(),
		Aggregates: make(map[string]*ModelAggregate),
		TestCount:  len(testCases),
	}

	c.setProgress(Progress{Phase: PhasePreflight})
	c.observer.OnEvent(Event{Type: EventAvailabilityStart, Message: fmt.Sprintf("probing %d models", len(models))})

	for _, model := range models {
		if err := ctx.Err(); err != nil {
			c.setProgress(Progress{Phase: PhaseCancelled})
			return run, err
		}
		if reason, ok := c.probe(ctx, model); ok {
			run.Available = append(run.Available, model)
			run.Aggregates[model.ID] = &ModelAggregate{}
			c.observer.OnEvent(Event{Type: EventAvailabilityResult, Model: model.ID, Available: true})
		} else {
			run.Unavailable = append(run.Unavailable, ModelStatus{Model: model, Reason: reason})
			c.observer.OnEvent(Event{Type: EventAvailabilityResult, Model: model.ID, Available: false, Message: reason})
		}
	}

	if len(run.Available) == 0 {
		c.setProgress(Progress{Phase: PhaseDone})
		c.logger.Error("pre-flight found no available models", "requested", len(models))
		return nil, fmt.Errorf("%w: all %d requested models failed pre-flight", ErrNoModelsAvailable, len(models))
	}

	totalPairs := len(run.Available) * len(testCases)
	c.logger.Info("benchmark starting",
		"run_id", run.ID, "models", len(run.Available), "tests", len(testCases), "pairs", totalPairs)
	c.observer.OnEvent(Event{Type: EventBenchmarkStart, Message: run.ID})

	// The limiter implements the fixed inter-pair delay while staying
	// responsive to cancellation. The initial token lets the first pair
	// start immediately.
	limiter := rate.NewLimiter(rate.Every(c.cfg.PairDelay), 1)

	completed := 0
	tokens := TokenUsage{}

	for _, test := range testCases {
		if err := ctx.Err(); err != nil {
			return c.cancelled(run, err)
		}
		c.observer.OnEvent(Event{Type: EventTestStart, Test: test.Name})

		for _, model := range run.Available {
			if err := ctx.Err(); err != nil {
				return c.cancelled(run, err)
			}
			if err := limiter.Wait(ctx); err != nil {
				return c.cancelled(run, err)
			}

			c.setProgress(Progress{
				Phase:          PhaseRunning,
				CompletedPairs: completed,
				TotalPairs:     totalPairs,
				CurrentModel:   model.ID,
				CurrentTest:    test.Name,
				Tokens:         tokens,
			})

			result := c.loop.Run(ctx, model, test)
			run.Aggregates[model.ID].Fold(result)

			completed++
			tokens.AddTotals(result.TokenUsage)

			c.setProgress(Progress{
				Phase:          PhaseRunning,
				CompletedPairs: completed,
				TotalPairs:     totalPairs,
				CurrentModel:   model.ID,
				CurrentTest:    test.Name,
				Tokens:         tokens,
			})
			c.observer.OnEvent(Event{
				Type:    EventTestComplete,
				Model:   model.ID,
				Test:    test.Name,
				Valid:   result.PassedAfterLoop,
				Message: outcomeLabel(result),
			})
		}
	}

	c.setProgress(Progress{
		Phase:          PhaseDone,
		CompletedPairs: completed,
		TotalPairs:     totalPairs,
		Tokens:         tokens,
	})
	c.observer.OnEvent(Event{Type: EventBenchmarkComplete, Message: run.ID})
	c.logger.Info("benchmark complete", "run_id", run.ID, "pairs", completed)
	span.SetAttributes(attribute.Int("completed_pairs", completed))
	return run, nil
}

// probe sends the minimal availability request for one model.
func (c *Coordinator) probe(ctx context.Context, model llm.Model) (reason string, ok bool) {
	c.logger.Debug("probing model", "model", model.ID)

	_, err := c.gen.Generate(ctx, llm.GenerateRequest{
		Model:      model.ID,
		UserPrompt: probePrompt,
		MaxTokens:  c.cfg.ProbeTokens,
		Timeout:    c.cfg.ProbeTimeout,
	})
	if err != nil {
		c.logger.Warn("model unavailable", "model", model.ID, "error", err)
		return err.Error(), false
	}
	return "", true
}

// cancelled finalizes a cooperatively cancelled run. Aggregates for pairs
// that already completed are retained.
func (c *Coordinator) cancelled(run *Run, err error) (*Run, error) {
	prev := c.progress.Load()
	c.setProgress(Progress{
		Phase:          PhaseCancelled,
		CompletedPairs: prev.CompletedPairs,
		TotalPairs:     prev.TotalPairs,
		Tokens:         prev.Tokens,
	})
	c.observer.OnEvent(Event{Type: EventLog, Message: "benchmark cancelled"})
	c.logger.Warn("benchmark cancelled", "run_id", run.ID, "error", err)
	return run, err
}

func (c *Coordinator) setProgress(p Progress) {
	c.progress.Store(&p)
}

func outcomeLabel(res *TestResult) string {
	switch {
	case !res.Success:
		return "transport failure: " + res.Err
	case res.PassedAfterLoop && res.Iterations == 1:
		return "passed first try"
	case res.PassedAfterLoop:
		return fmt.Sprintf("passed after %d iterations", res.Iterations)
	default:
		return fmt.Sprintf("failed after %d iterations", res.Iterations)
	}
}
