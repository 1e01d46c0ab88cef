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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/modelbench/pkg/logging"
	"github.com/AleutianAI/modelbench/services/llm"
	"github.com/AleutianAI/modelbench/services/validate"
)

// Generator is the slice of the transport gateway the loop needs.
// *llm.Gateway satisfies it; tests substitute scripted fakes.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error)
}

// LoopConfig bounds one fix-loop invocation.
type LoopConfig struct {
	// MaxIterations is the generate+fix budget per pair. Default: 3.
	MaxIterations int

	// InitialTemperature is used for the first generation, where variety
	// is wanted. Default: 0.7.
	InitialTemperature float32

	// FixTemperature is used for corrective calls, biased toward
	// conservative edits. Default: 0.3.
	FixTemperature float32

	// IterationDelay is the pause between iterations so the loop does
	// not burst the provider. Default: 500ms.
	IterationDelay time.Duration

	// MaxTokens is the visible-output budget handed to the gateway,
	// before class expansion. Default: 2048.
	MaxTokens int
}

// withDefaults fills unset fields.
func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 3
	}
	if c.InitialTemperature <= 0 {
		c.InitialTemperature = 0.7
	}
	if c.FixTemperature <= 0 {
		c.FixTemperature = 0.3
	}
	if c.IterationDelay <= 0 {
		c.IterationDelay = 500 * time.Millisecond
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	return c
}

// FixLoop runs the bounded generate/validate/fix state machine for one
// (model, test) pair.
//
// States: Generating -> Validating -> {Done | Fixing -> Validating -> ...}.
// Terminal states are Done (validation succeeded within the iteration
// budget) and Failed (budget exhausted, or a transport error escaped the
// gateway's own retries).
//
// # Thread Safety
//
// A FixLoop holds no per-pair state and is safe for concurrent use,
// though the coordinator runs pairs strictly one at a time.
type FixLoop struct {
	gen       Generator
	validator validate.Validator
	cfg       LoopConfig
	logger    *logging.Logger
	observer  Observer

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFixLoop creates a FixLoop. A nil observer is replaced with a no-op.
func NewFixLoop(gen Generator, validator validate.Validator, cfg LoopConfig, logger *logging.Logger, observer Observer) *FixLoop {
	if logger == nil {
		logger = logging.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &FixLoop{
		gen:       gen,
		validator: validator,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		observer:  observer,
		sleep:     sleepCtx,
	}
}

// Run executes the loop for one pair and always returns a TestResult;
// failures are recorded in the result rather than raised, so one bad pair
// never takes down the rest of a run.
func (l *FixLoop) Run(ctx context.Context, model llm.Model, test TestCase) *TestResult {
	ctx, span := otel.Tracer("modelbench.bench").Start(ctx, "FixLoop.Run",
		trace.WithAttributes(
			attribute.String("model", model.ID),
			attribute.String("test", test.Name),
		),
	)
	defer span.End()

	start := time.Now()
	result := &TestResult{}

	log := l.logger.With("model", model.ID, "test", test.Name)

	code, err := l.generate(ctx, result, llm.GenerateRequest{
		Model:        model.ID,
		SystemPrompt: systemPrompt,
		UserPrompt:   test.Prompt,
		MaxTokens:    l.cfg.MaxTokens,
		Temperature:  l.cfg.InitialTemperature,
	})
	if err != nil {
		// Transport failure on the initial call: the gateway already
		// retried; the pair is an infrastructure failure, not a
		// measured one.
		log.Error("initial generation failed", "error", err)
		result.Iterations = 1
		result.Err = err.Error()
		result.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("success", false))
		return result
	}

	for iteration := 1; ; iteration++ {
		result.Iterations = iteration
		result.Code = code

		verdict, verr := l.validator.Validate(ctx, code)
		if verr != nil {
			log.Error("validator failed", "iteration", iteration, "error", verr)
			result.Err = verr.Error()
			result.Duration = time.Since(start)
			return result
		}
		result.Validation = verdict
		result.History = append(result.History, newIterationRecord(iteration, verdict))

		l.observer.OnEvent(Event{
			Type:      EventIterationResult,
			Model:     model.ID,
			Test:      test.Name,
			Iteration: iteration,
			Valid:     verdict.Valid,
		})
		log.Info("iteration validated", "iteration", iteration, "valid", verdict.Valid, "errors", len(verdict.Errors))

		if verdict.Valid {
			result.Success = true
			result.PassedAfterLoop = true
			break
		}
		if iteration == l.cfg.MaxIterations {
			// Budget exhausted without validity: a measured failure,
			// still a successful measurement.
			result.Success = true
			result.PassedAfterLoop = false
			break
		}

		if err := l.sleep(ctx, l.cfg.IterationDelay); err != nil {
			result.Err = err.Error()
			result.Duration = time.Since(start)
			return result
		}

		code, err = l.generate(ctx, result, llm.GenerateRequest{
			Model:        model.ID,
			SystemPrompt: systemPrompt,
			UserPrompt:   fixPrompt(code, verdict.Errors),
			MaxTokens:    l.cfg.MaxTokens,
			Temperature:  l.cfg.FixTemperature,
		})
		if err != nil {
			log.Error("fix generation failed", "iteration", iteration+1, "error", err)
			result.Iterations = iteration + 1
			result.Err = err.Error()
			result.Duration = time.Since(start)
			span.SetAttributes(attribute.Bool("success", false))
			return result
		}
	}

	result.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Bool("success", result.Success),
		attribute.Bool("passed", result.PassedAfterLoop),
		attribute.Int("iterations", result.Iterations),
	)
	return result
}

// generate issues one gateway call and accumulates its token usage.
func (l *FixLoop) generate(ctx context.Context, result *TestResult, req llm.GenerateRequest) (string, error) {
	resp, err := l.gen.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	result.TokenUsage.Add(resp.Usage)
	return resp.Text, nil
}

func newIterationRecord(iteration int, verdict validate.Result) IterationRecord {
	rec := IterationRecord{Iteration: iteration, Valid: verdict.Valid}
	for _, e := range verdict.Errors {
		rec.ErrorTypes = append(rec.ErrorTypes, string(e.Type))
	}
	return rec
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
