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

// EventType names the lifecycle events the coordinator publishes.
//
// The namespace prefix groups related events for consumers that filter
// (availability, benchmark, test, iteration), plus a free-text log kind.
type EventType string

const (
	EventAvailabilityStart  EventType = "availability:start"
	EventAvailabilityResult EventType = "availability:result"

	EventBenchmarkStart    EventType = "benchmark:start"
	EventBenchmarkComplete EventType = "benchmark:complete"

	EventTestStart    EventType = "test:start"
	EventTestComplete EventType = "test:complete"

	EventIterationResult EventType = "iteration:result"

	EventLog EventType = "log"
)

// Event is one progress/log notification. Fields are populated as relevant
// for the event type; unused fields stay zero.
type Event struct {
	Type      EventType `json:"type"`
	Model     string    `json:"model,omitempty"`
	Test      string    `json:"test,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Valid     bool      `json:"valid,omitempty"`
	Available bool      `json:"available,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// Observer receives lifecycle events from a running benchmark.
//
// Implementations must be fast or hand off internally: events are
// delivered synchronously on the coordinator's single flight of control.
// The coordinator never needs to know how many listeners exist behind an
// Observer; fan-out is the consumer's business.
type Observer interface {
	OnEvent(ev Event)
}

// nopObserver swallows events. Used when no observer is configured.
type nopObserver struct{}

func (nopObserver) OnEvent(Event) {}

// Phase names the coordinator's current stage for progress snapshots.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePreflight Phase = "preflight"
	PhaseRunning   Phase = "running"
	PhaseDone      Phase = "done"
	PhaseCancelled Phase = "cancelled"
)

// Progress is the externally observable state of a run.
//
// The coordinator publishes a fresh snapshot after each completed pair by
// atomically replacing the previous one. Readers get a consistent value
// and must treat it as immutable; there is exactly one writer.
type Progress struct {
	Phase          Phase      `json:"phase"`
	CompletedPairs int        `json:"completed_pairs"`
	TotalPairs     int        `json:"total_pairs"`
	CurrentModel   string     `json:"current_model,omitempty"`
	CurrentTest    string     `json:"current_test,omitempty"`
	Tokens         TokenUsage `json:"tokens"`
}
