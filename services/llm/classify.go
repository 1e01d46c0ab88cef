// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"fmt"
	"strings"
	"time"
)

// ModelClass partitions model identifiers by their latency and token
// behavior. Reasoning and large-output models burn "thinking" tokens
// before any visible output appears, so they get larger budgets and
// longer timeouts than standard chat models.
//
// The classifier is total: every identifier maps to exactly one class,
// with ClassStandard as the fallback for unrecognized families.
type ModelClass int

const (
	// ClassStandard covers ordinary chat models (gpt-4o and friends).
	ClassStandard ModelClass = iota

	// ClassReasoning covers deliberation-heavy models (o-series, GPT-5).
	// Temperature is not honored by this class and must be omitted.
	ClassReasoning

	// ClassLargeOutput covers models tuned for long generations
	// (codex family). Same timeout treatment as reasoning models.
	ClassLargeOutput
)

// String returns a human-readable class name.
func (c ModelClass) String() string {
	switch c {
	case ClassStandard:
		return "standard"
	case ClassReasoning:
		return "reasoning"
	case ClassLargeOutput:
		return "large-output"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Protocol selects the wire shape used to reach a model.
type Protocol int

const (
	// ProtocolChat is the role/content messages array with max_tokens
	// (or max_completion_tokens for reasoning models).
	ProtocolChat Protocol = iota

	// ProtocolResponses is the single input array with max_output_tokens.
	ProtocolResponses
)

// String returns a human-readable protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtocolChat:
		return "chat"
	case ProtocolResponses:
		return "responses"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

const (
	// minTokenBudget is the floor applied after the class multiplier.
	minTokenBudget = 6000

	standardTimeout = 2 * time.Minute
	extendedTimeout = 5 * time.Minute
)

// ClassifyModel maps a model identifier to its ModelClass.
//
// Matching is by family prefix/substring on the lowercased identifier.
// Unrecognized identifiers classify as ClassStandard rather than erroring,
// so a new provider model degrades to conservative defaults instead of
// being silently misrouted.
func ClassifyModel(id string) ModelClass {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, "codex"):
		return ClassLargeOutput
	case strings.HasPrefix(lower, "o1"),
		strings.HasPrefix(lower, "o3"),
		strings.HasPrefix(lower, "o4"),
		strings.Contains(lower, "gpt-5"):
		return ClassReasoning
	default:
		return ClassStandard
	}
}

// ProtocolFor selects the wire protocol for a model identifier.
//
// The codex family and the pro-tier o-series only exist behind the
// responses endpoint; everything else stays on chat completions.
func ProtocolFor(id string) Protocol {
	lower := strings.ToLower(id)
	if strings.Contains(lower, "codex") ||
		strings.HasPrefix(lower, "o1-pro") ||
		strings.HasPrefix(lower, "o3-pro") {
		return ProtocolResponses
	}
	return ProtocolChat
}

// TokenBudget expands the caller's requested token count for a class.
//
// Reasoning models spend most of their budget on hidden deliberation, so
// the visible-output request is multiplied up and floored at
// minTokenBudget. The returned budget is what actually goes on the wire.
func TokenBudget(class ModelClass, requested int) int {
	if requested < 0 {
		requested = 0
	}

	multiplier := 4
	switch class {
	case ClassReasoning:
		multiplier = 8
	case ClassLargeOutput:
		multiplier = 6
	}

	budget := requested * multiplier
	if budget < minTokenBudget {
		budget = minTokenBudget
	}
	return budget
}

// TimeoutFor returns the per-call timeout for a class.
func TimeoutFor(class ModelClass) time.Duration {
	switch class {
	case ClassReasoning, ClassLargeOutput:
		return extendedTimeout
	default:
		return standardTimeout
	}
}
