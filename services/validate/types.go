// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate performs static validation of generated source text.
//
// The engine is deliberately narrow: syntax well-formedness via tree-sitter
// plus a small set of structural heuristics that catch the defects models
// most often produce in component markup. Validation is dispatched by a
// declared content kind so additional rule sets can be added without
// touching the fix-loop.
package validate

import "context"

// ContentKind declares what language a piece of generated text claims to be.
type ContentKind string

const (
	// KindTSX is a module with embedded markup (JSX/TSX). This is the only
	// kind with a full rule set; everything else degrades to a non-empty
	// check.
	KindTSX ContentKind = "tsx"
)

// ErrorType classifies a detected defect.
type ErrorType string

const (
	// TypeSyntax means the text did not parse as a module at all.
	TypeSyntax ErrorType = "SYNTAX_ERROR"

	// TypeInvalidHref flags href="#" navigation stubs, which misbehave in
	// the preview sandbox the generated components run in.
	TypeInvalidHref ErrorType = "INVALID_HREF"

	// TypeTagMismatch flags an opening tag closed by the wrong element
	// (button closed by anchor or the reverse).
	TypeTagMismatch ErrorType = "TAG_MISMATCH"

	// TypeDuplicateAttribute flags a repeated class attribute on one
	// element, which renderers resolve inconsistently.
	TypeDuplicateAttribute ErrorType = "DUPLICATE_ATTRIBUTE"

	// TypeEmptyOutput flags an empty generation for kinds without a rule
	// set of their own.
	TypeEmptyOutput ErrorType = "EMPTY_OUTPUT"
)

// Check names used as keys in Result.Checks. One entry per check family.
const (
	CheckSyntax               = "syntax"
	CheckNavigation           = "navigation"
	CheckButtonClosedByAnchor = "buttonClosedByAnchor"
	CheckAnchorClosedByButton = "anchorClosedByButton"
	CheckDuplicateClass       = "duplicateClass"
)

// Error is one detected defect with a human-actionable remediation hint.
// The Fix text is written for a model, not a person: it is embedded
// verbatim into corrective prompts.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Fix     string    `json:"fix"`
}

// Result is the verdict for one piece of generated text.
//
// Valid is true exactly when Errors is empty. Checks exposes one boolean
// per check family regardless of whether that family ran: families
// short-circuited by a syntax failure report true, by construction, not
// "unknown".
type Result struct {
	Valid  bool            `json:"valid"`
	Errors []Error         `json:"errors"`
	Checks map[string]bool `json:"checks"`
}

// Validator checks generated text for one content kind.
type Validator interface {
	Validate(ctx context.Context, code string) (Result, error)
}
