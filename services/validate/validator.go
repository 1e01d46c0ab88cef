// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// For returns the Validator for a content kind.
//
// Unsupported kinds degrade to a non-empty check rather than failing, so
// the fix-loop can run test suites in languages the engine has no rule
// set for yet.
func For(kind ContentKind) Validator {
	switch kind {
	case KindTSX, "jsx":
		return &tsxValidator{}
	default:
		return &nonEmptyValidator{kind: kind}
	}
}

// tsxValidator is the full rule set for modules with embedded markup.
//
// # Thread Safety
//
// Safe for concurrent use. A tree-sitter parser is created per call; the
// structural checks are pure functions of the input text.
type tsxValidator struct{}

// Validate parses the text as a TSX module and runs the structural checks.
//
// A parse failure short-circuits: the result carries a single SYNTAX_ERROR
// and no structural check runs, because a malformed document cannot be
// meaningfully pattern-matched. Check families that did not run still
// report true in Checks.
func (v *tsxValidator) Validate(ctx context.Context, code string) (Result, error) {
	ctx, span := otel.Tracer("modelbench.validate").Start(ctx, "tsxValidator.Validate",
		trace.WithAttributes(attribute.Int("code_bytes", len(code))),
	)
	defer span.End()

	result := Result{
		Checks: map[string]bool{
			CheckSyntax:               true,
			CheckNavigation:           true,
			CheckButtonClosedByAnchor: true,
			CheckAnchorClosedByButton: true,
			CheckDuplicateClass:       true,
		},
	}

	wellFormed, err := parseTSX(ctx, code)
	if err != nil {
		return Result{}, err
	}
	if !wellFormed {
		result.Checks[CheckSyntax] = false
		result.Errors = append(result.Errors, Error{
			Type:    TypeSyntax,
			Message: "The code does not parse as a valid module",
			Fix:     "Check for unbalanced braces, unclosed tags, and incomplete expressions, then return the complete corrected file",
		})
		result.Valid = false
		span.SetAttributes(attribute.Bool("valid", false))
		return result, nil
	}

	for _, check := range structuralChecks {
		if err, ok := check.run(code); ok {
			result.Checks[check.name] = false
			result.Errors = append(result.Errors, err)
		}
	}

	result.Valid = len(result.Errors) == 0
	span.SetAttributes(
		attribute.Bool("valid", result.Valid),
		attribute.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// parseTSX reports whether the text parses cleanly as a TSX module.
func parseTSX(ctx context.Context, code string) (bool, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsx.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		return false, err
	}
	defer tree.Close()

	return !tree.RootNode().HasError(), nil
}

// nonEmptyValidator is the degraded rule set for unknown content kinds.
type nonEmptyValidator struct {
	kind ContentKind
}

func (v *nonEmptyValidator) Validate(_ context.Context, code string) (Result, error) {
	result := Result{
		Checks: map[string]bool{"nonEmpty": true},
	}
	if strings.TrimSpace(code) == "" {
		result.Checks["nonEmpty"] = false
		result.Errors = append(result.Errors, Error{
			Type:    TypeEmptyOutput,
			Message: "The generated output is empty",
			Fix:     "Return the complete requested code",
		})
	}
	result.Valid = len(result.Errors) == 0
	return result, nil
}
