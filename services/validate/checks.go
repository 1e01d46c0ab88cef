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
	"regexp"
	"strings"
)

// Structural checks run against the raw text after a successful parse.
// Each check contributes at most one error; the fix-loop does not need a
// per-occurrence list, only the defect class and a remediation hint.

type structuralCheck struct {
	name string
	run  func(code string) (Error, bool)
}

var structuralChecks = []structuralCheck{
	{name: CheckNavigation, run: checkNavigationHref},
	{name: CheckButtonClosedByAnchor, run: checkButtonClosedByAnchor},
	{name: CheckAnchorClosedByButton, run: checkAnchorClosedByButton},
	{name: CheckDuplicateClass, run: checkDuplicateClass},
}

// hrefStubPattern matches an href whose value is "#" alone or "#" plus a
// fragment. Those anchors reload the preview sandbox instead of navigating.
var hrefStubPattern = regexp.MustCompile(`href\s*=\s*["']#[^"']*["']`)

// duplicateClassPattern matches two adjacent class-equivalent attributes
// (class or className, string or expression value) on one element.
var duplicateClassPattern = regexp.MustCompile(
	`(?:class|className)\s*=\s*(?:"[^"]*"|'[^']*'|\{[^}]*\})\s+(?:class|className)\s*=`)

// openButtonPattern and openAnchorPattern locate opening tags. The anchor
// pattern requires a delimiter after "a" so <article> and friends do not
// match.
var (
	openButtonPattern = regexp.MustCompile(`<button[\s>/]`)
	openAnchorPattern = regexp.MustCompile(`<a[\s>/]`)
)

func checkNavigationHref(code string) (Error, bool) {
	if !hrefStubPattern.MatchString(code) {
		return Error{}, false
	}
	return Error{
		Type:    TypeInvalidHref,
		Message: `An anchor uses href="#", which reloads the sandbox instead of navigating`,
		Fix:     `Replace href="#" with a real destination, or use a <button> with an onClick handler for actions`,
	}, true
}

// mismatchedClose reports whether any opening tag located by open is closed
// by wrongClose before its own closing tag. "Nearest following closing tag"
// is literal: the first of the two closers to appear after the opening tag
// decides.
func mismatchedClose(code string, open *regexp.Regexp, rightClose, wrongClose string) bool {
	for _, loc := range open.FindAllStringIndex(code, -1) {
		// Skip self-closing tags; they have no closing tag to mismatch.
		gt := strings.Index(code[loc[0]:], ">")
		if gt < 0 {
			continue
		}
		gt += loc[0]
		if gt > 0 && code[gt-1] == '/' {
			continue
		}
		rest := code[gt+1:]
		wrongIdx := strings.Index(rest, wrongClose)
		if wrongIdx < 0 {
			continue
		}
		rightIdx := strings.Index(rest, rightClose)
		if rightIdx < 0 || wrongIdx < rightIdx {
			return true
		}
	}
	return false
}

func checkButtonClosedByAnchor(code string) (Error, bool) {
	if !mismatchedClose(code, openButtonPattern, "</button>", "</a>") {
		return Error{}, false
	}
	return Error{
		Type:    TypeTagMismatch,
		Message: "A <button> element is closed with </a>",
		Fix:     "Close the <button> with </button>, or change the opening tag to <a> if it should be a link",
	}, true
}

func checkAnchorClosedByButton(code string) (Error, bool) {
	if !mismatchedClose(code, openAnchorPattern, "</a>", "</button>") {
		return Error{}, false
	}
	return Error{
		Type:    TypeTagMismatch,
		Message: "An <a> element is closed with </button>",
		Fix:     "Close the <a> with </a>, or change the opening tag to <button> if it should be a button",
	}, true
}

func checkDuplicateClass(code string) (Error, bool) {
	if !duplicateClassPattern.MatchString(code) {
		return Error{}, false
	}
	return Error{
		Type:    TypeDuplicateAttribute,
		Message: "An element declares the class attribute twice",
		Fix:     "Merge the values into a single class attribute on that element",
	}, true
}
