// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bench

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/modelbench/services/validate"
)

// systemPrompt frames every generation call in a pair.
const systemPrompt = `You are an expert React engineer. ` +
	`Write a single self-contained component file. ` +
	`Return only code: no explanations, no markdown fences.`

// probePrompt is the minimal pre-flight availability request.
const probePrompt = "Reply with the single word OK."

// tagMismatchExample is a worked correction for the tag-mismatch class,
// included in every fix prompt because it is the defect models most often
// fail to repair from a description alone.
const tagMismatchExample = `Example of a tag mismatch and its correction:

Incorrect:
  <button onClick={handleSave}>Save</a>

Correct:
  <button onClick={handleSave}>Save</button>`

// fixPrompt builds the corrective follow-up for an invalid iteration.
//
// The previous code is embedded verbatim so the model edits rather than
// regenerates, followed by one bullet per detected error with its
// remediation hint.
func fixPrompt(code string, errs []validate.Error) string {
	var sb strings.Builder

	sb.WriteString("The following code has problems that must be fixed:\n\n")
	sb.WriteString(code)
	sb.WriteString("\n\nProblems found:\n")
	for _, e := range errs {
		fmt.Fprintf(&sb, "- %s. Fix: %s\n", e.Message, e.Fix)
	}
	sb.WriteString("\n")
	sb.WriteString(tagMismatchExample)
	sb.WriteString("\n\nReturn only the complete corrected code, nothing else.")

	return sb.String()
}
