// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import "strings"

// StripFence removes a single surrounding markdown code fence from text.
//
// Models routinely wrap generated code in ```lang ... ``` despite being
// told not to. Exactly one leading fence (language tag optional) and one
// trailing fence are removed. Malformed fencing is left untouched; no
// recovery is attempted on text we cannot cleanly unwrap.
func StripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}

	// Drop the opening fence line, including any language tag.
	rest := trimmed[3:]
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		rest = rest[idx+1:]
	} else {
		// Opening fence with no newline after it, e.g. "```" alone or
		// "```jsx<eof>". Nothing sensible to unwrap.
		return text
	}

	rest = strings.TrimRight(rest, " \t\n")
	if !strings.HasSuffix(rest, "```") {
		return text
	}
	rest = strings.TrimSuffix(rest, "```")

	return strings.TrimRight(strings.TrimPrefix(rest, "\n"), " \t\n")
}
