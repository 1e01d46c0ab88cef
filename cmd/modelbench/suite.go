// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/modelbench/services/bench"
)

// suiteFile is the on-disk shape of a test-suite override.
type suiteFile struct {
	Tests []bench.TestCase `yaml:"tests"`
}

// defaultSuite returns the built-in prompts. Each one targets a defect
// class the validator detects: navigation stubs, interleaved interactive
// elements, and duplicated attributes under styling pressure.
func defaultSuite() []bench.TestCase {
	return []bench.TestCase{
		{
			Name: "navbar",
			Prompt: "Create a responsive navigation bar component in TSX with links to " +
				"Home, Products, About, and Contact pages. Use real route paths for " +
				"every link and highlight the active route.",
		},
		{
			Name: "product-card",
			Prompt: "Create a TSX product card component showing an image, title, price, " +
				"and an Add to Cart button. Include a secondary link to the product " +
				"detail page.",
		},
		{
			Name: "signup-form",
			Prompt: "Create a TSX signup form component with email and password fields, " +
				"inline validation messages, a submit button, and a link to the login " +
				"page. Style it with className attributes.",
		},
	}
}

// loadSuite reads a test suite from a yaml file.
func loadSuite(path string) ([]bench.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the test suite: %w", err)
	}

	var sf suiteFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse the test suite %s: %w", path, err)
	}

	if len(sf.Tests) == 0 {
		return nil, fmt.Errorf("test suite %s contains no tests", path)
	}
	for i, tc := range sf.Tests {
		if tc.Name == "" {
			return nil, fmt.Errorf("test %d is missing a name", i)
		}
		if tc.Prompt == "" {
			return nil, fmt.Errorf("test %q is missing a prompt", tc.Name)
		}
	}
	return sf.Tests, nil
}
