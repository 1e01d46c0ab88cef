// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm implements the transport gateway between the benchmark engine
// and OpenAI-compatible model providers.
//
// The gateway speaks two wire protocols (chat completions and the newer
// responses shape), normalizes both into a single response type, retries
// transient failures with exponential backoff, and enforces a per-call
// timeout derived from the model's class.
package llm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model identifies a benchmarkable model.
//
// Name is the human-facing label used in reports; ID is the provider
// identifier sent on the wire. Models are immutable once loaded.
type Model struct {
	Name string `yaml:"name" json:"name"`
	ID   string `yaml:"id" json:"id"`
}

// registryFile is the on-disk shape of a model registry override.
type registryFile struct {
	Models []Model `yaml:"models"`
}

// DefaultRegistry returns the built-in model list.
//
// Order here is significant: the coordinator iterates models in registry
// order, and reports are expected to be reproducible run to run.
func DefaultRegistry() []Model {
	return []Model{
		{Name: "GPT-4o", ID: "gpt-4o"},
		{Name: "GPT-4o Mini", ID: "gpt-4o-mini"},
		{Name: "GPT-4.1", ID: "gpt-4.1"},
		{Name: "o3 Mini", ID: "o3-mini"},
		{Name: "GPT-5", ID: "gpt-5"},
		{Name: "GPT-5 Codex", ID: "gpt-5-codex"},
	}
}

// LoadRegistry reads a model registry from a yaml file.
//
// The file holds a top-level "models" list of {name, id} entries. An empty
// list is rejected: a benchmark with no models has nothing to do.
func LoadRegistry(path string) ([]Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the registry file: %w", err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse the registry file %s: %w", path, err)
	}

	if len(rf.Models) == 0 {
		return nil, fmt.Errorf("registry file %s contains no models", path)
	}
	for i, m := range rf.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("registry entry %d is missing an id", i)
		}
		if m.Name == "" {
			rf.Models[i].Name = m.ID
		}
	}
	return rf.Models, nil
}
