// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_NotEmptyAndUnique(t *testing.T) {
	models := DefaultRegistry()
	require.NotEmpty(t, models)

	seen := map[string]bool{}
	for _, m := range models {
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.ID)
		assert.False(t, seen[m.ID], "duplicate model id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	content := `models:
  - name: GPT-4o
    id: gpt-4o
  - id: o3-mini
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	models, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, models, 2)

	assert.Equal(t, Model{Name: "GPT-4o", ID: "gpt-4o"}, models[0])
	// Missing name falls back to the id.
	assert.Equal(t, Model{Name: "o3-mini", ID: "o3-mini"}, models[1])
}

func TestLoadRegistry_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("empty model list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.yaml")
		require.NoError(t, os.WriteFile(path, []byte("models: []\n"), 0644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
	})

	t.Run("entry without id", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.yaml")
		require.NoError(t, os.WriteFile(path, []byte("models:\n  - name: Mystery\n"), 0644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "registry.yaml")
		require.NoError(t, os.WriteFile(path, []byte("models: [:::\n"), 0644))
		_, err := LoadRegistry(path)
		require.Error(t, err)
	})
}
