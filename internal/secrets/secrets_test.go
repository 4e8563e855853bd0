// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "semantic-scholar-api-key", "  sk_abc123  \n")
				writeFile(t, dir, "anthropic-api-key", "ak_xyz789")
				writeFile(t, dir, "openai-api-key", "ok_456\n")
				return dir
			},
			want: map[string]string{
				"semantic-scholar-api-key": "sk_abc123",
				"anthropic-api-key":        "ak_xyz789",
				"openai-api-key":           "ok_456",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files and dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, ".hidden-key", "secret")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "openai-api-key", "ok_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"openai-api-key": "ok_123",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	s := map[string]string{"anthropic-api-key": "from-file"}

	assert.Equal(t, "explicit", Lookup(s, "explicit", "anthropic-api-key", "IDEATION_TEST_KEY"))
	assert.Equal(t, "from-file", Lookup(s, "", "anthropic-api-key", "IDEATION_TEST_KEY"))

	t.Setenv("IDEATION_TEST_KEY", "from-env")
	assert.Equal(t, "from-env", Lookup(s, "", "missing-key", "IDEATION_TEST_KEY"))
	assert.Equal(t, "", Lookup(map[string]string{}, "", "missing-key", "IDEATION_TEST_UNSET"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
