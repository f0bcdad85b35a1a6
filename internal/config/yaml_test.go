package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readYaml(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestSetYamlConfigNestedKeyPreservesOthers(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("# top comment\njson: false\nhooks:\n  parallelism: 1\n"), 0o600))

	require.NoError(t, SetYamlConfig(path, "hooks.timeout", "60s"))

	got := readYaml(t, path)
	assert.Equal(t, false, got["json"])
	hooks := got["hooks"].(map[string]interface{})
	assert.Equal(t, 1, hooks["parallelism"])
	assert.Equal(t, "60s", hooks["timeout"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# top comment")
}

func TestSetYamlConfigReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: sqlite\n"), 0o600))

	require.NoError(t, SetYamlConfig(path, "storage.backend", "dolt"))
	got := readYaml(t, path)
	assert.Equal(t, "dolt", got["storage"].(map[string]interface{})["backend"])
}

func TestSetYamlConfigCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	require.NoError(t, SetYamlConfig(path, "ai.enabled", "TRUE"))
	require.NoError(t, SetYamlConfig(path, "hooks.parallelism", "4"))

	got := readYaml(t, path)
	assert.Equal(t, true, got["ai"].(map[string]interface{})["enabled"])
	assert.Equal(t, 4, got["hooks"].(map[string]interface{})["parallelism"])
}

func TestSetYamlConfigReplacesScalarParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("ai: off\n"), 0o600))

	require.NoError(t, SetYamlConfig(path, "ai.model", "claude-sonnet-4-5"))
	got := readYaml(t, path)
	assert.Equal(t, "claude-sonnet-4-5", got["ai"].(map[string]interface{})["model"])
}

func TestSetYamlConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.Error(t, SetYamlConfig(path, "", "x"))

	require.NoError(t, os.WriteFile(path, []byte("a: [broken\n"), 0o600))
	err := SetYamlConfig(path, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestProjectConfigPath(t *testing.T) {
	root := isolate(t)
	_, err := ProjectConfigPath()
	require.ErrorIs(t, err, ErrNoProjectConfig)

	require.NoError(t, os.MkdirAll(filepath.Join(root, DirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DirName, FileName), []byte(StarterConfig), 0o600))
	path, err := ProjectConfigPath()
	require.NoError(t, err)
	assert.Equal(t, FileName, filepath.Base(path))
}

func TestStarterConfigParses(t *testing.T) {
	out := map[string]interface{}{}
	require.NoError(t, yaml.Unmarshal([]byte(StarterConfig), &out))
	assert.Equal(t, "sqlite", out["storage"].(map[string]interface{})["backend"])
}

func TestScalarNode(t *testing.T) {
	tests := []struct {
		in, tag, value string
	}{
		{"true", "!!bool", "true"},
		{"False", "!!bool", "false"},
		{"42", "!!int", "42"},
		{"-3", "!!int", "-3"},
		{"1.5", "!!float", "1.5"},
		{"1.2.3", "!!str", "1.2.3"},
		{"300s", "!!str", "300s"},
		{"hello: world", "!!str", "hello: world"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := scalarNode(tt.in)
			assert.Equal(t, tt.tag, n.Tag)
			assert.Equal(t, tt.value, n.Value)
		})
	}
}
