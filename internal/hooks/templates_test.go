package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesBuiltinOnly(t *testing.T) {
	templates, err := Templates(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "pytest tests/ -q", templates["pytest"].Command)
	assert.Equal(t, "go test ./...", templates["go-test"].Command)
	assert.Equal(t, "go-test", templates["go-test"].Name)
	assert.Len(t, templates, len(BuiltinTemplates))
}

func TestTemplatesUserOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
[templates.go-test]
command = "go test -race ./..."

[templates.integration]
command = "make integration"
description = "slow tests"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplatesFile), []byte(content), 0o600))

	templates, err := Templates(dir)
	require.NoError(t, err)
	assert.Equal(t, "go test -race ./...", templates["go-test"].Command)
	assert.Equal(t, "make integration", templates["integration"].Command)
	assert.Equal(t, "slow tests", templates["integration"].Description)
	assert.Equal(t, "pytest tests/ -q", templates["pytest"].Command)

	sorted := SortedTemplates(templates)
	for i := 1; i < len(sorted); i++ {
		assert.Less(t, sorted[i-1].Name, sorted[i].Name)
	}
}

func TestTemplatesRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplatesFile), []byte("[templates.x\n"), 0o600))
	_, err := Templates(dir)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, TemplatesFile), []byte("[templates.empty]\ndescription = \"no command\"\n"), 0o600))
	_, err = Templates(dir)
	require.Error(t, err)
}

func TestResolveCommand(t *testing.T) {
	templates, err := Templates("")
	require.NoError(t, err)

	cmd, ok := ResolveCommand(templates, "ruff")
	assert.True(t, ok)
	assert.Equal(t, "ruff check .", cmd)

	cmd, ok = ResolveCommand(templates, "make check")
	assert.False(t, ok)
	assert.Equal(t, "make check", cmd)
}
