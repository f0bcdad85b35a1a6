package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yidong72/chisel/internal/types"
)

func TestFormatPriority(t *testing.T) {
	assert.Equal(t, "P0 (critical)", FormatPriority(0))
	assert.Equal(t, "P1 (high)", FormatPriority(1))
	assert.Equal(t, "P2 (medium)", FormatPriority(2))
	assert.Equal(t, "P3 (low)", FormatPriority(3))
	assert.Equal(t, "P4 (backlog)", FormatPriority(4))
	assert.Equal(t, "P7", FormatPriority(7))
}

func TestStatusIcon(t *testing.T) {
	tests := map[types.Status]string{
		types.StatusOpen:       "[ ]",
		types.StatusInProgress: "[>]",
		types.StatusBlocked:    "[!]",
		types.StatusReview:     "[?]",
		types.StatusDone:       "[x]",
		types.StatusCancelled:  "[-]",
		types.Status("odd"):    "[odd]",
	}
	for status, want := range tests {
		assert.Equal(t, want, StatusIcon(status), string(status))
	}
}

func TestTruncate(t *testing.T) {
	long := "This is a very long title that goes well past fifty characters"
	got := TruncateTitle(long)
	assert.Len(t, []rune(got), TitleWidth)
	assert.True(t, strings.HasSuffix(got, "..."))

	assert.Equal(t, "short", TruncateTitle("short"))
	assert.Equal(t, "Hello...", Truncate("Hello, World!", 8))
	assert.Equal(t, "...", Truncate("abcdef", 2))
	// Rune-safe: multibyte characters are not split.
	assert.Equal(t, "héé...", Truncate("héééééé", 6))
}

func TestParseLabels(t *testing.T) {
	assert.Equal(t, []string{"bug", "urgent", "frontend"}, ParseLabels("bug, urgent ,frontend"))
	assert.Equal(t, []string{"a"}, ParseLabels("a,,a, "))
	assert.Nil(t, ParseLabels(""))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n\n  b", Indent("a\n\nb", "  "))
}

func TestShouldUseColorHonorsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.False(t, ShouldUseColor())
}

func TestShouldUseColorForce(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	assert.True(t, ShouldUseColor())
}

func TestRenderMarkdownPlainWithoutColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, "# Title\n\nbody", RenderMarkdown("# Title\n\nbody"))
}

func TestRenderersKeepText(t *testing.T) {
	InitColor(true)
	assert.Equal(t, "[x]", RenderStatus(types.StatusDone))
	assert.Equal(t, "P0", RenderPriority(0))
	assert.Equal(t, "ch-1", RenderID("ch-1"))
	assert.Equal(t, "SECTION", RenderHeader("section"))
	assert.Equal(t, IconPass, RenderResultIcon(true))
	assert.Equal(t, IconFail, RenderResultIcon(false))
}
