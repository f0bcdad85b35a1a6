package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// maxReadableWidth caps word wrap on very wide terminals.
const maxReadableWidth = 100

// RenderMarkdown renders a task description with glamour. Plain text is
// returned when color is off or rendering fails.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() || strings.TrimSpace(markdown) == "" {
		return markdown
	}
	width := TerminalWidth(80)
	if width > maxReadableWidth {
		width = maxReadableWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
