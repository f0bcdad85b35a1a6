// Package ui renders chisel's human-readable terminal output.
// Colors adapt to light and dark terminals and vanish when color is off.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yidong72/chisel/internal/types"
)

// Ayu-derived palette with light and dark variants.
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	IDStyle       = lipgloss.NewStyle().Foreground(ColorAccent)
	CriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorFail)
)

// Result icons
const (
	IconPass = "✓"
	IconFail = "✗"
	IconWarn = "⚠"
)

// Tree drawing
const (
	TreeBranch = "├── "
	TreeLast   = "└── "
	TreePipe   = "│   "
	TreeSpace  = "    "
)

// SeparatorLight is printed between sections.
const SeparatorLight = "──────────────────────────────────────────"

var priorityNames = map[int]string{
	0: "P0 (critical)",
	1: "P1 (high)",
	2: "P2 (medium)",
	3: "P3 (low)",
	4: "P4 (backlog)",
}

// FormatPriority renders a priority as "P2 (medium)".
func FormatPriority(p int) string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("P%d", p)
}

var statusIcons = map[types.Status]string{
	types.StatusOpen:       "[ ]",
	types.StatusInProgress: "[>]",
	types.StatusBlocked:    "[!]",
	types.StatusReview:     "[?]",
	types.StatusDone:       "[x]",
	types.StatusCancelled:  "[-]",
}

// StatusIcon renders a status as a checkbox-style marker.
func StatusIcon(s types.Status) string {
	if icon, ok := statusIcons[s]; ok {
		return icon
	}
	return "[" + string(s) + "]"
}

// RenderStatus colors the status icon by state.
func RenderStatus(s types.Status) string {
	icon := StatusIcon(s)
	switch s {
	case types.StatusDone:
		return PassStyle.Render(icon)
	case types.StatusInProgress, types.StatusReview:
		return AccentStyle.Render(icon)
	case types.StatusBlocked:
		return FailStyle.Render(icon)
	case types.StatusCancelled:
		return MutedStyle.Render(icon)
	}
	return icon
}

// RenderPriority highlights P0 and P1.
func RenderPriority(p int) string {
	label := fmt.Sprintf("P%d", p)
	switch p {
	case 0:
		return CriticalStyle.Render(label)
	case 1:
		return WarnStyle.Render(label)
	}
	return label
}

// RenderID renders a task id.
func RenderID(id string) string {
	return IDStyle.Render(id)
}

// RenderPass renders text in green.
func RenderPass(s string) string {
	return PassStyle.Render(s)
}

// RenderFail renders text in red.
func RenderFail(s string) string {
	return FailStyle.Render(s)
}

// RenderWarn renders text in yellow.
func RenderWarn(s string) string {
	return WarnStyle.Render(s)
}

// RenderMuted renders text in gray.
func RenderMuted(s string) string {
	return MutedStyle.Render(s)
}

// RenderHeader renders an uppercase section header.
func RenderHeader(s string) string {
	return HeaderStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders a muted horizontal rule.
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderResultIcon returns a colored pass/fail mark.
func RenderResultIcon(ok bool) string {
	if ok {
		return PassStyle.Render(IconPass)
	}
	return FailStyle.Render(IconFail)
}
