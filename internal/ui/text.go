package ui

import (
	"strings"
	"unicode/utf8"
)

// TitleWidth is the column width titles are cut to in list views.
const TitleWidth = 50

// Truncate shortens s to at most maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// TruncateTitle cuts s to TitleWidth.
func TruncateTitle(s string) string {
	return Truncate(s, TitleWidth)
}

// ParseLabels splits a comma-separated list, trimming blanks and dropping
// empty and repeated entries.
func ParseLabels(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		label := strings.TrimSpace(part)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}

// Indent prefixes every non-empty line of s with prefix.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
