package util

import (
	"strings"
	"unicode"
)

const (
	// MaxLineLength is the rune limit for a single summary line.
	MaxLineLength = 120
	Bullet        = "• "
	Ellipsis      = "…"
	EmptySection  = "(none)"
)

// Truncate shortens s to at most limit runes, ending in an ellipsis when cut.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	return strings.TrimRightFunc(string(r[:limit-1]), unicode.IsSpace) + Ellipsis
}

// Bulletize prefixes every non-empty line with a bullet.
func Bulletize(lines []string) string {
	var out []string
	for _, l := range lines {
		if l != "" {
			out = append(out, Bullet+l)
		}
	}
	return strings.Join(out, "\n")
}

// Section renders a titled block of truncated bullet lines, or "(none)".
func Section(title string, lines []string) string {
	truncated := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			truncated = append(truncated, Truncate(l, MaxLineLength))
		}
	}
	body := Bulletize(truncated)
	if body == "" {
		body = EmptySection
	}
	return title + "\n" + body
}
