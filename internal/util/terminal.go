package util

import (
	"fmt"
	"strings"
)

// MakeHyperlink wraps displayText in an OSC 8 hyperlink to url. Terminals
// without OSC 8 support show displayText only.
func MakeHyperlink(url, displayText string) string {
	// BEL terminator, understood more widely than ST
	return fmt.Sprintf("\033]8;;%s\a%s\033]8;;\a", url, displayText)
}

// TruncateText truncates s to maxLen runes, appending "…" if truncated.
func TruncateText(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}

// MaskSecret keeps the first and last four characters of a token and hides
// the rest, for printing credentials in status output.
func MaskSecret(s string) string {
	if s == "" {
		return "(none)"
	}
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8) + s[len(s)-4:]
}
