package util

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	anyTagRe    = regexp.MustCompile(`<[^>]*>`)
	looksHTMLRe = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*(?:\s[^>]*)?/?>`)
	linkOpenRe  = regexp.MustCompile(`(?i)<a\s[^>]*href\s*=\s*["']([^"']*)["'][^>]*>`)
	linkCloseRe = regexp.MustCompile(`(?i)</a\s*>`)
	lineBreakRe = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	blockRe     = regexp.MustCompile(`(?i)</?(?:p|div|h[1-6]|blockquote|pre|table|tr)(?:\s[^>]*)?\s*>`)
	itemRe      = regexp.MustCompile(`(?i)<li(?:\s[^>]*)?\s*>`)
	listTagRe   = regexp.MustCompile(`(?i)</?(?:ul|ol|li)(?:\s[^>]*)?\s*>`)
	hspaceRe    = regexp.MustCompile(`[^\S\n]+`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
)

// DescriptionText turns an event description into terminal text. Google
// sends HTML, Outlook sends a plain-text preview; both come out as trimmed
// lines with at most one blank line in a row. Links become OSC 8 hyperlinks
// whose text is cut to width (width <= 0 disables the cut).
func DescriptionText(s string, width int) string {
	s = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
	if strings.TrimSpace(s) == "" {
		return ""
	}

	if looksHTMLRe.MatchString(s) {
		s = lineBreakRe.ReplaceAllString(s, "\n")
		s = itemRe.ReplaceAllString(s, "\n• ")
		s = listTagRe.ReplaceAllString(s, "")
		s = blockRe.ReplaceAllString(s, "\n\n")
		s = hyperlinkAnchors(s, width)
		s = anyTagRe.ReplaceAllString(s, "")
		s = strings.ReplaceAll(html.UnescapeString(s), "\u00a0", " ")
	}

	s = hspaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "• ") {
			line = "  " + line
		}
		lines[i] = line
	}
	s = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

func hyperlinkAnchors(s string, width int) string {
	var b strings.Builder
	for {
		open := linkOpenRe.FindStringSubmatchIndex(s)
		if open == nil {
			b.WriteString(s)
			return b.String()
		}
		target := RealLinkTarget(html.UnescapeString(s[open[2]:open[3]]))
		rest := s[open[1]:]

		end := linkCloseRe.FindStringIndex(rest)
		if end == nil {
			// Unclosed anchor: drop the tag, keep the text.
			b.WriteString(s[:open[0]])
			s = rest
			continue
		}

		text := strings.TrimSpace(anyTagRe.ReplaceAllString(rest[:end[0]], ""))
		if text == "" {
			text = target
		}
		if width > 0 {
			text = TruncateText(text, width)
		}
		b.WriteString(s[:open[0]])
		b.WriteString(MakeHyperlink(target, text))
		s = rest[end[1]:]
	}
}

// RealLinkTarget unwraps the redirect wrappers Google Calendar and Outlook
// put around links in event bodies.
func RealLinkTarget(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch {
	case u.Host == "www.google.com" && u.Path == "/url":
		if q := u.Query().Get("q"); q != "" {
			return q
		}
	case strings.HasSuffix(u.Host, ".safelinks.protection.outlook.com"):
		if target := u.Query().Get("url"); target != "" {
			return target
		}
	}
	return raw
}
