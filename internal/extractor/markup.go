package extractor

import (
	"html"
	"regexp"
	"strings"
)

var (
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	lineBreakRe   = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|div|tr|li|h[1-6]|table)\s*>`)
	tagRe         = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9\-]*(?:\s[^>]*)?/?>|<![^>]*>`)
	hspaceRe      = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLinesRe  = regexp.MustCompile(`\n(?:[ ]*\n)+`)
)

// StripTags removes markup, decodes entities and collapses whitespace. Line
// structure is kept so "key: value" lines survive. Bracketed addresses such as
// <jane@example.com> are not tags and are left in place.
func StripTags(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = commentRe.ReplaceAllString(s, "")
	s = scriptBlockRe.ReplaceAllString(s, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = hspaceRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
