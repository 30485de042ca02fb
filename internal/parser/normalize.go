package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// escapeReplacer undoes the JSON escaping the provider leaves in its markup.
var escapeReplacer = strings.NewReplacer(
	`&quot;&quot;`, `&quot;`,
	`\"`, `"`,
	`\/`, `/`,
	`\\`, `\`,
	`\u003c`, `<`,
	`\u003e`, `>`,
	`\u0026`, `&`,
)

// Normalize decodes HTML entities and strips provider escaping artifacts.
// It runs to a fixed point, so Normalize(Normalize(s)) == Normalize(s).
// Every changing pass removes a '&' or '\' or shortens the string, so the
// loop terminates.
func Normalize(s string) string {
	for {
		next := html.UnescapeString(escapeReplacer.Replace(s))
		if next == s {
			return s
		}
		s = next
	}
}

var (
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// visibleText reduces a markup fragment to trimmed single-spaced text.
func visibleText(markup string) string {
	text := Normalize(tagPattern.ReplaceAllString(markup, " "))
	return collapseSpace(text)
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
