package parser

import (
	"regexp"
)

// MarkerKind names one of the structural conventions the provider uses.
type MarkerKind int

const (
	// MarkerBreak is the horizontal rule separating sections.
	MarkerBreak MarkerKind = iota
	// MarkerCategory is an h6 carrying an id attribute.
	MarkerCategory
	// MarkerTitle is an h1, id optional.
	MarkerTitle
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerBreak:
		return "break"
	case MarkerCategory:
		return "category"
	case MarkerTitle:
		return "title"
	default:
		return "unknown"
	}
}

// Match is one marker occurrence. Start and End are byte offsets of the whole
// element in the scanned text; Inner is the element's inner markup.
type Match struct {
	Start int
	End   int
	ID    string
	Inner string
}

// Scanner finds structural markers in a body of markup.
type Scanner interface {
	FindNext(kind MarkerKind, from int) (Match, bool)
}

var (
	categoryPattern = regexp.MustCompile(`(?is)<h6\b([^>]*)>(.*?)</h6\s*>`)
	titlePattern    = regexp.MustCompile(`(?is)<h1\b([^>]*)>(.*?)</h1\s*>`)
	idAttrPattern   = regexp.MustCompile(`(?is)(?:^|\s)id\s*=\s*["']([^"']*)["']`)
)

func breakPattern(class string) *regexp.Regexp {
	return regexp.MustCompile(`(?is)<hr\b[^>]*\bclass\s*=\s*["'][^"']*\b` +
		regexp.QuoteMeta(class) + `\b[^"']*["'][^>]*>`)
}

// patternScanner is a Scanner over a single string using regular expressions.
type patternScanner struct {
	text     string
	patterns map[MarkerKind]*regexp.Regexp
}

func newPatternScanner(text string, breakRe *regexp.Regexp) *patternScanner {
	return &patternScanner{
		text: text,
		patterns: map[MarkerKind]*regexp.Regexp{
			MarkerBreak:    breakRe,
			MarkerCategory: categoryPattern,
			MarkerTitle:    titlePattern,
		},
	}
}

func (s *patternScanner) FindNext(kind MarkerKind, from int) (Match, bool) {
	re, ok := s.patterns[kind]
	if !ok || from < 0 || from > len(s.text) {
		return Match{}, false
	}

	for from <= len(s.text) {
		loc := re.FindStringSubmatchIndex(s.text[from:])
		if loc == nil {
			return Match{}, false
		}

		m := Match{Start: from + loc[0], End: from + loc[1]}
		if len(loc) >= 6 {
			m.ID = attrID(s.text[from+loc[2] : from+loc[3]])
			m.Inner = s.text[from+loc[4] : from+loc[5]]
		}

		// A category heading without an id is ordinary text.
		if kind == MarkerCategory && m.ID == "" {
			from = m.End
			continue
		}
		return m, true
	}
	return Match{}, false
}

func attrID(attrs string) string {
	sub := idAttrPattern.FindStringSubmatch(attrs)
	if sub == nil {
		return ""
	}
	return sub[1]
}
