package parser

import (
	"strings"
	"unicode/utf8"
)

// Mode tells which extraction stage produced the candidates.
type Mode int

const (
	ModeNone Mode = iota
	ModePrimary
	ModeFallback
)

func (m Mode) String() string {
	switch m {
	case ModePrimary:
		return "primary"
	case ModeFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Candidate is an item cut from the body before enrichment.
type Candidate struct {
	Category   string
	CategoryID string
	Title      string
	TitleID    string
	Body       string
}

// Extraction is the outcome of the two-stage extraction. The fallback stage
// runs only when the primary stage yields nothing for the whole body.
type Extraction struct {
	Mode       Mode
	Candidates []Candidate
}

func (p *Parser) Extract(body string) Extraction {
	if c := p.extractPrimary(p.Segment(body)); len(c) > 0 {
		return Extraction{Mode: ModePrimary, Candidates: c}
	}
	if c := p.extractFallback(body); len(c) > 0 {
		return Extraction{Mode: ModeFallback, Candidates: c}
	}
	return Extraction{Mode: ModeNone}
}

// extractPrimary expects each section to hold a category heading followed by
// a title heading; the rest of the section is the item body.
func (p *Parser) extractPrimary(sections []string) []Candidate {
	var out []Candidate
	for _, section := range sections {
		sc := p.scanner(section)

		cat, ok := sc.FindNext(MarkerCategory, 0)
		if !ok {
			continue
		}
		category := visibleText(cat.Inner)
		if category == "" {
			category = cat.ID
		}
		if p.denied(category) {
			continue
		}

		title, ok := sc.FindNext(MarkerTitle, cat.End)
		if !ok {
			continue
		}
		titleText := visibleText(title.Inner)
		if titleText == "" {
			continue
		}

		out = append(out, Candidate{
			Category:   strings.ToUpper(category),
			CategoryID: cat.ID,
			Title:      titleText,
			TitleID:    title.ID,
			Body:       strings.TrimSpace(section[title.End:]),
		})
	}
	return out
}

// extractFallback ignores categories and slices the body between titles.
func (p *Parser) extractFallback(body string) []Candidate {
	sc := p.scanner(body)

	var out []Candidate
	from := 0
	for {
		title, ok := sc.FindNext(MarkerTitle, from)
		if !ok {
			break
		}
		from = title.End

		titleText := visibleText(title.Inner)
		if titleText == "" || p.isPlaceholder(titleText) || p.isWrapper(titleText) {
			continue
		}

		end := len(body)
		if next, ok := sc.FindNext(MarkerTitle, title.End); ok {
			end = next.Start
		}
		if br, ok := sc.FindNext(MarkerBreak, title.End); ok && br.Start < end {
			end = br.Start
		}

		content := strings.TrimSpace(body[title.End:end])
		if utf8.RuneCountInString(content) < p.opts.MinFallbackBody {
			continue
		}

		out = append(out, Candidate{
			Category:   p.opts.FallbackCategoryName,
			CategoryID: p.opts.FallbackCategoryID,
			Title:      titleText,
			TitleID:    title.ID,
			Body:       content,
		})
	}
	return out
}

func (p *Parser) denied(category string) bool {
	return containsAny(strings.ToLower(category), p.opts.Denylist)
}

func (p *Parser) isPlaceholder(title string) bool {
	for _, ph := range p.opts.FallbackPlaceholders {
		if strings.EqualFold(title, ph) {
			return true
		}
	}
	return false
}

func (p *Parser) isWrapper(title string) bool {
	return containsAny(strings.ToLower(title), p.opts.FallbackWrapperPhrases)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
