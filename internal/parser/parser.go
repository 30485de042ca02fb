// Package parser splits a newsletter issue into independent news items.
//
// Parsing is pure: it performs no I/O and never fails. Malformed or missing
// markup degrades to an empty result.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"newsletter_ingest/internal/domain"
)

type Parser struct {
	opts    Options
	breakRe *regexp.Regexp
}

func New(opts Options) *Parser {
	opts = opts.withDefaults()
	return &Parser{
		opts:    opts,
		breakRe: breakPattern(opts.ContentBreakClass),
	}
}

func (p *Parser) scanner(text string) Scanner {
	return newPatternScanner(text, p.breakRe)
}

// Parse extracts every news item from issue. It is safe for concurrent use.
func (p *Parser) Parse(issue *domain.Issue) domain.ParseResult {
	result, _ := p.parse(issue)
	return result
}

// ParseWithMode is Parse that also reports which extraction stage was used.
func (p *Parser) ParseWithMode(issue *domain.Issue) (domain.ParseResult, Mode) {
	return p.parse(issue)
}

func (p *Parser) parse(issue *domain.Issue) (domain.ParseResult, Mode) {
	result := domain.ParseResult{
		Items: []domain.ExtractedItem{},
		Metadata: domain.IssueMetadata{
			Categories: []string{},
		},
	}
	if issue == nil {
		return result, ModeNone
	}

	result.Metadata.Title = Normalize(issue.Title)
	result.Metadata.SubjectLine = Normalize(issue.SubjectLine)
	result.Metadata.PreviewText = Normalize(issue.PreviewText)
	result.Metadata.ThumbnailURL = Normalize(issue.ThumbnailURL)
	result.Metadata.WebURL = Normalize(issue.WebURL)
	result.Metadata.Created = domain.FormatEpoch(issue.Created)
	result.Metadata.PublishDate = domain.FormatEpoch(issue.PublishDate)

	body := strings.TrimSpace(Normalize(issue.Body()))
	if body == "" {
		return result, ModeNone
	}

	extraction := p.Extract(body)
	seen := make(map[string]bool)
	for i, c := range extraction.Candidates {
		item := p.assemble(i+1, c, result.Metadata.ThumbnailURL)
		result.Items = append(result.Items, item)

		if !seen[item.Category] {
			seen[item.Category] = true
			result.Metadata.Categories = append(result.Metadata.Categories, item.Category)
		}
	}
	result.Metadata.TotalItems = len(result.Items)

	return result, extraction.Mode
}

func (p *Parser) assemble(seq int, c Candidate, thumbnail string) domain.ExtractedItem {
	doc := fragment(c.Body)
	img := extractImage(doc, thumbnail)
	links := p.extractLinks(doc)

	return domain.ExtractedItem{
		Sequence:     seq,
		Title:        c.Title,
		TitleID:      c.TitleID,
		Category:     c.Category,
		CategoryID:   c.CategoryID,
		ContentHTML:  Normalize(c.Body),
		Summary:      summarize(doc, p.opts.SummaryLength),
		ImageURL:     img.URL,
		ImageCaption: img.Caption,
		Links:        links,
		LinkCount:    len(links),
		StartID:      fmt.Sprintf("newsletter-%d", seq),
		EndID:        fmt.Sprintf("newsletter-fim-%d", seq),
	}
}
