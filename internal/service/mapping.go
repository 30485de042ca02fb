package service

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"newsletter_ingest/internal/domain"
)

const maxSlugLength = 80

var (
	mdConverter     *converter.Converter
	mdConverterOnce sync.Once

	slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)
)

func markdownConverter() *converter.Converter {
	mdConverterOnce.Do(func() {
		mdConverter = converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		)
	})
	return mdConverter
}

func renderMarkdown(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	md, err := markdownConverter().ConvertString(html)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(md), nil
}

// Slugify folds accents and joins the remaining alphanumerics with hyphens.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	slug := slugSeparators.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// candidateArticle maps one extracted item to the shape the article store
// persists. Markdown rendering failures leave ContentMarkdown empty.
func candidateArticle(issue *domain.Issue, item domain.ExtractedItem) (*domain.Article, error) {
	article := &domain.Article{
		Source:       domain.SourceNewsletter,
		SourceItemID: domain.SourceItemID(issue.ID, item.Sequence),
		IssueID:      issue.ID,
		Sequence:     item.Sequence,
		Title:        item.Title,
		Slug:         Slugify(item.Title),
		Summary:      item.Summary,
		ContentHTML:  item.ContentHTML,
		CategoryName: item.Category,
		ImageCaption: item.ImageCaption,
		Links:        item.Links,
		SourceURL:    issue.WebURL,
		Status:       domain.StatusDraft,
	}

	if slug := Slugify(item.Category); slug != "" {
		article.CategorySlug = &slug
	}
	if item.ImageURL != "" {
		imageURL := item.ImageURL
		article.ImageURL = &imageURL
	}
	if article.Links == nil {
		article.Links = domain.Links{}
	}

	md, err := renderMarkdown(item.ContentHTML)
	if err != nil {
		return article, err
	}
	article.ContentMarkdown = md

	return article, nil
}

// categoriesOf returns the distinct categories of items in first-seen order.
func categoriesOf(items []domain.ExtractedItem) []domain.Category {
	seen := make(map[string]bool)
	var categories []domain.Category
	for _, item := range items {
		slug := Slugify(item.Category)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		categories = append(categories, domain.Category{Slug: slug, Name: item.Category})
	}
	return categories
}
