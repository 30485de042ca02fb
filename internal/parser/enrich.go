package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"newsletter_ingest/internal/domain"
)

// Image is the primary picture of an item and its attribution.
type Image struct {
	URL     string
	Caption string
}

const imageContainers = "div, figure, section, table, td, p"

func fragment(markup string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	return doc
}

// extractImage prefers a structured image block (with its source line),
// then any <img>, then the issue thumbnail.
func extractImage(doc *goquery.Document, thumbnail string) Image {
	var img Image
	if doc != nil {
		doc.Find(imageContainers).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !hasClassToken(s, "image") {
				return true
			}
			src := strings.TrimSpace(s.Find("img").First().AttrOr("src", ""))
			if src == "" {
				return true
			}
			img.URL = src
			s.Find("*").EachWithBreak(func(_ int, el *goquery.Selection) bool {
				if hasClassToken(el, "source") {
					img.Caption = collapseSpace(el.Text())
					return false
				}
				return true
			})
			return false
		})

		if img.URL == "" {
			img.URL = strings.TrimSpace(doc.Find("img").First().AttrOr("src", ""))
		}
	}

	if img.URL == "" {
		img.URL = thumbnail
	}
	img.URL = Normalize(img.URL)
	img.Caption = Normalize(img.Caption)
	return img
}

// hasClassToken reports whether any class token of s contains token.
func hasClassToken(s *goquery.Selection, token string) bool {
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(strings.ToLower(class)) {
		if strings.Contains(c, token) {
			return true
		}
	}
	return false
}

// extractLinks keeps absolute http(s) anchors pointing away from the
// newsletter itself and from messaging deep links.
func (p *Parser) extractLinks(doc *goquery.Document) domain.Links {
	links := domain.Links{}
	if doc == nil {
		return links
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := Normalize(strings.TrimSpace(s.AttrOr("href", "")))
		lower := strings.ToLower(href)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return
		}
		u, err := url.Parse(href)
		if err != nil || u.Hostname() == "" {
			return
		}
		if p.excludedHost(u.Hostname()) {
			return
		}
		links = append(links, domain.Link{URL: href, Text: collapseSpace(s.Text())})
	})
	return links
}

func (p *Parser) excludedHost(host string) bool {
	host = strings.ToLower(host)
	for _, list := range [][]string{p.opts.OwnDomains, p.opts.MessagingDomains} {
		for _, d := range list {
			d = strings.ToLower(d)
			if host == d || strings.HasSuffix(host, "."+d) {
				return true
			}
		}
	}
	return false
}

// summarize strips markup and truncates to limit runes, adding an ellipsis
// only when something was cut.
func summarize(doc *goquery.Document, limit int) string {
	if doc == nil {
		return ""
	}
	text := collapseSpace(blockText(doc.Find("body")))

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}

// blockElements end a run of text; inline elements do not.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// blockText is Selection.Text with a space around every block element, so
// adjacent paragraphs and list items do not run together.
func blockText(sel *goquery.Selection) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte(' ')
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}
	return sb.String()
}
