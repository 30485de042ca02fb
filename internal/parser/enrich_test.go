package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"newsletter_ingest/internal/domain"
)

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantURL     string
		wantCaption string
	}{
		{
			name:        "structured container with source",
			body:        `<p><img src="https://x.com/inline.jpg"></p><figure class="image-block"><img src="https://x.com/main.jpg"><figcaption class="image__source">Foto: AP</figcaption></figure>`,
			wantURL:     "https://x.com/main.jpg",
			wantCaption: "Foto: AP",
		},
		{
			name:    "first img anywhere",
			body:    `<p>texto <img src="https://x.com/one.jpg"> <img src="https://x.com/two.jpg"></p>`,
			wantURL: "https://x.com/one.jpg",
		},
		{
			name:    "container without img is ignored",
			body:    `<div class="image"></div><img src="https://x.com/loose.jpg">`,
			wantURL: "https://x.com/loose.jpg",
		},
		{
			name:    "thumbnail fallback",
			body:    `<p>nada</p>`,
			wantURL: "https://x.com/thumb.jpg",
		},
		{
			name:    "entity in url",
			body:    `<img src="https://x.com/a.jpg?w=1&amp;h=2">`,
			wantURL: "https://x.com/a.jpg?w=1&h=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := extractImage(fragment(tt.body), "https://x.com/thumb.jpg")
			assert.Equal(t, tt.wantURL, img.URL)
			assert.Equal(t, tt.wantCaption, img.Caption)
		})
	}
}

func TestExtractLinks(t *testing.T) {
	p := New(DefaultOptions())
	body := `<a href="https://folha.uol.com.br/a">  Folha  </a>` +
		`<a href="/relativo">rel</a>` +
		`<a href="mailto:a@b.com">mail</a>` +
		`<a href="https://minha.beehiiv.com/p/1">própria</a>` +
		`<a href="https://api.whatsapp.com/send">zap</a>` +
		`<a href="https://t.me/canal">tg</a>` +
		`<a href="HTTP://Exemplo.com/B">Exemplo <b>forte</b></a>`

	links := p.extractLinks(fragment(body))

	assert.Equal(t, domain.Links{
		{URL: "https://folha.uol.com.br/a", Text: "Folha"},
		{URL: "HTTP://Exemplo.com/B", Text: "Exemplo forte"},
	}, links)
}

func TestExtractLinks_None(t *testing.T) {
	p := New(DefaultOptions())
	links := p.extractLinks(fragment("<p>sem links</p>"))
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestSummarize(t *testing.T) {
	short := fragment("<p>Texto <b>curto</b>.</p>")
	assert.Equal(t, "Texto curto.", summarize(short, 200))

	long := fragment("<p>" + strings.Repeat("á", 250) + "</p><script>var x</script>")
	got := summarize(long, 200)
	assert.Equal(t, strings.Repeat("á", 200)+"...", got)

	exact := fragment("<p>" + strings.Repeat("b", 200) + "</p>")
	assert.Equal(t, strings.Repeat("b", 200), summarize(exact, 200))
}

func TestSummarize_KeepsBlockBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{
			"paragraphs",
			"<p>Primeiro parágrafo termina aqui.</p><p>Segundo começa.</p>",
			"Primeiro parágrafo termina aqui. Segundo começa.",
		},
		{"list items", "<ul><li>Item um</li><li>Item dois</li></ul>", "Item um Item dois"},
		{"line break", "linha um<br>linha dois", "linha um linha dois"},
		{"inline stays joined", "<p>pala<b>vra</b> <i>inteira</i></p>", "palavra inteira"},
		{"style dropped", "<style>p{}</style><div>a</div><div>b</div>", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarize(fragment(tt.markup), 200))
		})
	}
}
