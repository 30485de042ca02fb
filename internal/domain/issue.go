package domain

import "time"

// Issue is one newsletter send as delivered by the provider.
type Issue struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	SubjectLine  string       `json:"subject_line"`
	PreviewText  string       `json:"preview_text"`
	ThumbnailURL string       `json:"thumbnail_url"`
	WebURL       string       `json:"web_url"`
	Created      int64        `json:"created"`
	PublishDate  int64        `json:"publish_date"`
	Content      IssueContent `json:"content"`
}

type IssueContent struct {
	Free *FreeContent `json:"free,omitempty"`
	RSS  *string      `json:"rss,omitempty"`
}

type FreeContent struct {
	RSS *string `json:"rss,omitempty"`
}

// Body returns the raw markup, preferring the free-tier rendition.
func (i *Issue) Body() string {
	if i.Content.Free != nil && i.Content.Free.RSS != nil {
		return *i.Content.Free.RSS
	}
	if i.Content.RSS != nil {
		return *i.Content.RSS
	}
	return ""
}

// ExtractedItem is one news item cut out of an issue body.
type ExtractedItem struct {
	Sequence     int    `json:"numero"`
	Title        string `json:"titulo"`
	TitleID      string `json:"id_titulo"`
	Category     string `json:"categoria"`
	CategoryID   string `json:"id_categoria"`
	ContentHTML  string `json:"conteudo_html"`
	Summary      string `json:"resumo"`
	ImageURL     string `json:"imagem_url"`
	ImageCaption string `json:"imagem_fonte"`
	Links        Links  `json:"links"`
	LinkCount    int    `json:"total_links"`
	StartID      string `json:"id_inicio"`
	EndID        string `json:"id_fim"`
}

type IssueMetadata struct {
	Title        string   `json:"titulo"`
	SubjectLine  string   `json:"subject_line"`
	PreviewText  string   `json:"preview_text"`
	ThumbnailURL string   `json:"thumbnail_url"`
	WebURL       string   `json:"web_url"`
	Created      string   `json:"created"`
	PublishDate  string   `json:"publish_date"`
	TotalItems   int      `json:"total_noticias"`
	Categories   []string `json:"categorias_encontradas"`
}

type ParseResult struct {
	Items    []ExtractedItem `json:"noticias"`
	Metadata IssueMetadata   `json:"metadata"`
}

// FormatEpoch renders provider epoch seconds as ISO-8601. Zero means unknown.
func FormatEpoch(sec int64) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
