package parser

// Options tunes the structural conventions and filters the parser applies.
// Zero fields fall back to DefaultOptions.
type Options struct {
	// ContentBreakClass is the class token on the <hr> separating sections.
	ContentBreakClass string
	// Denylist holds category substrings (case-insensitive) of non-news sections.
	Denylist []string

	FallbackPlaceholders   []string
	FallbackWrapperPhrases []string
	MinFallbackBody        int
	FallbackCategoryName   string
	FallbackCategoryID     string

	SummaryLength int

	// OwnDomains and MessagingDomains are excluded from outbound links,
	// subdomains included.
	OwnDomains       []string
	MessagingDomains []string
}

func DefaultOptions() Options {
	return Options{
		ContentBreakClass: "content_break",
		Denylist: []string{
			"rodapé",
			"quem somos",
			"dicas de fim de semana",
			"opinião do leitor",
			"sorteio",
		},
		FallbackPlaceholders:   []string{"título", "title"},
		FallbackWrapperPhrases: []string{"edição de hoje", "giro por"},
		MinFallbackBody:        50,
		FallbackCategoryName:   "GERAL",
		FallbackCategoryID:     "geral",
		SummaryLength:          200,
		OwnDomains:             []string{"beehiiv.com"},
		MessagingDomains:       []string{"wa.me", "whatsapp.com", "t.me"},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ContentBreakClass == "" {
		o.ContentBreakClass = d.ContentBreakClass
	}
	if o.Denylist == nil {
		o.Denylist = d.Denylist
	}
	if o.FallbackPlaceholders == nil {
		o.FallbackPlaceholders = d.FallbackPlaceholders
	}
	if o.FallbackWrapperPhrases == nil {
		o.FallbackWrapperPhrases = d.FallbackWrapperPhrases
	}
	if o.MinFallbackBody == 0 {
		o.MinFallbackBody = d.MinFallbackBody
	}
	if o.FallbackCategoryName == "" {
		o.FallbackCategoryName = d.FallbackCategoryName
	}
	if o.FallbackCategoryID == "" {
		o.FallbackCategoryID = d.FallbackCategoryID
	}
	if o.SummaryLength == 0 {
		o.SummaryLength = d.SummaryLength
	}
	if o.OwnDomains == nil {
		o.OwnDomains = d.OwnDomains
	}
	if o.MessagingDomains == nil {
		o.MessagingDomains = d.MessagingDomains
	}
	return o
}
