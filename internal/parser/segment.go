package parser

// Segment splits a normalized body on content-break rules, keeping document
// order. A body without breaks comes back as a single section.
func (p *Parser) Segment(body string) []string {
	sc := p.scanner(body)

	var sections []string
	from := 0
	for {
		m, ok := sc.FindNext(MarkerBreak, from)
		if !ok {
			break
		}
		sections = append(sections, body[from:m.Start])
		from = m.End
	}
	return append(sections, body[from:])
}
