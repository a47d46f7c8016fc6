package tmpl

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// text consumes literal text up to the next construct another converter may
// recognize. It declines only when the cursor is at an opening delimiter or
// a closing tag, which belong to an enclosing section or element.
func (p *parser) text() (Fragment, bool, error) {
	start := p.pos

	for !p.eof() && !p.atDelimiter() {
		if p.pos > start && p.textBoundary() {
			break
		}

		if p.pos == start && p.closingBoundary() {
			return nil, false, nil
		}

		p.advance()
	}

	if p.pos == start {
		return nil, false, nil
	}

	s := p.input[start:p.pos]

	switch p.mode {
	case modeRaw:
		return Fragment{text(s)}, true, nil

	case modeAttribute:
		return Fragment{text(html.UnescapeString(s))}, true, nil
	}

	s = html.UnescapeString(s)

	if !p.dialect.preserveSpace && p.verbatim == 0 {
		s = collapseSpace(s)
	}

	return Fragment{text(s)}, true, nil
}

// textBoundary reports whether a converter other than text may match at the
// cursor.
func (p *parser) textBoundary() bool {
	switch p.mode {
	case modeMarkup:
		return p.peek() == '<'
	case modeRaw:
		return p.closingBoundary()
	}

	return false
}

// closingBoundary reports whether the cursor is at a closing tag that text
// must not consume.
func (p *parser) closingBoundary() bool {
	switch p.mode {
	case modeMarkup:
		r := p.rest()

		return len(r) > 2 && r[0] == '<' && r[1] == '/' && isTagStart(rune(r[2]))

	case modeRaw:
		return p.closeTagLen(p.raw) > 0
	}

	return false
}

// collapseSpace replaces each run of whitespace with a single space.
func collapseSpace(s string) string {
	var (
		sb    strings.Builder
		space bool
	)

	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				sb.WriteByte(' ')
			}

			space = true

			continue
		}

		space = false

		sb.WriteRune(r)
	}

	return sb.String()
}
