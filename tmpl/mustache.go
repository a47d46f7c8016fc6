package tmpl

import (
	"log/slog"
	"strings"
	"unicode"
)

// tag is a scanned mustache whose cursor position has not been committed.
type tag struct {
	pos    Position // opening delimiter
	inner  Position // first byte after the opening delimiter
	triple bool
	raw    string // between the delimiters, untrimmed
	src    string // including the delimiters
	end    mark   // cursor state after the closing delimiter
}

type tagKind int

const (
	tagInterpolator tagKind = iota
	tagTriple
	tagComment
	tagDelimiters
	tagPartial
	tagSection
	tagInverted
	tagElse
	tagClose
)

// sectionKeywords introduce block sections. "unless" inverts its section.
var sectionKeywords = []string{"if", "unless", "each", "with"}

// scanTag scans the mustache at the cursor without consuming it. Triple
// delimiters are tried before plain delimiters.
func (p *parser) scanTag() (*tag, bool, error) {
	var d delimiters

	t := &tag{pos: p.position()}

	switch {
	case p.matches(p.dialect.tripleDelimiters.open):
		d, t.triple = p.dialect.tripleDelimiters, true
	case p.matches(p.delims.open):
		d = p.delims
	default:
		return nil, false, nil
	}

	start := p.save()
	defer p.restore(start)

	p.advanceN(len(d.open))
	t.inner = p.position()

	body := p.rest()
	lead := strings.TrimLeftFunc(body, unicode.IsSpace)
	quoted := t.triple ||
		!strings.HasPrefix(lead, "!") && !strings.HasPrefix(lead, "=")

	i := closeIndex(body, d.close, quoted)
	if i < 0 {
		return nil, false, p.errorAt(t.pos, ErrUnterminated,
			"mustache %q has no closing %q", abbrev(d.open+body), d.close)
	}

	t.raw = body[:i]
	t.src = d.open + t.raw + d.close

	p.advanceN(i + len(d.close))
	t.end = p.save()

	return t, true, nil
}

// classify returns the kind of t, its operand with any sigil and surrounding
// space removed, and the position of the operand.
func (t *tag) classify() (tagKind, string, Position) {
	trimmed := strings.TrimLeftFunc(t.raw, unicode.IsSpace)
	at := advancePos(t.inner, t.raw[:len(t.raw)-len(trimmed)])
	c := strings.TrimRightFunc(trimmed, unicode.IsSpace)

	if t.triple {
		return tagTriple, c, at
	}

	if c == "else" {
		return tagElse, "", at
	}

	sigil := tagInterpolator

	switch {
	case strings.HasPrefix(c, "!"):
		sigil = tagComment
	case strings.HasPrefix(c, "="):
		sigil = tagDelimiters
	case strings.HasPrefix(c, ">"):
		sigil = tagPartial
	case strings.HasPrefix(c, "&"):
		sigil = tagTriple
	case strings.HasPrefix(c, "#"):
		sigil = tagSection
	case strings.HasPrefix(c, "^"):
		sigil = tagInverted
	case strings.HasPrefix(c, "/"):
		sigil = tagClose
	default:
		return tagInterpolator, c, at
	}

	operand := strings.TrimLeftFunc(c[1:], unicode.IsSpace)

	return sigil, operand, advancePos(at, c[:len(c)-len(operand)])
}

// mustache converts one mustache. Closing mustaches and {{else}} are left in
// place for the enclosing section to handle.
func (p *parser) mustache() (Fragment, bool, error) {
	t, ok, err := p.scanTag()
	if err != nil || !ok {
		return nil, false, err
	}

	kind, operand, at := t.classify()

	if kind == tagClose || kind == tagElse {
		return nil, false, nil
	}

	p.restore(t.end)

	switch kind {
	case tagComment:
		p.trace("mustache comment dropped")

		return Fragment{}, true, nil

	case tagDelimiters:
		err := p.changeDelimiters(t, operand)
		if err != nil {
			return nil, false, err
		}

		return Fragment{}, true, nil

	case tagPartial:
		if operand == "" {
			return nil, false, p.errorAt(t.pos, ErrInvalidExpression,
				"partial %s has no name", t.src)
		}

		return Fragment{{Type: TypePartial, Reference: operand}}, true, nil

	case tagSection, tagInverted:
		return p.section(t, operand, at, kind == tagInverted)

	case tagTriple:
		d := &Descriptor{Type: TypeTriple}
		if err := p.bind(d, operand, at); err != nil {
			return nil, false, err
		}

		return Fragment{d}, true, nil
	}

	d := &Descriptor{Type: TypeInterpolator}
	if err := p.bind(d, operand, at); err != nil {
		return nil, false, err
	}

	return Fragment{d}, true, nil
}

// changeDelimiters handles {{=open close=}}.
func (p *parser) changeDelimiters(t *tag, operand string) error {
	inner, ok := strings.CutSuffix(operand, "=")
	fields := strings.Fields(inner)

	if !ok || len(fields) != 2 {
		return p.errorAt(t.pos, ErrInvalidDelimiters,
			"expected {{=open close=}}, got %s", t.src)
	}

	if fields[0] == p.dialect.tripleDelimiters.open {
		return p.errorAt(t.pos, ErrInvalidDelimiters,
			"%q is the triple delimiter", fields[0])
	}

	p.delims = delimiters{fields[0], fields[1]}

	p.trace("delimiters changed",
		slog.String("open", fields[0]),
		slog.String("close", fields[1]))

	return nil
}

// section converts a section and its body, up to and including the matching
// closing mustache. An {{else}} splits the body into a second section with
// the opposite polarity.
func (p *parser) section(
	open *tag,
	operand string,
	at Position,
	inverted bool,
) (Fragment, bool, error) {
	keyword, expr, exprAt := sectionKeyword(operand, at)
	if keyword == "unless" {
		inverted = !inverted
	}

	expr, index := splitIndex(expr)

	d := &Descriptor{Type: TypeSection, Inverted: inverted, Index: index}
	if err := p.bind(d, expr, exprAt); err != nil {
		return nil, false, err
	}

	closer := keyword
	if closer == "" {
		closer = expr
	}

	closer = p.delims.open + "/" + closer + p.delims.close

	out := Fragment{d}
	cur := d

	for {
		body, err := p.fragment(nil)
		if err != nil {
			return nil, false, err
		}

		cur.Fragment = body

		if p.eof() {
			return nil, false, p.errorAt(open.pos, ErrUnterminated,
				"section %s has no closing %s", open.src, closer)
		}

		t, ok, err := p.scanTag()
		if err != nil {
			return nil, false, err
		}

		if !ok {
			return nil, false, p.errorAt(p.position(), ErrUnterminated,
				"section %s interrupted by %q before %s",
				open.src, abbrev(p.rest()), closer)
		}

		kind, name, _ := t.classify()

		switch kind {
		case tagElse:
			if cur != d {
				return nil, false, p.errorAt(t.pos, ErrMismatchedClose,
					"section %s has more than one %s", open.src, t.src)
			}

			p.restore(t.end)

			cur = &Descriptor{
				Type:       TypeSection,
				Reference:  d.Reference,
				Expression: d.Expression,
				Inverted:   !d.Inverted,
			}
			out = append(out, cur)

		case tagClose:
			if !closes(name, keyword, operand, expr) {
				return nil, false, p.errorAt(t.pos, ErrMismatchedClose,
					"%s does not close section %s", t.src, open.src)
			}

			p.restore(t.end)

			return out, true, nil

		default:
			return nil, false, p.errorAt(t.pos, ErrUnexpectedCharacter,
				"%q", abbrev(t.src))
		}
	}
}

// sectionKeyword splits a leading block keyword from a section operand.
func sectionKeyword(operand string, at Position) (string, string, Position) {
	for _, kw := range sectionKeywords {
		rest, ok := strings.CutPrefix(operand, kw)
		if !ok || rest == "" || !unicode.IsSpace(rune(rest[0])) {
			continue
		}

		expr := strings.TrimLeftFunc(rest, unicode.IsSpace)

		return kw, expr, advancePos(at, operand[:len(operand)-len(expr)])
	}

	return "", operand, at
}

// closes reports whether a closing mustache naming name closes a section
// opened with the given keyword, full operand, and expression.
func closes(name, keyword, operand, expr string) bool {
	name = squash(name)

	return name == "" ||
		name == keyword ||
		name == squash(operand) ||
		name == squash(expr)
}

func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

// splitIndex separates an index reference from a section expression, as in
// "items:i". A colon belonging to a ternary or nested in brackets is not an
// index separator.
func splitIndex(expr string) (string, string) {
	depth, colon, ternary := 0, -1, false

	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '"', '\'', '`':
			if j := stringEnd(expr, i); j > 0 {
				i = j
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '?':
			next := byte(0)
			if i+1 < len(expr) {
				next = expr[i+1]
			}

			switch {
			case next == '.' || next == '?':
				i++
			case depth == 0:
				ternary = true
			}
		case ':':
			if depth == 0 {
				colon = i
			}
		}
	}

	if colon < 0 || ternary {
		return expr, ""
	}

	index := strings.TrimSpace(expr[colon+1:])
	if !isIdentifier(index) {
		return expr, ""
	}

	return strings.TrimSpace(expr[:colon]), index
}

// closeIndex returns the index of the first occurrence of close in s, or -1.
// When quoted is set, occurrences inside string literals are skipped.
func closeIndex(s, close string, quoted bool) int {
	if !quoted {
		return strings.Index(s, close)
	}

	for i := 0; i < len(s); i++ {
		if strings.HasPrefix(s[i:], close) {
			return i
		}

		switch s[i] {
		case '"', '\'', '`':
			if j := stringEnd(s, i); j > 0 {
				i = j
			}
		}
	}

	return -1
}

// stringEnd returns the index of the quote terminating the string literal
// that begins at s[i], or -1 if it is unterminated.
func stringEnd(s string, i int) int {
	q := s[i]

	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}

	return -1
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}

	return true
}
