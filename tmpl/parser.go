package tmpl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ardnew/stache/log"
)

// mode selects which constructs the converter chain recognizes.
type mode int

const (
	modeMarkup    mode = iota // elements, comments, mustaches and text
	modeAttribute             // mustaches and text; markup is literal
	modeRaw                   // script/style body; ends at the closing tag
)

// shared is the state common to a top-level parse and all its sub-parsers.
type shared struct {
	ctx         context.Context
	logger      log.Logger
	dialect     *dialect
	expressions map[string]*Expression
}

// parser is a cursor over template source.
type parser struct {
	*shared

	input string
	pos   int
	base  int // offset of input within the original source
	line  int
	col   int

	delims   delimiters
	mode     mode
	raw      string // closing tag name in modeRaw
	verbatim int    // depth of whitespace-preserving elements
}

// mark is a saved cursor state.
type mark struct {
	pos, line, col int
}

func newParser(s *shared, input string, at Position) *parser {
	if !at.IsValid() {
		at = Position{Line: 1, Column: 1}
	}

	return &parser{
		shared: s,
		input:  input,
		base:   at.Offset,
		line:   at.Line,
		col:    at.Column,
		delims: s.dialect.delimiters,
	}
}

// sub returns a parser over input located at pos that shares the receiver's
// dialect, delimiters and expression table.
func (p *parser) sub(input string, at Position, m mode) *parser {
	q := newParser(p.shared, input, at)
	q.delims = p.delims
	q.mode = m
	q.verbatim = p.verbatim

	return q
}

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(p.input[p.pos:])

	return r
}

func (p *parser) rest() string { return p.input[p.pos:] }

// leftover returns the unconsumed input.
func (p *parser) leftover() string { return p.rest() }

// matches reports whether the input at the cursor begins with s.
func (p *parser) matches(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}

// matchesFold is matches under Unicode case folding.
func (p *parser) matchesFold(s string) bool {
	r := p.rest()

	return len(r) >= len(s) && strings.EqualFold(r[:len(s)], s)
}

// consume advances past s if the input at the cursor begins with it.
func (p *parser) consume(s string) bool {
	if !p.matches(s) {
		return false
	}

	p.advanceN(len(s))

	return true
}

func (p *parser) consumeWhile(pred func(rune) bool) string {
	start := p.pos
	for !p.eof() && pred(p.peek()) {
		p.advance()
	}

	return p.input[start:p.pos]
}

func (p *parser) skipSpace() {
	p.consumeWhile(unicode.IsSpace)
}

func (p *parser) advance() {
	if p.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(p.input[p.pos:])

	p.pos += size
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
}

// advanceN advances n bytes.
func (p *parser) advanceN(n int) {
	end := min(p.pos+n, len(p.input))
	for p.pos < end {
		p.advance()
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) position() Position {
	return Position{
		Offset: p.base + p.pos,
		Line:   p.line,
		Column: p.col,
	}
}

func (p *parser) save() mark { return mark{p.pos, p.line, p.col} }

func (p *parser) restore(m mark) { p.pos, p.line, p.col = m.pos, m.line, m.col }

// errorAt returns an error of the given kind located at pos.
func (p *parser) errorAt(
	pos Position,
	kind *Error,
	format string,
	args ...any,
) *Error {
	return kind.WithPosition(pos).Wrap(fmt.Errorf(format, args...))
}

// atDelimiter reports whether a mustache may open at the cursor.
func (p *parser) atDelimiter() bool {
	return p.matches(p.dialect.tripleDelimiters.open) || p.matches(p.delims.open)
}

// trace logs at trace level with the parse context.
func (p *parser) trace(msg string, attrs ...slog.Attr) {
	p.logger.TraceContext(p.ctx, msg,
		append(attrs, slog.String("at", p.position().String()))...)
}

// advancePos returns the position reached by reading s from pos.
func advancePos(pos Position, s string) Position {
	for _, r := range s {
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}

	pos.Offset += len(s)

	return pos
}

// abbrev shortens s for use in error messages.
func abbrev(s string) string {
	const limit = 24

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit]) + "..."
	}

	return s
}
