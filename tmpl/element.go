package tmpl

import (
	"log/slog"
	"strings"
	"unicode"
)

// element converts an element, its attributes, and its content up to and
// including the end tag. Elements on the sanitize blacklist are consumed
// with their content and dropped.
func (p *parser) element() (Fragment, bool, error) {
	if !p.matches("<") {
		return nil, false, nil
	}

	start := p.save()
	pos := p.position()

	p.advance()

	doctype := p.matchesFold("!doctype")
	if doctype {
		p.advance()
	}

	if !isTagStart(p.peek()) {
		p.restore(start)

		return nil, false, nil
	}

	name := p.consumeWhile(isTagNameRune)
	if doctype {
		name = "!" + name
	}

	d := &Descriptor{Type: TypeElement, Element: name, Doctype: doctype}

	selfClosing, err := p.attributes(d, pos)
	if err != nil {
		return nil, false, err
	}

	info := lookupTag(name)

	switch {
	case doctype, selfClosing, info.void:

	case info.raw && !p.dialect.interpolates(name):
		err = p.rawContent(d, pos)

	case info.raw:
		err = p.scriptContent(d, pos)

	default:
		err = p.content(d, info, pos)
	}

	if err != nil {
		return nil, false, err
	}

	if p.dialect.sanitized(name) {
		p.trace("element sanitized", slog.String("element", name))

		return Fragment{}, true, nil
	}

	return Fragment{d}, true, nil
}

// attributes parses the attribute list up to the end of the start tag and
// reports whether the tag is self-closing.
func (p *parser) attributes(d *Descriptor, pos Position) (bool, error) {
	for {
		p.skipSpace()

		switch {
		case p.eof():
			return false, p.errorAt(pos, ErrUnterminated,
				"tag <%s> has no closing '>'", d.Element)
		case p.consume(">"):
			return false, nil
		case p.consume("/>"):
			return true, nil
		}

		if err := p.attribute(d); err != nil {
			return false, err
		}
	}
}

func isAttrNameRune(r rune) bool {
	return !unicode.IsSpace(r) && !strings.ContainsRune(`"'<>/=`, r)
}

// attribute parses one attribute and adds it to d.
func (p *parser) attribute(d *Descriptor) error {
	pos := p.position()

	name := p.consumeWhile(isAttrNameRune)
	if name == "" {
		return p.errorAt(pos, ErrInvalidTag,
			"unexpected %q in tag <%s>", p.peek(), d.Element)
	}

	after := p.save()

	p.skipSpace()

	if !p.consume("=") {
		p.restore(after)

		return p.addAttribute(d, name, "", pos, true)
	}

	p.skipSpace()

	raw, at, err := p.attributeValue(name)
	if err != nil {
		return err
	}

	return p.addAttribute(d, name, raw, at, false)
}

// attributeValue scans a quoted or unquoted attribute value, skipping over
// any mustaches it contains, and returns the raw value and its position.
func (p *parser) attributeValue(name string) (string, Position, error) {
	if q := p.peek(); q == '"' || q == '\'' {
		open := p.position()

		p.advance()
		at := p.position()

		raw, err := p.scanValue(func(r rune) bool { return r == q })
		if err != nil {
			return "", at, err
		}

		if p.eof() {
			return "", at, p.errorAt(open, ErrUnterminated,
				"value of attribute %s has no closing %c", name, q)
		}

		p.advance()

		return raw, at, nil
	}

	at := p.position()

	raw, err := p.scanValue(func(r rune) bool {
		return unicode.IsSpace(r) || r == '>'
	})
	if err != nil {
		return "", at, err
	}

	if raw == "" {
		return "", at, p.errorAt(at, ErrInvalidTag,
			"attribute %s has no value", name)
	}

	return raw, at, nil
}

func (p *parser) scanValue(stop func(rune) bool) (string, error) {
	start := p.pos

	for !p.eof() && !stop(p.peek()) {
		if p.atDelimiter() {
			t, ok, err := p.scanTag()
			if err != nil {
				return "", err
			}

			if ok {
				p.restore(t.end)

				continue
			}
		}

		p.advance()
	}

	return p.input[start:p.pos], nil
}

// addAttribute classifies an attribute as a proxy directive, a sanitized
// event handler, or a plain attribute.
func (p *parser) addAttribute(
	d *Descriptor,
	name, raw string,
	at Position,
	bare bool,
) error {
	lower := strings.ToLower(name)

	if p.dialect.sanitizeEvents && eventAttribute(name) {
		p.trace("attribute sanitized",
			slog.String("element", d.Element),
			slog.String("attribute", name))

		return nil
	}

	var slot **Proxy

	switch lower {
	case "intro-outro":
		slot = &d.IntroOutro
	case "intro":
		slot = &d.Intro
	case "outro":
		slot = &d.Outro
	case "decorator":
		slot = &d.Decorator
	}

	event, isEvent := strings.CutPrefix(lower, "on-")
	isEvent = isEvent && event != ""

	if slot == nil && !isEvent {
		if bare {
			d.Attributes = append(d.Attributes, Attribute{Name: name, Bare: true})

			return nil
		}

		v, err := p.subFragment(raw, at, modeAttribute)
		if err != nil {
			return err
		}

		d.Attributes = append(d.Attributes, Attribute{Name: name, Value: v})

		return nil
	}

	if bare || strings.TrimSpace(raw) == "" {
		return p.errorAt(at, ErrInvalidTag,
			"directive %s on <%s> has no value", name, d.Element)
	}

	px, err := p.proxy(raw, at)
	if err != nil {
		return err
	}

	if isEvent {
		d.Proxies = append(d.Proxies, EventProxy{Event: name[len("on-"):], Proxy: px})
	} else {
		*slot = px
	}

	return nil
}

// content parses element children up to the end tag. Elements whose end tag
// is optional may also end at a start tag that closes them, at a closing
// marker belonging to an ancestor, or at end of input.
func (p *parser) content(d *Descriptor, info tagInfo, pos Position) error {
	if info.verbatim {
		p.verbatim++
		defer func() { p.verbatim-- }()
	}

	children, err := p.fragment(func() bool { return p.impliedEnd(info) })
	if err != nil {
		return err
	}

	d.Fragment = children

	switch {
	case p.closeTag(d.Element):
		return nil
	case info.optional:
		return nil
	case p.impliedEnd(info):
		return nil
	case p.eof():
		return p.errorAt(pos, ErrUnterminated,
			"element <%s> has no closing </%s>", d.Element, d.Element)
	}

	if other, ok := p.peekClosingTag(); ok {
		return p.errorAt(p.position(), ErrMismatchedClose,
			"</%s> does not close <%s>", other, d.Element)
	}

	return p.errorAt(pos, ErrUnterminated,
		"element <%s> interrupted by %q before </%s>",
		d.Element, abbrev(p.rest()), d.Element)
}

// rawContent consumes the body of a script or style element verbatim.
func (p *parser) rawContent(d *Descriptor, pos Position) error {
	end := "</" + d.Element

	for {
		i := indexFold(p.rest(), end)
		if i < 0 {
			return p.errorAt(pos, ErrUnterminated,
				"element <%s> has no closing </%s>", d.Element, d.Element)
		}

		body := p.rest()[:i]

		p.advanceN(i)

		if p.closeTag(d.Element) {
			d.Fragment = d.Fragment.push(text(body))

			if d.Fragment == nil {
				d.Fragment = Fragment{}
			}

			return nil
		}

		d.Fragment = d.Fragment.push(text(body + p.rest()[:len(end)]))
		p.advanceN(len(end))
	}
}

// scriptContent parses the body of a script or style element that allows
// mustaches. Markup in the body is text.
func (p *parser) scriptContent(d *Descriptor, pos Position) error {
	mode, raw := p.mode, p.raw
	p.mode, p.raw = modeRaw, d.Element

	defer func() { p.mode, p.raw = mode, raw }()

	children, err := p.fragment(nil)
	if err != nil {
		return err
	}

	d.Fragment = children

	if p.closeTag(d.Element) {
		return nil
	}

	if p.eof() {
		return p.errorAt(pos, ErrUnterminated,
			"element <%s> has no closing </%s>", d.Element, d.Element)
	}

	return p.errorAt(p.position(), ErrUnterminated,
		"element <%s> interrupted by %q before </%s>",
		d.Element, abbrev(p.rest()), d.Element)
}

// closeTag consumes the end tag for name, ignoring case and any whitespace
// before '>'.
func (p *parser) closeTag(name string) bool {
	n := p.closeTagLen(name)
	if n == 0 {
		return false
	}

	p.advanceN(n)

	return true
}

// closeTagLen returns the length of the end tag for name at the cursor, or 0
// if there is none.
func (p *parser) closeTagLen(name string) int {
	if !p.matchesFold("</" + name) {
		return 0
	}

	r := p.rest()[len("</")+len(name):]
	trimmed := strings.TrimLeftFunc(r, unicode.IsSpace)

	if !strings.HasPrefix(trimmed, ">") {
		return 0
	}

	return len(p.rest()) - len(trimmed) + 1
}

// impliedEnd reports whether the cursor is at a start tag that implicitly
// ends an element described by info.
func (p *parser) impliedEnd(info tagInfo) bool {
	if len(info.closedBy) == 0 {
		return false
	}

	r := p.rest()
	if len(r) < 2 || r[0] != '<' || !isTagStart(rune(r[1])) {
		return false
	}

	return info.closedByTag(tagName(r[1:]))
}

// peekClosingTag returns the name of the end tag at the cursor.
func (p *parser) peekClosingTag() (string, bool) {
	r := p.rest()
	if len(r) < 3 || r[0] != '<' || r[1] != '/' || !isTagStart(rune(r[2])) {
		return "", false
	}

	return tagName(r[2:]), true
}

// tagName returns the element name at the start of s.
func tagName(s string) string {
	end := strings.IndexFunc(s, func(r rune) bool { return !isTagNameRune(r) })
	if end < 0 {
		return s
	}

	return s[:end]
}

// indexFold is strings.Index under ASCII case folding of substr.
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}

	return -1
}
