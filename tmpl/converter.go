package tmpl

// converter is one matcher strategy in the converter chain.
type converter int

const (
	convertMustache converter = iota
	convertComment
	convertElement
	convertText
)

// chain is the fixed priority order in which converters are tried at each
// position. Mustaches are recognized before they could be read as text, and
// comments before elements so that "<!--" is never taken for a tag.
var chain = [...]converter{
	convertMustache,
	convertComment,
	convertElement,
	convertText,
}

func (c converter) String() string {
	switch c {
	case convertMustache:
		return "mustache"
	case convertComment:
		return "comment"
	case convertElement:
		return "element"
	case convertText:
		return "text"
	}

	return "unknown"
}

// convert attempts to consume input at the cursor. It reports false without
// moving the cursor when the construct is not present, and returns an error
// when the construct begins but cannot be completed.
func (c converter) convert(p *parser) (Fragment, bool, error) {
	switch c {
	case convertMustache:
		return p.mustache()

	case convertComment:
		if p.mode != modeMarkup {
			return nil, false, nil
		}

		return p.comment()

	case convertElement:
		if p.mode != modeMarkup {
			return nil, false, nil
		}

		return p.element()

	case convertText:
		return p.text()
	}

	return nil, false, nil
}

// convert runs the chain once, committing to the first converter that
// matches.
func (p *parser) convert() (Fragment, bool, error) {
	for _, c := range chain {
		nodes, ok, err := c.convert(p)
		if err != nil || ok {
			return nodes, ok, err
		}
	}

	return nil, false, nil
}

// fragment runs the chain repeatedly until input is exhausted, no converter
// matches, or stop reports true. The owner of the fragment decides what the
// unconsumed input at that point means.
func (p *parser) fragment(stop func() bool) (Fragment, error) {
	f := Fragment{}

	for !p.eof() {
		if stop != nil && stop() {
			break
		}

		nodes, ok, err := p.convert()
		if err != nil {
			return nil, err
		}

		if !ok {
			break
		}

		f = f.push(nodes...)
	}

	return f, nil
}

// subFragment compiles input located at pos with a sub-parser in mode m. The
// input must be consumed entirely.
func (p *parser) subFragment(input string, at Position, m mode) (Fragment, error) {
	q := p.sub(input, at, m)

	f, err := q.fragment(nil)
	if err != nil {
		return nil, err
	}

	if !q.eof() {
		return nil, q.errorAt(q.position(), ErrUnexpectedCharacter,
			"%q", abbrev(q.leftover()))
	}

	return f, nil
}
