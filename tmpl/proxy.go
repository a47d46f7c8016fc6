package tmpl

import (
	"strings"
	"unicode"

	"github.com/goccy/go-yaml"
)

// proxy parses a directive value of the form "name" or "name:args". A name
// containing mustaches is compiled into NameFragment. Arguments are decoded
// as a YAML flow sequence when static, and compiled into Dynamic otherwise.
// Static arguments that do not decode are kept as dynamic text.
func (p *parser) proxy(raw string, at Position) (*Proxy, error) {
	name, args, hasArgs := p.cutProxy(raw)

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, p.errorAt(at, ErrInvalidTag, "directive %q has no name", raw)
	}

	px := &Proxy{}

	if p.hasMustache(trimmed) {
		lead := name[:len(name)-len(strings.TrimLeftFunc(name, unicode.IsSpace))]

		f, err := p.subFragment(trimmed, advancePos(at, lead), modeAttribute)
		if err != nil {
			return nil, err
		}

		px.NameFragment = f
	} else {
		px.Name = trimmed
	}

	if !hasArgs {
		return px, nil
	}

	argsAt := advancePos(at, raw[:len(name)+1])

	if p.hasMustache(args) {
		f, err := p.subFragment(args, argsAt, modeAttribute)
		if err != nil {
			return nil, err
		}

		px.Dynamic = f

		return px, nil
	}

	var vals []any
	if err := yaml.Unmarshal([]byte("["+args+"]"), &vals); err != nil {
		p.trace("directive arguments kept as text")

		px.Dynamic = Fragment{text(args)}

		return px, nil
	}

	if vals == nil {
		vals = []any{}
	}

	px.Args = vals

	return px, nil
}

// cutProxy splits raw at the first colon outside a mustache.
func (p *parser) cutProxy(raw string) (string, string, bool) {
	for i := 0; i < len(raw); i++ {
		if j, ok := p.skipMustache(raw, i); ok {
			i = j - 1

			continue
		}

		if raw[i] == ':' {
			return raw[:i], raw[i+1:], true
		}
	}

	return raw, "", false
}

// skipMustache returns the index just past a complete mustache starting at
// s[i].
func (p *parser) skipMustache(s string, i int) (int, bool) {
	for _, d := range []delimiters{p.dialect.tripleDelimiters, p.delims} {
		if !strings.HasPrefix(s[i:], d.open) {
			continue
		}

		body := s[i+len(d.open):]
		if j := closeIndex(body, d.close, true); j >= 0 {
			return i + len(d.open) + j + len(d.close), true
		}
	}

	return i, false
}

func (p *parser) hasMustache(s string) bool {
	return strings.Contains(s, p.delims.open) ||
		strings.Contains(s, p.dialect.tripleDelimiters.open)
}
