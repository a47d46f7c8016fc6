package tmpl

import (
	"log/slog"
	"strings"
)

const (
	commentOpen  = "<!--"
	commentClose = "-->"
)

// comment converts an HTML comment. Comments are consumed and dropped when
// the dialect strips them.
func (p *parser) comment() (Fragment, bool, error) {
	if !p.matches(commentOpen) {
		return nil, false, nil
	}

	pos := p.position()
	body := p.rest()[len(commentOpen):]

	i := strings.Index(body, commentClose)
	if i < 0 {
		return nil, false, p.errorAt(pos, ErrUnterminated,
			"comment %q has no closing %q", abbrev(commentOpen+body), commentClose)
	}

	p.advanceN(len(commentOpen) + i + len(commentClose))

	if p.dialect.stripComments {
		p.trace("comment stripped", slog.Int("length", i))

		return Fragment{}, true, nil
	}

	d := &Descriptor{
		Type:     TypeComment,
		Content:  true,
		Fragment: Fragment{text(body[:i])},
	}

	return Fragment{d}, true, nil
}
