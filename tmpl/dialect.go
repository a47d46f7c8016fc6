package tmpl

import (
	"log/slog"
	"strings"
)

// delimiters is an open/close marker pair.
type delimiters struct {
	open, close string
}

var (
	defaultDelimiters       = delimiters{"{{", "}}"}
	defaultTripleDelimiters = delimiters{"{{{", "}}}"}
)

// dialect is the immutable per-parse configuration consulted by converters.
type dialect struct {
	delimiters        delimiters
	tripleDelimiters  delimiters
	interpolateScript bool
	interpolateStyle  bool
	sanitizeElements  map[string]struct{}
	sanitizeEvents    bool
	stripComments     bool
	preserveSpace     bool

	// unrelated is set when neither opening delimiter is a prefix of the
	// other; the triple form is still tried first.
	unrelated bool
}

func newDialect(o Options) (*dialect, error) {
	d := &dialect{
		delimiters:        defaultDelimiters,
		tripleDelimiters:  defaultTripleDelimiters,
		interpolateScript: true,
		interpolateStyle:  true,
		stripComments:     true,
		preserveSpace:     o.PreserveWhitespace,
	}

	var err error

	if o.Delimiters != nil {
		d.delimiters, err = makeDelimiters("delimiters", o.Delimiters)
		if err != nil {
			return nil, err
		}
	}

	if o.TripleDelimiters != nil {
		d.tripleDelimiters, err = makeDelimiters("tripleDelimiters", o.TripleDelimiters)
		if err != nil {
			return nil, err
		}
	}

	if d.delimiters.open == d.tripleDelimiters.open {
		return nil, ErrInvalidOptions.
			Wrapf("delimiters and tripleDelimiters share opening marker %q",
				d.delimiters.open)
	}

	d.unrelated = !strings.HasPrefix(d.tripleDelimiters.open, d.delimiters.open) &&
		!strings.HasPrefix(d.delimiters.open, d.tripleDelimiters.open)

	if o.Interpolate.Script != nil {
		d.interpolateScript = *o.Interpolate.Script
	}

	if o.Interpolate.Style != nil {
		d.interpolateStyle = *o.Interpolate.Style
	}

	if o.StripComments != nil {
		d.stripComments = *o.StripComments
	}

	if o.Sanitize.Enabled {
		elements := o.Sanitize.Elements
		if elements == nil {
			elements = DefaultSanitizeElements
		}

		d.sanitizeElements = make(map[string]struct{}, len(elements))
		for _, e := range elements {
			d.sanitizeElements[strings.ToLower(e)] = struct{}{}
		}

		d.sanitizeEvents = o.Sanitize.EventAttributes
	}

	return d, nil
}

func makeDelimiters(name string, pair []string) (delimiters, error) {
	if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
		return delimiters{}, ErrInvalidOptions.
			Wrapf("%s must be two non-empty strings", name).
			With(slog.Any(name, pair))
	}

	return delimiters{pair[0], pair[1]}, nil
}

// sanitized reports whether the element tag is blacklisted.
func (d *dialect) sanitized(tag string) bool {
	_, ok := d.sanitizeElements[strings.ToLower(tag)]

	return ok
}

// eventAttribute reports whether name is an inline event handler attribute
// such as onclick.
func eventAttribute(name string) bool {
	if len(name) < 3 || !strings.EqualFold(name[:2], "on") {
		return false
	}

	c := name[2]

	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// interpolates reports whether mustaches are recognized inside the body of
// the raw-text element tag.
func (d *dialect) interpolates(tag string) bool {
	switch strings.ToLower(tag) {
	case "script":
		return d.interpolateScript
	case "style":
		return d.interpolateStyle
	}

	return true
}

func (d *dialect) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String("delimiters", d.delimiters.open+" "+d.delimiters.close),
		slog.String("triple_delimiters",
			d.tripleDelimiters.open+" "+d.tripleDelimiters.close),
		slog.Bool("strip_comments", d.stripComments),
		slog.Int("sanitize_elements", len(d.sanitizeElements)),
		slog.Bool("sanitize_events", d.sanitizeEvents),
	}
}
