package tmpl

import (
	"log/slog"
	"sort"
	"strings"
	"unicode"
)

// marker is an inline partial definition marker, <!-- {{>name}} --> or
// <!-- {{/name}} -->, located at source[start:end].
type marker struct {
	start, end int
	name       string
	closing    bool
}

// nextMarker returns the first marker in s at or after offset from.
func nextMarker(s string, from int) (marker, bool) {
	for from < len(s) {
		i := strings.Index(s[from:], commentOpen)
		if i < 0 {
			break
		}

		start := from + i
		if m, ok := scanMarker(s, start); ok {
			return m, true
		}

		from = start + 1
	}

	return marker{}, false
}

// nextOpening returns the first opening marker in s at or after offset from.
// Closing markers before it are ordinary comments.
func nextOpening(s string, from int) (marker, bool) {
	for {
		m, ok := nextMarker(s, from)
		if !ok || !m.closing {
			return m, ok
		}

		from = m.end
	}
}

// scanMarker recognizes a marker beginning exactly at s[start].
func scanMarker(s string, start int) (marker, bool) {
	i := start + len(commentOpen)

	skip := func() {
		for i < len(s) && unicode.IsSpace(rune(s[i])) {
			i++
		}
	}

	expect := func(lit string) bool {
		if !strings.HasPrefix(s[i:], lit) {
			return false
		}

		i += len(lit)

		return true
	}

	skip()

	if !expect("{{") {
		return marker{}, false
	}

	skip()

	m := marker{start: start}

	switch {
	case expect(">"):
	case expect("/"):
		m.closing = true
	default:
		return marker{}, false
	}

	skip()

	n := i
	for i < len(s) && isMarkerNameByte(s[i], i == n) {
		i++
	}

	m.name = s[n:i]
	if m.name == "" {
		return marker{}, false
	}

	skip()

	if !expect("}}") {
		return marker{}, false
	}

	skip()

	if !expect(commentClose) {
		return marker{}, false
	}

	m.end = i

	return m, true
}

func isMarkerNameByte(c byte, first bool) bool {
	switch {
	case c == '_' || c == '$':
		return true
	case c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		return true
	case !first && c >= '0' && c <= '9':
		return true
	}

	return false
}

// segment maps a span of the assembled main text back to the source.
type segment struct {
	offset int      // offset in main
	at     Position // position in source
}

// compound compiles source containing inline partial definitions. Each
// definition body is compiled through [shared.parse] and stored under its
// name. Definitions do not nest. The text outside all definitions is
// concatenated and compiled as main, including any closing marker that
// follows no opening marker.
func (s *shared) compound(
	source string,
	at Position,
	partials map[string]Fragment,
) (Fragment, error) {
	var (
		main     strings.Builder
		segments []segment
	)

	locate := func(offset int) Position {
		return advancePos(at, source[:offset])
	}

	from := 0

	for {
		open, ok := nextOpening(source, from)
		if !ok {
			break
		}

		segments = append(segments, segment{offset: main.Len(), at: locate(from)})
		main.WriteString(source[from:open.start])

		end, ok := nextMarker(source, open.end)

		switch {
		case !ok:
			return nil, ErrUnterminated.WithPosition(locate(open.start)).
				Wrapf("inline partial %q has no closing marker", open.name)

		case !end.closing:
			return nil, ErrMismatchedPartialClose.WithPosition(locate(end.start)).
				Wrapf("inline partial %q cannot be nested in %q", end.name, open.name)

		case end.name != open.name:
			return nil, ErrMismatchedPartialClose.WithPosition(locate(end.start)).
				Wrapf("closing marker for %q does not close %q", end.name, open.name)
		}

		if _, dup := partials[open.name]; dup {
			return nil, ErrDuplicatePartial.WithPosition(locate(open.start)).
				Wrapf("inline partial %q is already defined", open.name)
		}

		body, err := s.parse(source[open.end:end.start], locate(open.end), partials)
		if err != nil {
			return nil, err
		}

		partials[open.name] = body

		s.logger.TraceContext(s.ctx, "inline partial compiled",
			slog.String("name", open.name),
			slog.String("at", locate(open.start).String()))

		from = end.end
	}

	segments = append(segments, segment{offset: main.Len(), at: locate(from)})
	main.WriteString(source[from:])

	text := main.String()

	f, err := s.document(text, Position{})
	if err != nil {
		return nil, remap(err, text, segments)
	}

	return f, nil
}

// remap relocates the position of a compile error in the assembled main text
// to the corresponding position in the source.
func remap(err error, text string, segments []segment) error {
	e := WrapError(err)
	if !e.pos.IsValid() {
		return err
	}

	off := e.pos.Offset

	i := sort.Search(len(segments), func(i int) bool {
		return segments[i].offset > off
	}) - 1
	if i < 0 {
		return err
	}

	seg := segments[i]

	return e.WithPosition(advancePos(seg.at, text[seg.offset:off]))
}
