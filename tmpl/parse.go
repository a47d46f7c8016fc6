package tmpl

import (
	"context"
	"io"
	"log/slog"
)

// Parse compiles template into a descriptor tree.
//
// If template defines inline partials, the result is in compound form with
// the partial bodies in [Result.Partials]. Otherwise Partials is nil.
// Defining the same partial name twice fails with [ErrDuplicatePartial]
// rather than replacing the earlier body, and a closing marker that follows
// no opening marker is an ordinary comment.
//
// Every error is an [*Error] derived from one of the package sentinels. No
// partial result is returned on error.
//
// The context is used only for logging.
func Parse(ctx context.Context, template string, opts ...Option) (*Result, error) {
	o := makeOptions(opts...)

	d, err := newDialect(o)
	if err != nil {
		return nil, err
	}

	s := &shared{
		ctx:         ctx,
		logger:      o.logger,
		dialect:     d,
		expressions: make(map[string]*Expression),
	}

	if d.unrelated {
		s.logger.WarnContext(ctx,
			"neither opening delimiter is a prefix of the other; "+
				"triple delimiters take precedence",
			d.attrs()...)
	}

	s.logger.TraceContext(ctx, "parse start",
		append(d.attrs(), slog.Int("length", len(template)))...)

	partials := make(map[string]Fragment)

	main, err := s.parse(template, Position{Line: 1, Column: 1}, partials)
	if err != nil {
		return nil, err
	}

	r := &Result{Main: main, Expressions: s.expressions}
	if len(partials) > 0 {
		r.Partials = partials
	}

	s.logger.TraceContext(ctx, "parse complete",
		slog.Int("descriptors", len(main)),
		slog.Int("partials", len(partials)),
		slog.Int("expressions", len(s.expressions)))

	return r, nil
}

// ParseReader reads all of r and compiles it with [Parse].
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Result, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, ErrReadInput.Wrap(err)
	}

	return Parse(ctx, string(b), opts...)
}

// parse compiles source located at pos, splitting out inline partials into
// partials when it defines any.
func (s *shared) parse(
	source string,
	at Position,
	partials map[string]Fragment,
) (Fragment, error) {
	if _, ok := nextOpening(source, 0); ok {
		return s.compound(source, at, partials)
	}

	return s.document(source, at)
}

// document compiles source that contains no inline partial markers. All of
// source must be consumed.
func (s *shared) document(source string, at Position) (Fragment, error) {
	p := newParser(s, source, at)

	f, err := p.fragment(nil)
	if err != nil {
		return nil, err
	}

	if !p.eof() {
		return nil, p.errorAt(p.position(), ErrUnexpectedCharacter,
			"%q", abbrev(p.leftover()))
	}

	return f, nil
}
