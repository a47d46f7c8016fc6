package tmpl

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// Every error returned by [Parse] is an [*Error] derived from one of these, so
// errors.Is(err, ErrUnterminated) reports the kind regardless of position and
// detail.
var (
	ErrUnterminated           = NewError("unterminated construct")
	ErrMismatchedPartialClose = NewError("mismatched inline partial closing marker")
	ErrUnexpectedCharacter    = NewError("unexpected character")
	ErrMismatchedClose        = NewError("mismatched closing marker")
	ErrInvalidTag             = NewError("invalid tag")
	ErrInvalidExpression      = NewError("invalid expression")
	ErrInvalidDelimiters      = NewError("invalid delimiters")
	ErrInvalidOptions         = NewError("invalid options")
	ErrDuplicatePartial       = NewError("duplicate inline partial")
	ErrReadInput              = NewError("failed to read input")
)

// Position identifies a location in template source.
// Line and Column are 1-based; Column counts runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns "line:column".
func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// IsValid reports whether p refers to a location in source.
func (p Position) IsValid() bool { return p.Line > 0 }

// Error represents a compile error with an optional source position and
// structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	kind  *Error
	msg   string
	err   error // Wrapped error (for errors.Unwrap)
	pos   Position
	attrs []slog.Attr
}

// NewError creates a new sentinel Error with a message.
func NewError(msg string) *Error {
	e := &Error{msg: msg}
	e.kind = e

	return e
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	e := &Error{err: err}
	e.kind = e

	return e
}

// Error implements the error interface.
//
// The message has the form "<msg> at line L, column C: <cause>", with each
// part omitted when unset.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.msg)

	if e.pos.IsValid() {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString("at line ")
		sb.WriteString(strconv.Itoa(e.pos.Line))
		sb.WriteString(", column ")
		sb.WriteString(strconv.Itoa(e.pos.Column))
	}

	if e.err != nil {
		if sb.Len() > 0 {
			sb.WriteString(": ")
		}

		sb.WriteString(e.err.Error())
	}

	return sb.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.kind == t || e == t
}

// Position returns the source position of the error, if known.
func (e *Error) Position() Position { return e.pos }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+3)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.pos.IsValid() {
		attrs = append(attrs, slog.String("position", e.pos.String()))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.err = err

	return &c
}

// Wrapf creates a new Error wrapping a formatted detail message.
func (e *Error) Wrapf(format string, args ...any) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// WithPosition returns a copy of e located at pos.
func (e *Error) WithPosition(pos Position) *Error {
	c := *e
	c.pos = pos

	return &c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	c := *e
	c.attrs = newAttrs

	return &c
}

// FormatError renders err with the offending line of source and a caret
// beneath the error column. Errors without a position are returned as-is.
func FormatError(source string, err error) string {
	var e *Error
	if !errors.As(err, &e) || !e.pos.IsValid() {
		return err.Error()
	}

	var buf strings.Builder

	buf.WriteString(err.Error())
	buf.WriteByte('\n')

	lines := strings.Split(source, "\n")
	if e.pos.Line > len(lines) {
		return buf.String()
	}

	num := strconv.Itoa(e.pos.Line)

	buf.WriteString("  ")
	buf.WriteString(num)
	buf.WriteString(" | ")
	buf.WriteString(strings.TrimRight(lines[e.pos.Line-1], "\r"))
	buf.WriteByte('\n')

	// 2 leading spaces + " | "
	buf.WriteString(strings.Repeat(" ", len(num)+5))

	if e.pos.Column > 1 {
		buf.WriteString(strings.Repeat(" ", e.pos.Column-1))
	}

	buf.WriteString("^\n")

	return buf.String()
}
