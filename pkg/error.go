package pkg

import (
	"fmt"
	"slices"
	"strings"
)

// Error is a chain of errors ordered from innermost to outermost.
//
// A sentinel Error is declared once with [MakeErrorf] and then extended with
// [Error.Wrap] or [Error.Wrapf] at each failure site. [errors.Is] matches any
// member of the chain, so a wrapped sentinel still matches itself.
type Error []error

var (
	// ErrReadInput reports a source that could not be read.
	ErrReadInput = MakeErrorf("read input")
	// ErrWriteOutput reports output that could not be written.
	ErrWriteOutput = MakeErrorf("write output")
	// ErrInvalidFormat reports an unsupported output format.
	ErrInvalidFormat = MakeErrorf("invalid format")
	// ErrCompile reports one or more templates that failed to compile.
	ErrCompile = MakeErrorf("compile")
	// ErrReadConfig reports a configuration file that could not be decoded.
	ErrReadConfig = MakeErrorf("read configuration")
)

// MakeError joins errs into a single chain. Members of an Error are spliced
// in place and nil errors are skipped.
func MakeError(errs ...error) Error {
	var e Error

	for _, err := range errs {
		switch c := err.(type) {
		case nil:
		case Error:
			e = append(e, c...)
		default:
			e = append(e, err)
		}
	}

	return e
}

// MakeErrorf returns a chain holding one formatted error.
func MakeErrorf(format string, args ...any) Error {
	return MakeError(fmt.Errorf(format, args...))
}

// Error joins the chain with ": ", outermost first, so a wrapped sentinel
// reads like "read input: open x: no such file or directory".
func (e Error) Error() string {
	var sb strings.Builder

	for i, err := range slices.Backward(e) {
		sb.WriteString(err.Error())

		if i > 0 {
			sb.WriteString(": ")
		}
	}

	return sb.String()
}

// Wrap returns a new chain with errs appended inside e.
func (e Error) Wrap(errs ...error) Error {
	return append(MakeError(errs...), e...)
}

// Wrapf returns a new chain with a formatted error appended inside e.
func (e Error) Wrapf(format string, args ...any) Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Unwrap returns the members of the chain.
func (e Error) Unwrap() []error { return e }

// Is reports whether target is an Error whose members all appear in e in
// the same order. This lets a derived chain match the sentinel it was built
// from.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok || len(t) == 0 || len(t) > len(e) {
		return false
	}

	for i := range len(e) - len(t) + 1 {
		if slices.Equal(e[i:i+len(t)], t) {
			return true
		}
	}

	return false
}
