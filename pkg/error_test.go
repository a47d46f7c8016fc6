package pkg

import (
	"errors"
	"io/fs"
	"testing"
)

// TestError_Chain verifies message order and sentinel matching.
func TestError_Chain(t *testing.T) {
	cause := &fs.PathError{Op: "open", Path: "page.html", Err: fs.ErrNotExist}
	err := ErrReadInput.Wrap(cause)

	if got, want := err.Error(), "read input: open page.html: file does not exist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	tests := []struct {
		name   string
		target error
		want   bool
	}{
		{"sentinel", ErrReadInput, true},
		{"cause", fs.ErrNotExist, true},
		{"other sentinel", ErrWriteOutput, false},
		{"empty chain", Error{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}

	var pe *fs.PathError
	if !errors.As(err, &pe) || pe.Path != "page.html" {
		t.Errorf("errors.As = %v", pe)
	}
}

// TestError_Wrapf verifies nested wrapping.
func TestError_Wrapf(t *testing.T) {
	err := ErrCompile.Wrap(ErrReadConfig.Wrapf("line %d", 3))

	if got, want := err.Error(), "compile: read configuration: line 3"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, ErrCompile) || !errors.Is(err, ErrReadConfig) {
		t.Error("nested sentinels do not match")
	}

	if len(ErrCompile) != 1 {
		t.Errorf("sentinel mutated: %v", ErrCompile)
	}
}

// TestMakeError verifies that nil errors are skipped.
func TestMakeError(t *testing.T) {
	if e := MakeError(nil, nil); e != nil {
		t.Errorf("MakeError(nil, nil) = %v, want nil", e)
	}

	if got := MakeError(errors.New("a"), nil, errors.New("b")).Error(); got != "b: a" {
		t.Errorf("Error() = %q, want %q", got, "b: a")
	}
}
