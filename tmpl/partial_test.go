package tmpl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestPartial_RoundTrip verifies that an inline partial compiles the same as
// its body parsed alone, and that main has the definition excised.
func TestPartial_RoundTrip(t *testing.T) {
	r := mustParse(t, "before<!--{{>p}}-->mid<!--{{/p}}-->after")

	if !r.Compound() {
		t.Fatal("result is not compound")
	}

	if diff := cmp.Diff(arr{"beforeafter"}, r.Main.ToNative()); diff != "" {
		t.Errorf("main mismatch (-want +got):\n%s", diff)
	}

	alone := mustParse(t, "mid")
	if diff := cmp.Diff(alone.Main.ToNative(), r.Partials["p"].ToNative()); diff != "" {
		t.Errorf("partial mismatch (-want +got):\n%s", diff)
	}
}

// TestPartial_Compound verifies the compound serialized form.
func TestPartial_Compound(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name: "two partials",
			input: "<ul>{{#items}}{{>row}}{{/items}}</ul>\n" +
				"<!-- {{>row}} --><li>{{name}}</li><!-- {{/row}} -->\n" +
				"<!--{{> empty }}--><!--{{/ empty }}-->",
			want: obj{
				"main": arr{
					obj{"t": 7, "e": "ul", "f": arr{
						obj{"t": 4, "r": "items", "f": arr{obj{"t": 8, "r": "row"}}},
					}},
					" ",
				},
				"partials": obj{
					"row":   arr{obj{"t": 7, "e": "li", "f": arr{obj{"t": 2, "r": "name"}}}},
					"empty": arr{},
				},
			},
		},
		{
			name:  "adjacent definitions",
			input: "<!--{{>outer}}-->a<!--{{/outer}}--><!--{{>inner}}-->b<!--{{/inner}}-->",
			want: obj{
				"main": arr{},
				"partials": obj{
					"outer": arr{"a"},
					"inner": arr{"b"},
				},
			},
		},
		{
			name:  "closing marker alone is a comment",
			input: "a<!--{{/p}}-->b",
			want:  arr{"ab"},
		},
		{
			name:  "closing marker after last definition",
			input: "<!--{{>a}}-->x<!--{{/a}}-->y<!--{{/b}}-->",
			want: obj{
				"main":     arr{"y"},
				"partials": obj{"a": arr{"x"}},
			},
		},
		{
			name:  "ordinary comment is not a marker",
			input: "<!--{{>p}}--><!-- note -->x<!--{{/p}}-->",
			want: obj{
				"main":     arr{},
				"partials": obj{"p": arr{"x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.input).ToNative()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestPartial_Errors verifies marker failures.
func TestPartial_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{
			name:  "missing close",
			input: "<!--{{>p}}-->x",
			want:  ErrUnterminated,
		},
		{
			name:  "nested definition",
			input: "<!--{{>p}}--><!--{{>q}}-->x<!--{{/q}}--><!--{{/p}}-->",
			want:  ErrMismatchedPartialClose,
		},
		{
			name:  "different name",
			input: "<!--{{>p}}-->x<!--{{/q}}-->",
			want:  ErrMismatchedPartialClose,
		},
		{
			name:  "duplicate",
			input: "<!--{{>p}}-->a<!--{{/p}}--><!--{{>p}}-->b<!--{{/p}}-->",
			want:  ErrDuplicatePartial,
		},
		{
			name:  "error in body",
			input: "<!--{{>p}}-->{{#x}}<!--{{/p}}-->",
			want:  ErrUnterminated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

// TestPartial_ErrorPosition verifies that errors in main and partial bodies
// report positions in the original source.
func TestPartial_ErrorPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Position
	}{
		{
			name:  "main after definition",
			input: "<!--{{>p}}-->x<!--{{/p}}-->\n{{#if y}}",
			want:  Position{Offset: 28, Line: 2, Column: 1},
		},
		{
			name:  "main before definition",
			input: "ab {{#if y}}<!--{{>p}}-->x<!--{{/p}}-->",
			want:  Position{Offset: 3, Line: 1, Column: 4},
		},
		{
			name:  "partial body",
			input: "<!--{{>p}}-->\n  {{#if y}}<!--{{/p}}-->",
			want:  Position{Offset: 16, Line: 2, Column: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Parse(%q) error = %v, want *Error", tt.input, err)
			}

			if diff := cmp.Diff(tt.want, e.Position()); diff != "" {
				t.Errorf("position mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestResult_PartialRefs verifies collection of unresolved partial names.
func TestResult_PartialRefs(t *testing.T) {
	r := mustParse(t,
		"{{>b}}{{#x}}{{>a}}{{/x}}{{>row}}<!--{{>row}}-->{{>c}}{{>b}}<!--{{/row}}-->")

	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, r.PartialRefs()); diff != "" {
		t.Errorf("PartialRefs mismatch (-want +got):\n%s", diff)
	}
}
