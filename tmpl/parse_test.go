package tmpl

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// obj is shorthand for a compact descriptor in expected trees.
type obj = map[string]any

// arr is shorthand for a compact fragment in expected trees.
type arr = []any

func mustParse(t *testing.T, template string, opts ...Option) *Result {
	t.Helper()

	r, err := Parse(context.Background(), template, opts...)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", template, err)
	}

	return r
}

// TestParse_Tree verifies the compact tree produced for common templates.
func TestParse_Tree(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
		want  any
	}{
		{
			name:  "empty",
			input: "",
			want:  arr{},
		},
		{
			name:  "text",
			input: "hello",
			want:  arr{"hello"},
		},
		{
			name:  "text around interpolator",
			input: "a{{b}}c",
			want:  arr{"a", obj{"t": 2, "r": "b"}, "c"},
		},
		{
			name:  "triple",
			input: "{{{raw}}}",
			want:  arr{obj{"t": 3, "r": "raw"}},
		},
		{
			name:  "ampersand triple",
			input: "{{& raw}}",
			want:  arr{obj{"t": 3, "r": "raw"}},
		},
		{
			name:  "partial",
			input: "{{> item }}",
			want:  arr{obj{"t": 8, "r": "item"}},
		},
		{
			name:  "mustache comment",
			input: "a{{! ignored }}b",
			want:  arr{"ab"},
		},
		{
			name:  "section",
			input: "{{#items}}x{{/items}}",
			want:  arr{obj{"t": 4, "r": "items", "f": arr{"x"}}},
		},
		{
			name:  "inverted section",
			input: "{{^items}}none{{/items}}",
			want:  arr{obj{"t": 4, "r": "items", "n": true, "f": arr{"none"}}},
		},
		{
			name:  "if keyword",
			input: "{{#if ok}}yes{{/if}}",
			want:  arr{obj{"t": 4, "r": "ok", "f": arr{"yes"}}},
		},
		{
			name:  "unless keyword",
			input: "{{#unless ok}}no{{/unless}}",
			want:  arr{obj{"t": 4, "r": "ok", "n": true, "f": arr{"no"}}},
		},
		{
			name:  "empty close",
			input: "{{#with user}}{{name}}{{/}}",
			want: arr{obj{"t": 4, "r": "user", "f": arr{
				obj{"t": 2, "r": "name"},
			}}},
		},
		{
			name:  "else",
			input: "{{#if x}}a{{else}}b{{/if}}",
			want: arr{
				obj{"t": 4, "r": "x", "f": arr{"a"}},
				obj{"t": 4, "r": "x", "n": true, "f": arr{"b"}},
			},
		},
		{
			name:  "index reference",
			input: "{{#each items:i}}{{i}}{{/each}}",
			want: arr{obj{"t": 4, "r": "items", "i": "i", "f": arr{
				obj{"t": 2, "r": "i"},
			}}},
		},
		{
			name:  "delimiter change",
			input: "{{=<% %>=}}<%x%>{{y}}",
			want:  arr{obj{"t": 2, "r": "x"}, "{{y}}"},
		},
		{
			name:  "custom delimiters",
			input: "<<x>>",
			opts:  []Option{WithDelimiters("<<", ">>")},
			want:  arr{obj{"t": 2, "r": "x"}},
		},
		{
			name:  "entities decoded",
			input: "a &amp; b &lt;c&gt;",
			want:  arr{"a & b <c>"},
		},
		{
			name:  "whitespace collapsed",
			input: "a \n\t b",
			want:  arr{"a b"},
		},
		{
			name:  "whitespace preserved",
			input: "a \n\t b",
			opts:  []Option{WithPreserveWhitespace(true)},
			want:  arr{"a \n\t b"},
		},
		{
			name:  "quoted close delimiter",
			input: `{{ "}}" }}`,
			want: arr{obj{"t": 2, "x": obj{
				"r": arr{},
				"s": `"}}"`,
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.input, tt.opts...).ToNative()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

// TestParse_Redelimit verifies that custom delimiters produce the same tree as
// the defaults.
func TestParse_Redelimit(t *testing.T) {
	tests := []struct {
		name   string
		plain  string
		custom string
		open   string
		close  string
	}{
		{name: "interpolator", plain: "{{x}}", custom: "<<x>>", open: "<<", close: ">>"},
		{
			name:   "section",
			plain:  "{{#a}}b{{c}}{{/a}}",
			custom: "[[#a]]b[[c]][[/a]]",
			open:   "[[",
			close:  "]]",
		},
		{
			name:   "attribute",
			plain:  `<p class="{{x}}">{{y}}</p>`,
			custom: `<p class="<%x%>"><%y%></p>`,
			open:   "<%",
			close:  "%>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := mustParse(t, tt.plain).ToNative()
			got := mustParse(t, tt.custom, WithDelimiters(tt.open, tt.close)).ToNative()

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("re-delimited tree mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParse_Errors verifies the error kind reported for malformed templates.
func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  []Option
		want  error
	}{
		{name: "unterminated section", input: "{{#if cond}}body", want: ErrUnterminated},
		{name: "unterminated mustache", input: "a {{b", want: ErrUnterminated},
		{name: "unterminated comment", input: "<!-- a", want: ErrUnterminated},
		{name: "unterminated tag", input: `<div class="a"`, want: ErrUnterminated},
		{name: "unterminated quote", input: `<div class="a>b</div>`, want: ErrUnterminated},
		{name: "unclosed element", input: "<div>a", want: ErrUnterminated},
		{name: "element interrupted", input: "{{#a}}<div>{{/a}}</div>", want: ErrUnterminated},
		{name: "mismatched close", input: "{{#if x}}a{{/unless}}", want: ErrMismatchedClose},
		{name: "mismatched end tag", input: "<div><span>a</div>", want: ErrMismatchedClose},
		{name: "second else", input: "{{#x}}a{{else}}b{{else}}c{{/x}}", want: ErrMismatchedClose},
		{name: "stray close", input: "a{{/x}}", want: ErrUnexpectedCharacter},
		{name: "stray else", input: "a{{else}}", want: ErrUnexpectedCharacter},
		{name: "stray end tag", input: "a</div>", want: ErrUnexpectedCharacter},
		{name: "bad expression", input: "{{ a + }}", want: ErrInvalidExpression},
		{name: "empty mustache", input: "{{ }}", want: ErrInvalidExpression},
		{name: "bad delimiter change", input: "{{=<%=}}", want: ErrInvalidDelimiters},
		{name: "empty directive", input: `<a on-click="">x</a>`, want: ErrInvalidTag},
		{
			name:  "shared openers",
			input: "x",
			opts:  []Option{WithDelimiters("{{{", "}}")},
			want:  ErrInvalidOptions,
		},
		{
			name:  "half delimiters",
			input: "x",
			opts:  []Option{WithOptions(Options{Delimiters: []string{"<%"}})},
			want:  ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Parse(context.Background(), tt.input, tt.opts...)
			if err == nil {
				t.Fatalf("Parse(%q) = %v, want error", tt.input, r.ToNative())
			}

			if r != nil {
				t.Errorf("Parse(%q) returned a result with error", tt.input)
			}

			if !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

// TestParse_ErrorPosition verifies that errors carry line and column.
func TestParse_ErrorPosition(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		col   int
	}{
		{name: "section opener", input: "ab\ncd {{#if x}}", line: 2, col: 4},
		{name: "trailing input", input: "ab\n{{/x}}", line: 2, col: 1},
		{name: "attribute expression", input: "<p\n  title=\"{{ 1 + }}\">", line: 2, col: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tt.input)

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Parse(%q) error = %v, want *Error", tt.input, err)
			}

			if got := e.Position(); got.Line != tt.line || got.Column < tt.col {
				t.Errorf("position = %s, want line %d, column >= %d", got, tt.line, tt.col)
			}
		})
	}
}

// TestParse_Interning verifies that identical expressions share one entry.
func TestParse_Interning(t *testing.T) {
	r := mustParse(t, "{{a+b}} {{ a + b }} {{a - b}}")

	if len(r.Expressions) != 2 {
		t.Fatalf("len(Expressions) = %d, want 2", len(r.Expressions))
	}

	var xs []*Expression

	for d := range r.Main.All() {
		if d.Expression != nil {
			xs = append(xs, d.Expression)
		}
	}

	if len(xs) != 3 {
		t.Fatalf("found %d expression descriptors, want 3", len(xs))
	}

	if xs[0] != xs[1] {
		t.Error("identical expressions are not interned")
	}

	if xs[0] == xs[2] {
		t.Error("distinct expressions share an entry")
	}
}

// TestParse_Independent verifies that separate calls share no state.
func TestParse_Independent(t *testing.T) {
	a := mustParse(t, "{{x*2}}")
	b := mustParse(t, "{{x*2}}")

	if a.Main[0].Expression == b.Main[0].Expression {
		t.Error("expression shared across Parse calls")
	}
}

// TestParse_Concurrent verifies that parallel parses are independent.
func TestParse_Concurrent(t *testing.T) {
	const template = `<ul>{{#each items:i}}<li class="{{i % 2 ? 'odd' : 'even'}}">` +
		`{{name}}</li>{{/each}}</ul>`

	want := mustParse(t, template).ToNative()

	var wg sync.WaitGroup

	for range 16 {
		wg.Go(func() {
			r, err := Parse(context.Background(), template)
			if err != nil {
				t.Errorf("Parse error = %v", err)

				return
			}

			if diff := cmp.Diff(want, r.ToNative()); diff != "" {
				t.Errorf("concurrent tree mismatch (-want +got):\n%s", diff)
			}
		})
	}

	wg.Wait()
}

// TestParseReader verifies reading templates from an io.Reader.
func TestParseReader(t *testing.T) {
	r, err := ParseReader(context.Background(), strings.NewReader("a{{b}}"))
	if err != nil {
		t.Fatalf("ParseReader error = %v", err)
	}

	want := arr{"a", obj{"t": 2, "r": "b"}}
	if diff := cmp.Diff(want, r.ToNative()); diff != "" {
		t.Errorf("ParseReader mismatch (-want +got):\n%s", diff)
	}

	_, err = ParseReader(context.Background(), failingReader{})
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("ParseReader error = %v, want %v", err, ErrReadInput)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }
