package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/stache/pkg"
	"github.com/ardnew/stache/tmpl"
)

// TestCompile_Run verifies compiled output for single sources.
func TestCompile_Run(t *testing.T) {
	t.Setenv(pkg.EnvName(PartialsEnv), "")

	partials := t.TempDir()
	writeFile(t, partials, "item.html", "<b>{{.}}</b>")
	writeFile(t, partials, "outer.stache", "[{{>inner}}]")
	writeFile(t, partials, "inner.mustache", "in")

	tests := []struct {
		name     string
		source   string
		partials []string
		indent   int
		want     string
	}{
		{
			name:   "compact json",
			source: "a{{b}}",
			want:   `["a",{"r":"b","t":2}]` + "\n",
		},
		{
			name:   "indented json",
			source: "a",
			indent: 2,
			want:   "[\n  \"a\"\n]\n",
		},
		{
			name:     "external partial",
			source:   "{{>item}}",
			partials: []string{partials},
			want: `{"main":[{"r":"item","t":8}],` +
				`"partials":{"item":[{"e":"b","f":[{"r":".","t":2}],"t":7}]}}` + "\n",
		},
		{
			name:     "nested external partials",
			source:   "{{>outer}}",
			partials: []string{partials},
			want: `{"main":[{"r":"outer","t":8}],` +
				`"partials":{"inner":["in"],"outer":["[",{"r":"inner","t":8},"]"]}}` + "\n",
		},
		{
			name:     "unresolved partial",
			source:   "{{>nope}}",
			partials: []string{partials},
			want:     `[{"r":"nope","t":8}]` + "\n",
		},
		{
			name:   "partials ignored without search path",
			source: "{{>item}}",
			want:   `[{"r":"item","t":8}]` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			c := &Compile{
				Dialect:  defaultDialect(),
				Format:   "json",
				Indent:   tt.indent,
				Partials: tt.partials,
				Sources:  []string{writeFile(t, t.TempDir(), "page.html", tt.source)},
				stdout:   &buf,
			}

			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("Run error = %v", err)
			}

			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("output (-want +got):\n%s", diff)
			}
		})
	}
}

// TestCompile_RunYAML verifies YAML output for one and several sources.
func TestCompile_RunYAML(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.html", "a{{b}}")
	b := writeFile(t, dir, "b.html", "c")

	tests := []struct {
		name    string
		sources []string
		want    []string
	}{
		{name: "single", sources: []string{a}, want: []string{"- a\n", "r: b", "t: 2"}},
		{name: "multiple", sources: []string{a, b}, want: []string{a + ":", b + ":", "r: b", "- c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			c := &Compile{Dialect: defaultDialect(), Format: "yaml", Sources: tt.sources, stdout: &buf}
			if err := c.Run(context.Background()); err != nil {
				t.Fatalf("Run error = %v", err)
			}

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

// TestCompile_RunMultiple verifies that several sources are keyed by name.
func TestCompile_RunMultiple(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.html", "A")
	b := writeFile(t, dir, "b.html", "{{b}}")

	var buf bytes.Buffer

	c := &Compile{Dialect: defaultDialect(), Sources: []string{a, b}, stdout: &buf}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	want := map[string]any{
		a: []any{"A"},
		b: []any{map[string]any{"r": "b", "t": float64(2)}},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
}

// TestCompile_RunOutputFile verifies writing to a file.
func TestCompile_RunOutputFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")

	c := &Compile{
		Dialect: defaultDialect(),
		Output:  out,
		Sources: []string{writeFile(t, dir, "a.html", "x")},
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if got := string(data); got != `["x"]`+"\n" {
		t.Errorf("output = %q", got)
	}
}

// TestCompile_RunErrors verifies that failures carry their sentinels.
func TestCompile_RunErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		sources []string
		want    []error
	}{
		{
			name:    "unterminated section",
			sources: []string{writeFile(t, dir, "bad.html", "{{#if x}}")},
			want:    []error{pkg.ErrCompile, tmpl.ErrUnterminated},
		},
		{
			name:    "missing source",
			sources: []string{filepath.Join(dir, "none.html")},
			want:    []error{pkg.ErrReadInput},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			c := &Compile{Dialect: defaultDialect(), Sources: tt.sources, stdout: &buf}

			err := c.Run(context.Background())
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("Run error = %v, want %v", err, want)
				}
			}

			if buf.Len() != 0 {
				t.Errorf("unexpected output %q", buf.String())
			}
		})
	}
}

// TestCompile_SearchPath verifies merging of flags and the environment.
func TestCompile_SearchPath(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	missing := filepath.Join(a, "missing")

	t.Setenv(pkg.EnvName(PartialsEnv),
		strings.Join([]string{b, missing, a}, string(os.PathListSeparator)))

	c := &Compile{Partials: []string{a, missing}}

	if diff := cmp.Diff([]string{a, b}, c.searchPath()); diff != "" {
		t.Errorf("searchPath (-want +got):\n%s", diff)
	}
}
