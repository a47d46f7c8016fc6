package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/stache/pkg"
)

// TestCheck_Run verifies reporting of failing sources.
func TestCheck_Run(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.html", "<p>{{x}}</p>")
	bad := writeFile(t, dir, "bad.html", "<ul>\n  {{#each items}}\n</ul>")

	tests := []struct {
		name    string
		sources []string
		wantErr bool
		want    []string
	}{
		{name: "all pass", sources: []string{good}},
		{
			name:    "one fails",
			sources: []string{good, bad},
			wantErr: true,
			want: []string{
				bad + ": unterminated construct at line 3, column 1",
				"  3 | </ul>\n",
				"      ^\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			c := &Check{Dialect: defaultDialect(), Sources: tt.sources, stderr: &buf}

			err := c.Run(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr && !errors.Is(err, pkg.ErrCompile) {
				t.Errorf("Run error = %v, want ErrCompile", err)
			}

			if !tt.wantErr && buf.Len() != 0 {
				t.Errorf("unexpected report %q", buf.String())
			}

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("report missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

// TestCheck_RunCount verifies the failure summary.
func TestCheck_RunCount(t *testing.T) {
	dir := t.TempDir()

	c := &Check{
		Dialect: defaultDialect(),
		Sources: []string{
			writeFile(t, dir, "a.html", "{{#if a}}"),
			writeFile(t, dir, "b.html", "ok"),
			writeFile(t, dir, "c.html", "{{/if}}"),
		},
		stderr: &bytes.Buffer{},
	}

	err := c.Run(context.Background())
	if err == nil || err.Error() != "compile: 2 of 3 sources failed" {
		t.Errorf("Run error = %v", err)
	}
}
