package tmpl

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

// TestResult_FormatJSON verifies compact and indented JSON output.
func TestResult_FormatJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		indent int
		want   string
	}{
		{
			name:  "compact",
			input: "a{{b}}",
			want:  `["a",{"r":"b","t":2}]` + "\n",
		},
		{
			name:   "indented",
			input:  "a{{b}}",
			indent: 2,
			want:   "[\n  \"a\",\n  {\n    \"r\": \"b\",\n    \"t\": 2\n  }\n]\n",
		},
		{
			name:  "markup is not escaped",
			input: "a &lt; b",
			want:  `["a < b"]` + "\n",
		},
		{
			name:  "compound",
			input: "{{>p}}<!--{{>p}}-->x<!--{{/p}}-->",
			want:  `{"main":[{"r":"p","t":8}],"partials":{"p":["x"]}}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := mustParse(t, tt.input).FormatJSON(&buf, tt.indent); err != nil {
				t.Fatalf("FormatJSON error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("FormatJSON =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

// TestResult_MarshalJSON verifies that the result marshals in compact form.
func TestResult_MarshalJSON(t *testing.T) {
	r := mustParse(t, `<b class="x">{{y}}</b>`)

	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal error = %v", err)
	}

	want := `[{"a":{"class":"x"},"e":"b","f":[{"r":"y","t":2}],"t":7}]`
	if string(got) != want {
		t.Errorf("json.Marshal = %s, want %s", got, want)
	}
}

// TestResult_FormatYAML verifies YAML output.
func TestResult_FormatYAML(t *testing.T) {
	var buf bytes.Buffer

	r := mustParse(t, "a{{b}}")
	if err := r.FormatYAML(context.Background(), &buf, 0); err != nil {
		t.Fatalf("FormatYAML error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"- a\n", "r: b", "t: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatYAML output missing %q:\n%s", want, got)
		}
	}
}
