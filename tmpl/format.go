package tmpl

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// DefaultIndent is the indentation width used by the formatters when none is
// given.
const DefaultIndent = 2

// FormatJSON writes r to w as JSON followed by a newline. An indent of zero
// or less writes compact JSON.
func (r *Result) FormatJSON(w io.Writer, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}

	return enc.Encode(r.ToNative())
}

// FormatYAML writes r to w as a YAML document.
func (r *Result) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	if indent <= 0 {
		indent = DefaultIndent
	}

	b, err := yaml.MarshalContext(ctx, r.ToNative(),
		yaml.Indent(indent),
		yaml.IndentSequence(true),
	)
	if err != nil {
		return err
	}

	_, err = w.Write(b)

	return err
}
