package cmd

import (
	"os"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/pkg"
	"github.com/ardnew/stache/tmpl"
)

// Dialect holds the compile option flags shared by every command.
//
// An options file is applied first. Flags then override it, but only those
// changed from their defaults, so a file setting survives an unset flag.
type Dialect struct {
	Delimiters         []string `help:"Interpolator delimiters as OPEN,CLOSE"             placeholder:"OPEN,CLOSE" short:"d"`
	TripleDelimiters   []string `help:"Unescaped interpolator delimiters as OPEN,CLOSE"   placeholder:"OPEN,CLOSE"`
	Sanitize           bool     `help:"Drop unsafe elements and event attributes"`
	StripComments      bool     `default:"true" help:"Discard HTML comments"                                   negatable:""`
	InterpolateScript  bool     `default:"true" help:"Recognize mustaches inside <script> bodies"              negatable:""`
	InterpolateStyle   bool     `default:"true" help:"Recognize mustaches inside <style> bodies"               negatable:""`
	PreserveWhitespace bool     `help:"Keep whitespace runs in text"`
	OptionsFile        string   `help:"Read compile options from a YAML or JSON file" name:"options" type:"existingfile"`
}

// options returns the tmpl options selected by d. Trace output from the
// compiler goes to logger.
func (d *Dialect) options(logger log.Logger) ([]tmpl.Option, error) {
	opts := []tmpl.Option{}

	if d.OptionsFile != "" {
		data, err := os.ReadFile(d.OptionsFile)
		if err != nil {
			return nil, pkg.ErrReadConfig.Wrap(err)
		}

		o, err := tmpl.DecodeOptions(data)
		if err != nil {
			return nil, pkg.ErrReadConfig.Wrap(err)
		}

		opts = append(opts, tmpl.WithOptions(o))
	}

	if len(d.Delimiters) > 0 {
		if len(d.Delimiters) != 2 {
			return nil, ErrInvalidDelimiters.Wrap(
				pkg.MakeErrorf("--delimiters %q", d.Delimiters))
		}

		opts = append(opts, tmpl.WithDelimiters(d.Delimiters[0], d.Delimiters[1]))
	}

	if len(d.TripleDelimiters) > 0 {
		if len(d.TripleDelimiters) != 2 {
			return nil, ErrInvalidDelimiters.Wrap(
				pkg.MakeErrorf("--triple-delimiters %q", d.TripleDelimiters))
		}

		opts = append(opts,
			tmpl.WithTripleDelimiters(d.TripleDelimiters[0], d.TripleDelimiters[1]))
	}

	if d.Sanitize {
		opts = append(opts, tmpl.WithSanitize(tmpl.SanitizeDefault()))
	}

	if !d.StripComments {
		opts = append(opts, tmpl.WithStripComments(false))
	}

	if !d.InterpolateScript {
		opts = append(opts, func(o *tmpl.Options) { o.Interpolate.Script = &d.InterpolateScript })
	}

	if !d.InterpolateStyle {
		opts = append(opts, func(o *tmpl.Options) { o.Interpolate.Style = &d.InterpolateStyle })
	}

	if d.PreserveWhitespace {
		opts = append(opts, tmpl.WithPreserveWhitespace(true))
	}

	return append(opts, tmpl.WithLogger(logger)), nil
}
