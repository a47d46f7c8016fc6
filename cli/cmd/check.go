package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/pkg"
	"github.com/ardnew/stache/tmpl"
)

// Check compiles templates and reports every failure without producing
// output.
type Check struct {
	Dialect `embed:""`

	Sources []string `arg:"" default:"-" help:"Template files or '-' for stdin" optional:""`

	stderr io.Writer
}

// Run executes the check command. Each failing source is reported with a
// snippet marking the error position, and the command fails if any did.
func (c *Check) Run(ctx context.Context) error {
	opts, err := c.options(log.Default())
	if err != nil {
		return err
	}

	srcs, err := openSources(c.Sources)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	stderr := orDefault(c.stderr, os.Stderr)
	failed := 0

	for _, src := range srcs {
		data, err := io.ReadAll(src)
		if err != nil {
			return pkg.ErrReadInput.Wrap(err, pkg.MakeErrorf("%s", src.name))
		}

		if _, err := tmpl.Parse(ctx, string(data), opts...); err != nil {
			failed++

			report := tmpl.FormatError(string(data), err)
			if !strings.HasSuffix(report, "\n") {
				report += "\n"
			}

			fmt.Fprintf(stderr, "%s: %s", src.name, report)

			continue
		}

		log.DebugContext(ctx, "check passed", slog.String("source", src.name))
	}

	if failed > 0 {
		return pkg.ErrCompile.Wrapf("%d of %d sources failed", failed, len(srcs))
	}

	return nil
}
