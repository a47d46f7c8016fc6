package cmd

import (
	"context"

	"github.com/ardnew/stache/cli/cmd/repl"
	"github.com/ardnew/stache/log"
)

// Repl starts an interactive compiler.
type Repl struct {
	Dialect `embed:""`

	Format string `default:"json" enum:"json,yaml" help:"Initial output format (${enum})" short:"f"`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	logger := log.Default()

	opts, err := r.options(logger)
	if err != nil {
		return err
	}

	return repl.Run(ctx, repl.Config{
		Options:       opts,
		Delimiters:    r.Delimiters,
		Sanitize:      r.Sanitize,
		StripComments: r.StripComments,
		Format:        r.Format,
		HistoryPath:   kongVar(ctx, HistoryIdentifier),
		Logger:        logger,
	})
}
