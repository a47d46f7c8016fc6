// Package cmd implements the stache subcommands: compile, check, init, and
// repl.
//
// Every command shares the [Dialect] flags, which map onto tmpl.Options.
// Commands read the kong context placed on their context.Context by
// [WithContext] to find the configuration and history paths.
package cmd

var (
	// HistoryIdentifier is the kong variable identifier containing the path
	// to the REPL history file.
	HistoryIdentifier = "history"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the configuration file written by init.
	ConfigIdentifier = "config"

	// PartialsEnv is the environment variable holding additional partial
	// directories, separated by the OS path list separator.
	PartialsEnv = "partials"
)
