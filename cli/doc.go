// Package cli contains the command line interface for stache.
//
// # Usage
//
//	stache [flags] [compile] [source...]
//	stache check [source...]
//	stache init [--force]
//	stache repl
//
// compile is the default command, so "stache page.html" compiles page.html
// and writes its descriptor tree to stdout as JSON.
//
// # Configuration
//
// Flags may be given in config.yaml (or config.json) in the user
// configuration directory, for example ~/.config/stache/config.yaml:
//
//	log-level: debug
//	strip-comments: false
//	partials: [~/templates/partials]
//
// Command-line flags override the file. "stache init" writes the current
// values as a starting point.
//
// # Partials
//
// Partials referenced with {{>name}} and not defined inline are looked up as
// name.html, name.stache, or name.mustache in each --partials directory and
// then in each directory listed in $STACHE_PARTIALS.
//
// # Logging Options
//
//   - --log-level: minimum level (trace, debug, info, warn, error)
//   - --log-format: record encoding (text, json)
//   - --log-time-layout: timestamp layout (RFC3339, Kitchen, none, ...)
//   - --log-caller: include the source location
//   - --log-pretty: colorize output for terminals
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o stache .
//
//   - --pprof-mode: allocs, block, clock, cpu, goroutine, heap, mem, mutex,
//     thread, or trace
//   - --pprof-dir: profile output directory (default ~/.cache/stache/pprof)
package cli
