// Package profile runs the stache process under [github.com/pkg/profile].
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	stache --pprof-mode cpu compile page.html
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op, so
// callers need no conditional code of their own.
//
// Profiles are written to [Profiler.Path], which the CLI defaults to
// $XDG_CACHE_HOME/stache/pprof. Inspect them with go tool pprof:
//
//	go tool pprof -http=: ~/.cache/stache/pprof/cpu.pprof
//
// Compiling large templates is dominated by the converter chain and by
// expression parsing, so the cpu and allocs modes are the usual starting
// points.
package profile

// Tag is the build tag that enables profiling.
const Tag = `pprof`
