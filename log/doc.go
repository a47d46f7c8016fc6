// Package log provides leveled, structured logging built on [log/slog].
//
// A [Logger] is a value type configured once with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("RFC3339Nano"))
//
// Loggers are immutable. [Logger.Wrap] derives a reconfigured copy and
// [Logger.With] derives a copy that attaches attributes to every record.
// The zero Logger discards everything, which lets libraries accept a Logger
// without requiring one.
//
// # Levels
//
// Five levels are defined. [LevelTrace] sits below [LevelDebug] and is used
// for per-construct diagnostics such as the template compiler's record of
// each tag it consumes; it is rendered as "TRACE" rather than slog's
// "DEBUG-4".
//
// # Pretty Output
//
// [WithPretty] selects a colorized handler for terminals. Colors are chosen
// by the output's capabilities, so the same configuration writes plain text
// to files and pipes.
//
// # Package Logger
//
// Package-level functions such as [Info] and [WarnContext] write through a
// shared logger reconfigured by [Config]. Functions without a context
// argument use [DefaultContextProvider].
package log
