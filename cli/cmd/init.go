package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating the default configuration file.
const defaultConfigIndent = 2

// Init generates a configuration file with current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) error {
	ktx := kongContextFrom(ctx)

	confPath := kongVar(ctx, ConfigIdentifier)
	if ktx == nil || confPath == "" {
		panic("internal error: configuration path undefined")
	}

	_, err := os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	b, err := yaml.MarshalWithOptions(i.buildConfig(ktx),
		yaml.Indent(defaultConfigIndent),
		yaml.IndentSequence(true),
	)
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(ErrYAMLMarshal.Wrap(err))
	}

	if err := os.WriteFile(confPath, b, 0o644); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
		slog.Int("bytes", len(b)),
	)

	return nil
}

// ignoreFlag reports whether a flag is left out of the configuration file.
func ignoreFlag(flag *kong.Flag) bool {
	if flag.Hidden || flag.Name == "force" || flag.Name == "version" {
		return true
	}

	return slices.ContainsFunc([]string{"help", profile.Tag}, func(s string) bool {
		return strings.HasPrefix(flag.Name, s)
	})
}

// buildConfig collects one entry per configurable flag. Global flags carry
// their parsed values. Command flags carry their declared defaults, since
// only the init command was parsed.
func (i *Init) buildConfig(ktx *kong.Context) yaml.MapSlice {
	var (
		doc  yaml.MapSlice
		seen = make(map[string]struct{})
	)

	add := func(flag *kong.Flag, val any) {
		if _, dup := seen[flag.Name]; dup || ignoreFlag(flag) || val == nil {
			return
		}

		seen[flag.Name] = struct{}{}
		doc = append(doc, yaml.MapItem{Key: flag.Name, Value: val})
	}

	for _, flag := range ktx.Model.Flags {
		add(flag, configValue(ktx.FlagValue(flag)))
	}

	var walk func(node *kong.Node)

	walk = func(node *kong.Node) {
		for _, child := range node.Children {
			for _, flag := range child.Flags {
				add(flag, defaultValue(flag))
			}

			walk(child)
		}
	}

	walk(ktx.Model.Node)

	return doc
}

// defaultValue returns the declared default of flag, or nil if it has none.
func defaultValue(flag *kong.Flag) any {
	if flag.Default == "" {
		return nil
	}

	if flag.IsBool() {
		if b, err := strconv.ParseBool(flag.Default); err == nil {
			return b
		}
	}

	if n, err := strconv.Atoi(flag.Default); err == nil {
		return n
	}

	return flag.Default
}

// configValue converts a parsed flag value to a YAML value, or nil if the
// value is empty.
func configValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil

	case bool, int, int64, uint, uint64, float64:
		return v

	case string:
		if v == "" {
			return nil
		}

		return v

	case []string:
		if len(v) == 0 {
			return nil
		}

		return v

	default:
		if s := fmt.Sprint(v); s != "" {
			return s
		}

		return nil
	}
}
