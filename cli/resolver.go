package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stache/log"
)

// resolve returns a [kong.ConfigurationLoader] for YAML configuration files.
// JSON files decode the same way.
//
// Keys are flag names. Nested mappings are joined with "-", so the following
// documents are equivalent:
//
//	log-level: debug
//	strip_comments: false
//
//	log:
//	  level: debug
//	strip-comments: false
//
// A file that cannot be decoded is reported and otherwise ignored, which
// keeps "init --force" usable for replacing it. Command-line flags override
// configured values.
func resolve(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		err := yaml.NewDecoder(r).DecodeContext(ctx, &doc)
		if err != nil && !errors.Is(err, io.EOF) {
			log.WarnContext(ctx, "ignoring configuration",
				slog.String("error", err.Error()))

			return config{}, nil
		}

		cfg := make(config)
		cfg.flatten("", doc)

		return cfg, nil
	}
}

// config implements [kong.Resolver] over a flattened configuration file.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver]. Flag names are matched with hyphens or
// underscores.
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	for _, name := range []string{flag.Name, strings.ReplaceAll(flag.Name, "-", "_")} {
		if v, ok := c[name]; ok {
			return v, nil
		}
	}

	return nil, nil
}

func (c config) flatten(prefix string, doc map[string]any) {
	for key, val := range doc {
		if prefix != "" {
			key = prefix + "-" + key
		}

		if sub, ok := val.(map[string]any); ok {
			c.flatten(key, sub)

			continue
		}

		if v := flagValue(val); v != nil {
			c[key] = v
		}
	}
}

// flagValue converts a decoded YAML value to a form kong can map. Numbers
// become strings, since kong parses numeric flags from text.
func flagValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case bool, string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		items := make([]any, 0, len(v))
		for _, item := range v {
			if s := flagValue(item); s != nil {
				items = append(items, fmt.Sprint(s))
			}
		}

		return items
	default:
		return fmt.Sprint(v)
	}
}
