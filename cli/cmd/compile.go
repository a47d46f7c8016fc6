package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ardnew/mung"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stache/log"
	"github.com/ardnew/stache/pkg"
	"github.com/ardnew/stache/tmpl"
)

// partialExtensions are tried in order when resolving an external partial.
var partialExtensions = []string{".html", ".stache", ".mustache"}

// Compile compiles templates to their descriptor form.
type Compile struct {
	Dialect `embed:""`

	Format   string   `default:"json" enum:"json,yaml" help:"Output format (${enum})"                  short:"f"`
	Indent   int      `default:"2"                     help:"Indent width; 0 writes compact JSON"     short:"i"`
	Partials []string `help:"Directories searched for external partials" placeholder:"DIR" short:"p" type:"path"`
	Output   string   `default:"-"                     help:"Output file or '-' for stdout"           short:"o"`

	Sources []string `arg:"" default:"-" help:"Template files or '-' for stdin" optional:""`

	stdout io.Writer
}

// Run executes the compile command.
func (c *Compile) Run(ctx context.Context) error {
	opts, err := c.options(log.Default())
	if err != nil {
		return err
	}

	srcs, err := openSources(c.Sources)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	search := c.searchPath()

	results := make([]*tmpl.Result, 0, len(srcs))

	for _, src := range srcs {
		r, err := tmpl.ParseReader(ctx, src, opts...)
		if err != nil {
			return pkg.ErrCompile.Wrap(err, pkg.MakeErrorf("%s", src.name))
		}

		if err := resolvePartials(ctx, r, search, opts); err != nil {
			return err
		}

		log.DebugContext(ctx, "compiled",
			slog.String("source", src.name),
			slog.Int("nodes", len(r.Main)),
			slog.Int("partials", len(r.Partials)),
			slog.Int("expressions", len(r.Expressions)),
		)

		results = append(results, r)
	}

	out, err := createOutput(c.Output, orDefault(c.stdout, os.Stdout))
	if err != nil {
		return err
	}
	defer out.Close()

	if len(results) == 1 {
		err = c.write(ctx, out, results[0])
	} else {
		all := make(map[string]any, len(results))
		for i, r := range results {
			all[srcs[i].name] = r.ToNative()
		}

		err = c.write(ctx, out, all)
	}

	if err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	return nil
}

// write encodes v to w in the selected format.
func (c *Compile) write(ctx context.Context, w io.Writer, v any) error {
	if r, ok := v.(*tmpl.Result); ok {
		if c.Format == "yaml" {
			return r.FormatYAML(ctx, w, c.Indent)
		}

		return r.FormatJSON(w, c.Indent)
	}

	if c.Format == "yaml" {
		indent := c.Indent
		if indent <= 0 {
			indent = tmpl.DefaultIndent
		}

		b, err := yaml.MarshalContext(ctx, v, yaml.Indent(indent), yaml.IndentSequence(true))
		if err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

		_, err = w.Write(b)

		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if c.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", c.Indent))
	}

	return enc.Encode(v)
}

// searchPath returns the partial directories: --partials first, then the
// STACHE_PARTIALS list. Entries that are not directories are dropped and
// duplicates keep their first position.
func (c *Compile) searchPath() []string {
	sep := string(os.PathListSeparator)

	items := append(slices.Clone(c.Partials),
		filepath.SplitList(os.Getenv(pkg.EnvName(PartialsEnv)))...)

	merged := mung.Make(
		mung.WithSubjectItems(""),
		mung.WithDelim(sep),
		mung.WithPrefixItems(items...),
		mung.WithFilter(isDir),
	).String()

	var dirs []string

	for _, dir := range strings.Split(merged, sep) {
		if dir == "" || slices.Contains(dirs, dir) || !isDir(dir) {
			continue
		}

		dirs = append(dirs, dir)
	}

	return dirs
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// findPartial returns the first file named name with a known template
// extension in dirs.
func findPartial(dirs []string, name string) (string, bool) {
	for _, dir := range dirs {
		for _, ext := range partialExtensions {
			path := filepath.Join(dir, name+ext)

			info, err := os.Stat(path)
			if err == nil && info.Mode().IsRegular() {
				return path, true
			}
		}
	}

	return "", false
}

// resolvePartials compiles every external partial that r references and that
// exists in dirs, adding it to r.Partials. Partials found this way may
// reference others, so lookup repeats until no new name resolves. Names that
// cannot be found are left for the runtime to provide.
func resolvePartials(
	ctx context.Context,
	r *tmpl.Result,
	dirs []string,
	opts []tmpl.Option,
) error {
	if len(dirs) == 0 {
		return nil
	}

	missing := make(map[string]struct{})

	for {
		added := 0

		for _, name := range r.PartialRefs() {
			if _, ok := missing[name]; ok {
				continue
			}

			path, ok := findPartial(dirs, name)
			if !ok {
				missing[name] = struct{}{}

				log.DebugContext(ctx, "external partial unresolved",
					slog.Any("error", ErrPartialNotFound.With(slog.String("name", name))))

				continue
			}

			p, err := compileFile(ctx, path, opts)
			if err != nil {
				return err
			}

			if r.Partials == nil {
				r.Partials = make(map[string]tmpl.Fragment)
			}

			if r.Expressions == nil && len(p.Expressions) > 0 {
				r.Expressions = make(map[string]*tmpl.Expression)
			}

			r.Partials[name] = p.Main
			maps.Copy(r.Partials, p.Partials)
			maps.Copy(r.Expressions, p.Expressions)

			log.DebugContext(ctx, "external partial resolved",
				slog.String("name", name),
				slog.String("path", path),
			)

			added++
		}

		if added == 0 {
			return nil
		}
	}
}

func compileFile(ctx context.Context, path string, opts []tmpl.Option) (*tmpl.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkg.ErrReadInput.Wrap(err)
	}
	defer f.Close()

	r, err := tmpl.ParseReader(ctx, f, opts...)
	if err != nil {
		return nil, pkg.ErrCompile.Wrap(err, pkg.MakeErrorf("%s", path))
	}

	return r, nil
}
