package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stache/pkg"
)

type contextKey struct{}

// WithContext returns a copy of ctx carrying ktx.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(contextKey{}).(*kong.Context)

	return ktx
}

// kongVar returns the named kong variable, or "" when ctx carries no kong
// context.
func kongVar(ctx context.Context, name string) string {
	ktx := kongContextFrom(ctx)
	if ktx == nil {
		return ""
	}

	return ktx.Model.Vars()[name]
}

// stdinSource names standard input on the command line.
const stdinSource = "-"

// source is one named template input.
type source struct {
	name string
	io.ReadCloser
}

// fileKey identifies a file by device and inode so that one file reached
// through different paths or symlinks is read once.
type fileKey struct {
	dev uint64
	ino uint64
}

func makeFileKey(info fs.FileInfo) (fileKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// openSources opens each path for reading in order. Duplicate paths, by
// identity rather than spelling, are opened once. Every occurrence of "-"
// collapses to a single stdin source placed last. An empty list reads stdin.
//
// On error, every source already opened is closed.
func openSources(paths []string) (_ []source, err error) {
	if len(paths) == 0 {
		paths = []string{stdinSource}
	}

	var (
		srcs  []source
		stdin bool
		seen  = make(map[fileKey]struct{})
	)

	defer func() {
		if err != nil {
			closeSources(srcs)
		}
	}()

	if info, err := os.Stdin.Stat(); err == nil {
		if key, ok := makeFileKey(info); ok {
			seen[key] = struct{}{}
		}
	}

	for _, path := range paths {
		if path == stdinSource {
			stdin = true

			continue
		}

		f, dup, err := openUnique(path, seen)
		if err != nil {
			return nil, pkg.ErrReadInput.Wrap(err)
		}

		if dup {
			continue
		}

		srcs = append(srcs, source{name: path, ReadCloser: f})
	}

	if stdin {
		srcs = append(srcs, source{name: stdinSource, ReadCloser: io.NopCloser(os.Stdin)})
	}

	return srcs, nil
}

// openUnique opens path unless its resolved file is already in seen.
func openUnique(path string, seen map[fileKey]struct{}) (*os.File, bool, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, false, err
	}

	if info.IsDir() {
		return nil, false, &fs.PathError{Op: "read", Path: path, Err: errors.New("is a directory")}
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return nil, true, nil
		}

		seen[key] = struct{}{}
	}

	f, err := os.Open(resolved)

	return f, false, err
}

func closeSources(srcs []source) {
	for _, s := range srcs {
		_ = s.Close()
	}
}

// createOutput returns the writer for path, where "-" or "" is stdout.
func createOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == stdinSource {
		return nopWriteCloser{stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, pkg.ErrWriteOutput.Wrap(err)
	}

	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}

	return w
}
