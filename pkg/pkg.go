//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the module, embedded at build time.
var Version = strings.TrimSpace(version)

const (
	// Name is the command and module identifier. It names the binary, the
	// configuration directory, and the environment variables read by the CLI.
	Name = "stache"
	// Description is a one-line summary for help output.
	Description = "Mustache template compiler"
)

// AuthorInfo identifies an author.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}

// EnvName returns the environment variable name for key, prefixed with the
// upper-case module name. For example, EnvName("partials") is
// "STACHE_PARTIALS".
func EnvName(key string) string {
	return strings.ToUpper(Name + "_" + strings.ReplaceAll(key, "-", "_"))
}
