// Package buildinfo carries build-time metadata injected through -ldflags.
package buildinfo

import "runtime/debug"

// UnknownValue is reported for metadata that was not injected at build time.
const UnknownValue = "unknown"

// BuildInfo provides read access to build-time metadata.
type BuildInfo interface {
	Version() string
	BuildDate() string
	Revision() string
}

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	version   string
	buildDate string
	revision  string
}

// NewContext creates build metadata. An empty revision is filled from the VCS
// stamp the Go toolchain embeds, when present.
func NewContext(version, buildDate, revision string) *Context {
	if revision == "" {
		revision = vcsRevision()
	}
	return &Context{version: version, buildDate: buildDate, revision: revision}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return ""
}

// Version returns the release version.
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp.
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Revision returns the source revision, shortened to 12 characters.
func (c *Context) Revision() string {
	if c == nil || c.revision == "" {
		return UnknownValue
	}
	if len(c.revision) > 12 {
		return c.revision[:12]
	}
	return c.revision
}
