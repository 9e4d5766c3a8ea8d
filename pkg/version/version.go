// Package version holds the build version.
package version

import (
	"runtime/debug"
	"sync"
)

// Version is overridden at build time with -ldflags "-X aerosim/pkg/version.Version=...".
var Version = "v0.1.0-dev"

var revision = sync.OnceValue(func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	return vcsRevision(info.Settings)
})

// Revision returns the short VCS revision stamped by the go tool, or "" outside a checkout.
func Revision() string { return revision() }

// String is Version with the revision appended when known, e.g. v0.1.0-dev+3f2a9c1d.
func String() string {
	if r := Revision(); r != "" {
		return Version + "+" + r
	}
	return Version
}

func vcsRevision(settings []debug.BuildSetting) string {
	var rev string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 8 {
		rev = rev[:8]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
