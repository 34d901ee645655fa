package apiclient

import (
	"runtime"
	"runtime/debug"
)

// Version is the library release, overridable with -ldflags -X.
var Version = "v0.4.0"

// GetVersion describes this build: release, VCS revision when the binary was
// built from a checkout, and Go toolchain.
func GetVersion() string {
	v := "apiclient " + Version
	if rev := vcsRevision(); rev != "" {
		v += " (" + rev + ")"
	}
	return v + " " + runtime.Version()
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// UserAgent is the default User-Agent header value.
func UserAgent() string {
	return "celaest-apiclient/" + Version
}
