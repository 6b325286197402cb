// Package version reports the devmon build: an ldflags-stamped release, a
// `go install module@version` build, or a development build from a checkout.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/devmon/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/devmon/internal/version.Commit=abc123"
var (
	Version = ""
	Commit  = ""
)

// develVersion is what the toolchain reports for the main module of a checkout build
const develVersion = "(devel)"

// Info describes the running binary
type Info struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fill(info)
	}

	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fill sets whatever ldflags left empty from the toolchain's build info
func fill(info *debug.BuildInfo) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Commit = rev
		}
	}

	if Version != "" {
		return
	}
	if v := info.Main.Version; v != "" && v != develVersion {
		Version = v
		return
	}
	if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
		Version = "dev-" + t.Format("20060102")
	}
}

// Get returns the build description
func Get() Info {
	return Info{
		Version:  Version,
		Commit:   Commit,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Full returns the version with its commit, as printed by `devmon version`
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
