package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func withVersion(t *testing.T, v, c string) {
	t.Helper()
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = v, c
}

func TestFill(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		info        debug.BuildInfo
		wantVersion string
		wantCommit  string
	}{
		{
			name: "go install build",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "v1.4.0"},
			},
			wantVersion: "v1.4.0",
		},
		{
			name: "checkout build",
			info: debug.BuildInfo{
				Main: debug.Module{Version: "(devel)"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.modified", Value: "true"},
					{Key: "vcs.time", Value: "2025-03-04T10:00:00Z"},
				},
			},
			wantVersion: "dev-20250304",
			wantCommit:  "0123456-dirty",
		},
		{
			name:    "ldflags win",
			version: "v2.0.0",
			commit:  "abc123",
			info: debug.BuildInfo{
				Main:     debug.Module{Version: "v1.4.0"},
				Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fffffff"}},
			},
			wantVersion: "v2.0.0",
			wantCommit:  "abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withVersion(t, tt.version, tt.commit)
			fill(&tt.info)

			if Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", Version, tt.wantVersion)
			}
			if Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", Commit, tt.wantCommit)
			}
		})
	}
}

func TestFullAndGet(t *testing.T) {
	withVersion(t, "v1.0.0", "abc1234")

	if got, want := Full(), "v1.0.0 (commit: abc1234)"; got != want {
		t.Errorf("Full() = %q, want %q", got, want)
	}

	info := Get()
	if info.Version != "v1.0.0" || info.Commit != "abc1234" {
		t.Errorf("Get() = %+v", info)
	}
	if !strings.Contains(info.Go, "go") {
		t.Errorf("Get().Go = %q, want a go version", info.Go)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("Get().Platform = %q, want os/arch", info.Platform)
	}
}
