package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func saveAndRestore() func() {
	origVersion, origCommit, origBranch, origBuildTime := Version, GitCommit, GitBranch, BuildTime
	return func() {
		Version = origVersion
		GitCommit = origCommit
		GitBranch = origBranch
		BuildTime = origBuildTime
	}
}

func TestGetDefaults(t *testing.T) {
	defer saveAndRestore()()
	Version, GitCommit, GitBranch, BuildTime = "dev", "", "", ""

	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected dev, got %q", info.Version)
	}
	if info.IsRelease {
		t.Error("dev build should not be a release")
	}
}

func TestGetFromLdflags(t *testing.T) {
	defer saveAndRestore()()
	Version = "v1.4.0"
	GitCommit = "abcdef0123456"
	GitBranch = "feature/retry"
	BuildTime = "2026-01-02T03:04:05Z"

	info := Get()
	if !info.IsRelease {
		t.Error("expected tagged build to be a release")
	}
	if info.GitCommit != "abcdef0" {
		t.Errorf("expected commit to be shortened, got %q", info.GitCommit)
	}
	if info.BuildDate.Year() != 2026 {
		t.Errorf("expected build date from BuildTime, got %v", info.BuildDate)
	}
	if !strings.HasPrefix(info.String(), "v1.4.0-abcdef0 (feature/retry) built 2026-01-02T03:04:05Z") {
		t.Errorf("unexpected String() %q", info.String())
	}
}

func TestApplyBuildSettings(t *testing.T) {
	var info Info
	applyBuildSettings(&info, []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789"},
		{Key: "vcs.modified", Value: "true"},
		{Key: "vcs.time", Value: "2025-05-06T07:08:09Z"},
	})
	if info.GitCommit != "0123456" {
		t.Errorf("expected short revision, got %q", info.GitCommit)
	}
	if !info.IsDirty {
		t.Error("expected dirty flag")
	}
	if !info.BuildDate.Equal(time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)) {
		t.Errorf("unexpected build date %v", info.BuildDate)
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "v1", GitCommit: "abc"}, "v1-abc"},
		{Info{Version: "v1", GitCommit: "abc", IsDirty: true}, "v1-abc-dirty"},
	}
	for _, tc := range tests {
		if got := tc.info.Short(); got != tc.want {
			t.Errorf("Short() = %q, want %q", got, tc.want)
		}
	}
}
