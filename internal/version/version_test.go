package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestCollectPrefersLinkerValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"
	info := Collect()
	if info.Version != "1.2.3" || info.GitCommit != "abc123def456" || info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Fatalf("unexpected info %+v", info)
	}

	Version = ""
	if got := Collect().Version; got != "dev" {
		t.Fatalf("empty version should read as dev, got %q", got)
	}
}

func TestColorize(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	tests := []struct {
		in   string
		want string
	}{
		{"0.3.0-dev", "0.3.0-dev"},
		{"1.2.3", "1.2.3"},
		{"nightly", "nightly"},
	}
	for _, tt := range tests {
		if got := Colorize(tt.in); got != tt.want {
			t.Errorf("Colorize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
