package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestLine(t *testing.T) {
	prevNoColor := color.NoColor
	color.NoColor = true
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() {
		color.NoColor = prevNoColor
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	}()

	cases := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "ksc 0.1.0-dev"},
		{"1.2.3", "abc123def4567890", "", "ksc 1.2.3 (commit abc123def456)"},
		{"1.2.3-rc.1+build.7", "abc", "2026-01-15T10:30:00Z", "ksc 1.2.3-rc.1+build.7 (commit abc, built 2026-01-15T10:30:00Z)"},
		{"nightly", "", "", "ksc nightly"},
	}
	for _, tc := range cases {
		Version, GitCommit, BuildDate = tc.version, tc.commit, tc.date
		if got := Line(); got != tc.want {
			t.Fatalf("Line() = %q, want %q", got, tc.want)
		}
	}
}
