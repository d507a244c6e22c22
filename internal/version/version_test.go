package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestVcsRevision(t *testing.T) {
	tests := []struct {
		name string
		read func() (*debug.BuildInfo, bool)
		want string
	}{
		{
			name: "no build info",
			read: func() (*debug.BuildInfo, bool) { return nil, false },
			want: "unknown",
		},
		{
			name: "revision embedded",
			read: func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Settings: []debug.BuildSetting{
					{Key: "vcs", Value: "git"},
					{Key: "vcs.revision", Value: "0123456789abcdef"},
				}}, true
			},
			want: "0123456789abcdef",
		},
		{
			name: "no revision setting",
			read: func() (*debug.BuildInfo, bool) { return &debug.BuildInfo{}, true },
			want: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vcsRevision(tt.read); got != tt.want {
				t.Errorf("vcsRevision() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserAgentAndString(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version = "1.4.0"
	Commit = "0123456789abcdef"

	ua := UserAgent()
	if want := "attend/1.4.0 (" + runtime.GOOS + "/" + runtime.GOARCH + "; 0123456)"; ua != want {
		t.Errorf("UserAgent() = %q, want %q", ua, want)
	}
	if s := String(); !strings.HasPrefix(s, "attend 1.4.0 (commit: 0123456") {
		t.Errorf("String() = %q", s)
	}
}
