package rpc

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskdeck/taskdeck/internal/types"
)

func TestCompatibleVersions(t *testing.T) {
	tests := []struct {
		client string
		server string
		want   bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.3", "1.9.0", true},
		{"1.0.0", "2.0.0", false},
		{"2.1.0", "1.4.2", false},
		{"dev", "1.0.0", true},
		{"1.0.0", "dev", true},
		{"", "1.0.0", true},
		{"1.0.0", "", true},
		{"v1.0.0", "1.0.0", true},
		{"garbage", "1.0.0", false},
	}
	for _, tc := range tests {
		if got := CompatibleVersions(tc.client, tc.server); got != tc.want {
			t.Errorf("CompatibleVersions(%q, %q) = %v, want %v", tc.client, tc.server, got, tc.want)
		}
	}
}

func TestSocketPathShortWorkspace(t *testing.T) {
	got := SocketPath("/home/user/project")
	want := filepath.Join("/home/user/project", ".taskdeck", "td.sock")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestSocketPathLongWorkspaceFallsBackToTmp(t *testing.T) {
	long := "/" + strings.Repeat("deeply-nested-directory/", 8) + "workspace"
	got := SocketPath(long)
	if len(got) > MaxUnixSocketPath {
		t.Errorf("Expected fallback under the socket path limit, got %d bytes", len(got))
	}
	if !strings.HasPrefix(got, "/tmp/taskdeck-") || !strings.HasSuffix(got, "/td.sock") {
		t.Errorf("Expected deterministic /tmp fallback, got %s", got)
	}

	// The same workspace always maps to the same socket.
	if again := SocketPath(long); again != got {
		t.Errorf("Expected deterministic path, got %s then %s", got, again)
	}
}

func TestErrorKind(t *testing.T) {
	if kind := ErrorKind("NotFound: task 7 does not exist"); kind != types.KindNotFound {
		t.Errorf("Expected NotFound, got %s", kind)
	}
	if kind := ErrorKind("no colon in this message"); kind != types.KindFatal {
		t.Errorf("Expected Fatal fallback, got %s", kind)
	}
}
