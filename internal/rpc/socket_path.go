//go:build !windows

package rpc

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// MaxUnixSocketPath is the longest socket path accepted on every
// supported platform. macOS caps sun_path at 104 bytes including the
// terminator, Linux at 108; 103 is safe for both.
const MaxUnixSocketPath = 103

// Sockets that would exceed the limit move to /tmp, which stays short
// on every platform ($TMPDIR on macOS lives under /var/folders and is
// far too long).
const tmpDir = "/tmp"

// SocketPath returns the daemon socket path for a workspace. The
// natural location is <workspace>/.taskdeck/td.sock; workspaces whose
// path would overflow the Unix socket limit get a deterministic
// /tmp/taskdeck-{hash}/td.sock instead, so the same workspace always
// maps to the same socket.
func SocketPath(workspacePath string) string {
	natural := filepath.Join(workspacePath, ".taskdeck", "td.sock")
	if len(natural) <= MaxUnixSocketPath {
		return natural
	}

	canonical := workspacePath
	if resolved, err := filepath.EvalSymlinks(workspacePath); err == nil {
		canonical = resolved
	}
	hash := sha256.Sum256([]byte(canonical))
	dir := filepath.Join(tmpDir, "taskdeck-"+hex.EncodeToString(hash[:4]))
	return filepath.Join(dir, "td.sock")
}

// EnsureSocketDir creates the socket's parent directory when it is one
// of our /tmp fallbacks. Workspace .taskdeck directories are expected
// to exist already.
func EnsureSocketDir(socketPath string) error {
	dir := filepath.Dir(socketPath)
	if strings.HasPrefix(dir, filepath.Join(tmpDir, "taskdeck-")) {
		return os.MkdirAll(dir, 0o700)
	}
	return nil
}

// CleanupSocket removes the socket file, and the /tmp fallback
// directory when we created one.
func CleanupSocket(socketPath string) error {
	_ = os.Remove(socketPath)
	dir := filepath.Dir(socketPath)
	if strings.HasPrefix(dir, filepath.Join(tmpDir, "taskdeck-")) {
		return os.Remove(dir)
	}
	return nil
}
