// Package daemon assembles and runs the bridge process: event
// ingestion, selection, the follower supervisor, state publishing and
// the control socket.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"mprisbridge/internal/config"
	"mprisbridge/internal/ipc"
)

// SocketBaseName is the UNIX control socket filename.
const SocketBaseName = "mprisbridge.sock"

const pidFileName = "mprisbridge.pid"

// SocketPath returns the control socket location. Order of precedence:
// 1) MPRISBRIDGE_SOCKET (full path)
// 2) MPRISBRIDGE_RUNTIME_DIR as the parent directory
// 3) the per-user runtime dir (XDG on linux, /tmp elsewhere)
func SocketPath() string {
	if explicit := os.Getenv("MPRISBRIDGE_SOCKET"); explicit != "" {
		return explicit
	}
	if rd := os.Getenv("MPRISBRIDGE_RUNTIME_DIR"); rd != "" {
		return filepath.Join(rd, SocketBaseName)
	}
	if runtime.GOOS == "linux" {
		return filepath.Join(config.RuntimeDir(), "mprisbridge", SocketBaseName)
	}
	// Keep the path short to stay under the sun_path limit.
	return filepath.Join("/tmp", fmt.Sprintf("mprisbridge-%d.sock", os.Getuid()))
}

// EnsureRuntimeDir creates the socket's parent directory.
func EnsureRuntimeDir() error {
	return os.MkdirAll(filepath.Dir(SocketPath()), 0o700)
}

// PIDPath returns the pid file location, next to the socket.
func PIDPath() string {
	return filepath.Join(filepath.Dir(SocketPath()), pidFileName)
}

// WritePID stores pid into the pid file.
func WritePID(pid int) error {
	if err := EnsureRuntimeDir(); err != nil {
		return err
	}
	return os.WriteFile(PIDPath(), []byte(fmt.Sprintf("%d\n", pid)), 0o600)
}

// RemovePID removes the pid file if it exists.
func RemovePID() error {
	if err := os.Remove(PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RunningPID returns the pid stored in the pid file.
func RunningPID() (int, error) {
	data, err := os.ReadFile(PIDPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// IsRunning reports whether a live daemon answers on the socket.
func IsRunning() bool {
	if _, err := os.Stat(SocketPath()); err != nil {
		return false
	}
	return ipc.Ping(SocketPath())
}
