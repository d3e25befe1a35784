package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSocketPathPrecedence(t *testing.T) {
	t.Setenv("MPRISBRIDGE_SOCKET", "/custom/bridge.sock")
	t.Setenv("MPRISBRIDGE_RUNTIME_DIR", "/custom-dir")
	if got := SocketPath(); got != "/custom/bridge.sock" {
		t.Fatalf("explicit socket must win, got %q", got)
	}

	t.Setenv("MPRISBRIDGE_SOCKET", "")
	if got := SocketPath(); got != filepath.Join("/custom-dir", SocketBaseName) {
		t.Fatalf("runtime dir override ignored, got %q", got)
	}
}

func TestPIDFileRoundtrip(t *testing.T) {
	t.Setenv("MPRISBRIDGE_RUNTIME_DIR", t.TempDir())

	if _, err := RunningPID(); !os.IsNotExist(err) {
		t.Fatalf("expected missing pid file, got %v", err)
	}
	if err := WritePID(4242); err != nil {
		t.Fatalf("WritePID: %v", err)
	}
	pid, err := RunningPID()
	if err != nil || pid != 4242 {
		t.Fatalf("RunningPID = %d, %v", pid, err)
	}
	if err := RemovePID(); err != nil {
		t.Fatalf("RemovePID: %v", err)
	}
	if err := RemovePID(); err != nil {
		t.Fatalf("RemovePID must tolerate a missing file: %v", err)
	}
}
