package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MPRISBRIDGE_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Selection.Priority; len(got) != 4 || got[0] != "firefox" {
		t.Fatalf("unexpected default priority: %v", got)
	}
	if !cfg.Selection.RememberLast {
		t.Fatal("remember_last should default to true")
	}
	if cfg.Selection.Fallback != "any" {
		t.Fatalf("unexpected fallback: %q", cfg.Selection.Fallback)
	}
	if cfg.Debounce.EnumerateMS != 300 || cfg.Debounce.StatusMS != 250 {
		t.Fatalf("unexpected debounce defaults: %+v", cfg.Debounce)
	}
	if cfg.Output.SnapshotPath != "/run/user/1000/mprisbridge/state.json" {
		t.Fatalf("snapshot path not expanded: %q", cfg.Output.SnapshotPath)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[selection]
priority = ["mpv"]
remember_last = false
fallback = "none"
exclude = ["chromium"]

[debounce]
enumerate_ms = 500

[presentation]
truncate_title = 0
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MPRISBRIDGE_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Selection.Priority) != 1 || cfg.Selection.Priority[0] != "mpv" {
		t.Fatalf("priority not read: %v", cfg.Selection.Priority)
	}
	if cfg.Selection.RememberLast {
		t.Fatal("remember_last should be false")
	}
	if cfg.Selection.Fallback != "none" {
		t.Fatalf("fallback not read: %q", cfg.Selection.Fallback)
	}
	if cfg.Debounce.EnumerateMS != 500 {
		t.Fatalf("enumerate_ms not read: %d", cfg.Debounce.EnumerateMS)
	}
	if cfg.Debounce.StatusMS != 250 {
		t.Fatalf("status_ms should keep its default: %d", cfg.Debounce.StatusMS)
	}
	if cfg.Presentation.TruncateTitle != 0 {
		t.Fatalf("truncate_title should be 0: %d", cfg.Presentation.TruncateTitle)
	}
}

func TestLoadRejectsBadFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[selection]\nfallback = \"first\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MPRISBRIDGE_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid fallback")
	}
}

func TestExpandTokens(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/42")
	t.Setenv("XDG_CACHE_HOME", "/tmp/cache")

	if got := Expand("$XDG_RUNTIME_DIR/mprisbridge/x"); got != "/run/user/42/mprisbridge/x" {
		t.Fatalf("runtime dir not expanded: %q", got)
	}
	if got := Expand("$XDG_CACHE_HOME/a"); got != "/tmp/cache/a" {
		t.Fatalf("cache home not expanded: %q", got)
	}
}
