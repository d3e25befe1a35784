package art

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"mprisbridge/internal/config"
)

func testCfg(t *testing.T) config.ArtConfig {
	t.Helper()
	dir := t.TempDir()
	defaultImage := filepath.Join(dir, "default.png")
	if err := os.WriteFile(defaultImage, []byte("default"), 0o600); err != nil {
		t.Fatal(err)
	}
	return config.ArtConfig{
		Enabled:      true,
		DownloadHTTP: true,
		TimeoutMS:    1000,
		CacheDir:     filepath.Join(dir, "cache"),
		DefaultImage: defaultImage,
		CurrentPath:  filepath.Join(dir, "current"),
	}
}

func readCurrent(t *testing.T, r *Resolver) string {
	t.Helper()
	data, err := os.ReadFile(r.cfg.CurrentPath)
	if err != nil {
		t.Fatalf("current cover unreadable: %v", err)
	}
	return string(data)
}

func TestResolveLocalFile(t *testing.T) {
	cfg := testCfg(t)
	src := filepath.Join(t.TempDir(), "cover.jpg")
	if err := os.WriteFile(src, []byte("local-art"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(cfg)
	got := r.Resolve(context.Background(), "file://"+src)
	if got != cfg.CurrentPath {
		t.Fatalf("unexpected path: %q", got)
	}
	if readCurrent(t, r) != "local-art" {
		t.Fatal("local art not adopted")
	}
}

func TestResolveRemoteCachesByHash(t *testing.T) {
	cfg := testCfg(t)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		_, _ = w.Write([]byte("remote-art"))
	}))
	defer srv.Close()

	r := NewResolver(cfg)
	url := srv.URL + "/cover.jpg"

	if got := r.Resolve(context.Background(), url); got != cfg.CurrentPath {
		t.Fatalf("unexpected path: %q", got)
	}
	if readCurrent(t, r) != "remote-art" {
		t.Fatal("remote art not adopted")
	}

	// Second resolve must reuse the cache entry.
	r.Resolve(context.Background(), url)
	if hits != 1 {
		t.Fatalf("expected one fetch, got %d", hits)
	}
}

func TestResolveFetchFailureFallsBack(t *testing.T) {
	cfg := testCfg(t)
	r := NewResolver(cfg)
	r.fetch = func(ctx context.Context, url, target string) error {
		return errors.New("timeout")
	}
	if got := r.Resolve(context.Background(), "https://unreachable.example/x.jpg"); got != cfg.CurrentPath {
		t.Fatalf("unexpected path: %q", got)
	}
	if readCurrent(t, r) != "default" {
		t.Fatal("fallback must adopt the default image")
	}
}

func TestResolveUnknownSchemeFallsBack(t *testing.T) {
	cfg := testCfg(t)
	r := NewResolver(cfg)
	r.Resolve(context.Background(), "spotify:image:abc")
	if readCurrent(t, r) != "default" {
		t.Fatal("unknown scheme must adopt the default image")
	}
}

func TestResolveMissingLocalFileFallsBack(t *testing.T) {
	cfg := testCfg(t)
	r := NewResolver(cfg)
	r.Resolve(context.Background(), "file:///does/not/exist.png")
	if readCurrent(t, r) != "default" {
		t.Fatal("missing local file must adopt the default image")
	}
}

func TestResolveSymlinkMode(t *testing.T) {
	cfg := testCfg(t)
	cfg.UseSymlink = true
	src := filepath.Join(t.TempDir(), "cover.jpg")
	if err := os.WriteFile(src, []byte("linked"), 0o600); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(cfg)
	r.Resolve(context.Background(), "file://"+src)

	info, err := os.Lstat(cfg.CurrentPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("expected a symlink")
	}
	if readCurrent(t, r) != "linked" {
		t.Fatal("symlink points at wrong file")
	}
}
