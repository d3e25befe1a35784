// Package art resolves cover art references into one fixed local path
// the state files can always point at.
package art

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"mprisbridge/internal/config"
)

// Resolver adopts local covers and caches remote ones. Resolution never
// fails loudly: anything that cannot be adopted becomes the default
// image so metadata publishing is never blocked on artwork.
type Resolver struct {
	cfg    config.ArtConfig
	client *http.Client

	// fetch is swapped in tests.
	fetch func(ctx context.Context, url, target string) error
}

// NewResolver builds a resolver and makes sure its directories exist.
func NewResolver(cfg config.ArtConfig) *Resolver {
	_ = os.MkdirAll(cfg.CacheDir, 0o700)
	if dir := filepath.Dir(cfg.CurrentPath); dir != "" {
		_ = os.MkdirAll(dir, 0o700)
	}
	r := &Resolver{
		cfg:    cfg,
		client: &http.Client{},
	}
	r.fetch = r.download
	return r
}

// Resolve turns an art reference into the current-cover path. file://
// references are adopted directly; http(s) ones are fetched into a
// hash-named cache entry first; everything else falls back to the
// default image.
func (r *Resolver) Resolve(ctx context.Context, ref string) string {
	if !r.cfg.Enabled {
		return r.cfg.CurrentPath
	}

	if local, ok := strings.CutPrefix(ref, "file://"); ok {
		if isFile(local) {
			if err := r.adopt(local); err == nil {
				return r.cfg.CurrentPath
			}
		}
	} else if isHTTP(ref) && r.cfg.DownloadHTTP {
		target := r.cachePath(ref)
		if !isFile(target) {
			fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.TimeoutMS)*time.Millisecond)
			err := r.fetch(fetchCtx, ref, target)
			cancel()
			if err != nil {
				_ = os.Remove(target)
			}
		}
		if isFile(target) {
			if err := r.adopt(target); err == nil {
				return r.cfg.CurrentPath
			}
		}
	}

	if err := r.adopt(r.cfg.DefaultImage); err != nil {
		return r.cfg.DefaultImage
	}
	return r.cfg.CurrentPath
}

// DefaultImage is the configured fallback cover.
func (r *Resolver) DefaultImage() string { return r.cfg.DefaultImage }

// cachePath names cache entries by the SHA-1 of the source URL.
func (r *Resolver) cachePath(url string) string {
	sum := sha1.Sum([]byte(url))
	return filepath.Join(r.cfg.CacheDir, fmt.Sprintf("%x.jpg", sum))
}

// adopt wires src into the fixed current-cover path, by symlink or copy
// per config.
func (r *Resolver) adopt(src string) error {
	if r.cfg.UseSymlink {
		_ = os.Remove(r.cfg.CurrentPath)
		return os.Symlink(src, r.cfg.CurrentPath)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(r.cfg.CurrentPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func (r *Resolver) download(ctx context.Context, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build art request")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "fetch art")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("fetch art: status %d", resp.StatusCode)
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(target)
		return errors.Wrap(err, "write art cache entry")
	}
	return f.Close()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
