// Package follower supervises the single metadata-streaming subprocess
// attached to the currently selected player and projects its output
// into the published UI state.
package follower

import (
	"context"
	"log"
	"strings"
	"time"

	"mprisbridge/internal/art"
	"mprisbridge/internal/config"
	"mprisbridge/internal/player"
	"mprisbridge/internal/registry"
	"mprisbridge/internal/state"
)

const (
	// respawnInterval bounds how often a dead follower is restarted.
	respawnInterval = 2 * time.Second
	// capsMinInterval rate-limits capability property reads.
	capsMinInterval = time.Second
	// oneShotTimeout bounds the synchronous metadata probe taken right
	// after a target switch, before the stream produces its first line.
	oneShotTimeout = 2 * time.Second
)

// Target names the player the supervisor should follow. ok=false means
// nothing is selected and the stream must be torn down.
type Target struct {
	Name string
	OK   bool
}

// Supervisor owns exactly one follower subprocess at a time. All
// lifecycle decisions happen on the Run goroutine; SetTarget merely
// queues the desired player.
type Supervisor struct {
	cfg   config.Config
	reg   *registry.Registry
	ctl   player.Controller
	store *state.Store
	art   *art.Resolver

	targets chan Target

	// capability cache, touched only from the Run goroutine
	capsName string
	caps     player.Capabilities
	capsAt   time.Time
}

type session struct {
	gen  uint64
	name string
	f    player.Follower
	prev player.Metadata
	seen bool
}

// New builds a supervisor. Run must be started for SetTarget to have
// any effect.
func New(cfg config.Config, reg *registry.Registry, ctl player.Controller, store *state.Store, resolver *art.Resolver) *Supervisor {
	return &Supervisor{
		cfg:     cfg,
		reg:     reg,
		ctl:     ctl,
		store:   store,
		art:     resolver,
		targets: make(chan Target, 16),
	}
}

// SetTarget queues a selection transition. Safe for concurrent use.
func (s *Supervisor) SetTarget(name string, ok bool) {
	s.targets <- Target{Name: name, OK: ok}
}

// Run drives the follower lifecycle until ctx is cancelled. Dead
// streams are respawned on a fixed tick as long as a target is wanted.
func (s *Supervisor) Run(ctx context.Context) {
	var (
		cur  *session
		want Target
		gen  uint64
	)
	tick := time.NewTicker(respawnInterval)
	defer tick.Stop()

	for {
		var lines <-chan string
		if cur != nil {
			lines = cur.f.Lines()
		}

		select {
		case <-ctx.Done():
			if cur != nil {
				cur.f.Stop()
			}
			return

		case t := <-s.targets:
			want = t
			cur = s.retarget(ctx, cur, t, &gen)

		case line, ok := <-lines:
			if !ok {
				// Process exited on its own; the tick respawns it
				// while the target still wants a stream.
				_ = cur.f.Wait()
				log.Printf("follower: stream for %s ended (gen %d)", cur.name, cur.gen)
				cur = nil
				continue
			}
			s.handleLine(ctx, cur, line)

		case <-tick.C:
			if cur == nil && want.OK {
				cur = s.spawn(want.Name, &gen)
			}
		}
	}
}

// retarget tears down the old stream and, when a player is wanted,
// publishes a blank placeholder, probes current metadata once, and
// spawns the new stream.
func (s *Supervisor) retarget(ctx context.Context, old *session, t Target, gen *uint64) *session {
	// Re-announcing the current target must not restart a live stream.
	if old != nil && t.OK && old.name == t.Name {
		return old
	}
	if old != nil {
		// Stop is bounded (graceful signal, short wait, then kill) and
		// drains the stream. Blocking here guarantees generation N has
		// terminated before generation N+1 is spawned; queued target
		// updates simply wait their turn.
		old.f.Stop()
	}

	if !t.OK {
		s.store.Publish(state.Empty(s.art.DefaultImage()))
		return nil
	}

	blank := state.Empty(s.art.DefaultImage())
	blank.Name = t.Name
	s.store.Publish(blank)

	next := s.spawn(t.Name, gen)

	// One synchronous probe so the UI does not wait for the stream's
	// first line.
	probeCtx, cancel := context.WithTimeout(ctx, oneShotTimeout)
	meta, err := s.ctl.Metadata(probeCtx, t.Name)
	cancel()
	if err == nil && next != nil {
		s.handleMetadata(ctx, next, meta)
	}
	return next
}

func (s *Supervisor) spawn(name string, gen *uint64) *session {
	f, err := s.ctl.Follow(name)
	if err != nil {
		log.Printf("follower: spawn for %s: %v", name, err)
		return nil
	}
	*gen++
	log.Printf("follower: following %s (gen %d)", name, *gen)
	return &session{gen: *gen, name: name, f: f}
}

func (s *Supervisor) handleLine(ctx context.Context, cur *session, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	meta, err := player.ParseLine(line)
	if err != nil {
		log.Printf("follower: %s: %v", cur.name, err)
		return
	}
	s.handleMetadata(ctx, cur, meta)
}

// handleMetadata turns one decoded metadata record into a registry
// status write-back and a published UI state.
func (s *Supervisor) handleMetadata(ctx context.Context, cur *session, meta player.Metadata) {
	if meta.Status != "" {
		s.reg.SetStatus(cur.name, registry.Status(meta.Status))
	}

	caps := s.capabilities(ctx, cur, meta)

	st := state.UiState{
		Name:      cur.name,
		Title:     state.Truncate(meta.Title, s.cfg.Presentation.TruncateTitle),
		Artist:    state.Truncate(meta.Artist, s.cfg.Presentation.TruncateArtist),
		Status:    meta.Status,
		Thumbnail: s.thumbnail(ctx, meta.ArtURL),
	}
	st.SetPosition(meta.Position)
	st.SetLength(meta.Length)
	if caps.CanGoNext {
		st.CanNext = 1
	}
	if caps.CanGoPrevious {
		st.CanPrev = 1
	}

	cur.prev = meta
	cur.seen = true
	s.store.Publish(st)
}

// capabilities returns the cached capability pair, refreshing it when
// the track changed and the cache is not fresher than capsMinInterval.
// Single YouTube videos played in a browser report CanGoNext without a
// playlist to advance through, so that case is pinned to next-only.
func (s *Supervisor) capabilities(ctx context.Context, cur *session, meta player.Metadata) player.Capabilities {
	if caps, ok := youtubeOverride(cur.name, meta.URL); ok {
		return caps
	}

	changed := !cur.seen || meta.Significant(cur.prev)
	stale := s.capsName != cur.name ||
		(changed && time.Since(s.capsAt) >= capsMinInterval)
	if stale {
		caps, err := s.ctl.Capabilities(ctx, cur.name)
		if err != nil {
			log.Printf("follower: capabilities for %s: %v", cur.name, err)
		} else {
			s.caps = caps
		}
		s.capsName = cur.name
		s.capsAt = time.Now()
	}
	return s.caps
}

func (s *Supervisor) thumbnail(ctx context.Context, ref string) string {
	if !s.cfg.Art.Enabled {
		return s.art.DefaultImage()
	}
	return s.art.Resolve(ctx, ref)
}

// youtubeOverride recognizes a standalone YouTube watch page in a
// browser player. Without a playlist ("list=" query parameter) the
// previous button cannot work, while next skips to the autoplay pick.
func youtubeOverride(name, url string) (player.Capabilities, bool) {
	lower := strings.ToLower(name)
	browser := strings.HasPrefix(lower, "firefox") ||
		strings.HasPrefix(lower, "chromium") ||
		strings.HasPrefix(lower, "chrome") ||
		strings.HasPrefix(lower, "brave")
	if !browser {
		return player.Capabilities{}, false
	}
	if !strings.Contains(url, "youtube.com/watch") || strings.Contains(url, "list=") {
		return player.Capabilities{}, false
	}
	return player.Capabilities{CanGoNext: true, CanGoPrevious: false}, true
}
