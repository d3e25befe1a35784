package follower

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mprisbridge/internal/art"
	"mprisbridge/internal/config"
	"mprisbridge/internal/player"
	"mprisbridge/internal/registry"
	"mprisbridge/internal/state"
)

type fakeFollower struct {
	lines     chan string
	stopped   chan struct{}
	stopDelay time.Duration
	once      sync.Once
}

func newFakeFollower() *fakeFollower {
	return &fakeFollower{lines: make(chan string), stopped: make(chan struct{})}
}

func (f *fakeFollower) Lines() <-chan string { return f.lines }
func (f *fakeFollower) Wait() error          { return nil }
func (f *fakeFollower) Stop() {
	f.once.Do(func() {
		time.Sleep(f.stopDelay)
		close(f.stopped)
		close(f.lines)
	})
}

type fakeController struct {
	mu        sync.Mutex
	followers []*fakeFollower
	stopDelay time.Duration
	overlap   bool
	caps      player.Capabilities
	capsCalls int
	meta      player.Metadata
	metaErr   error
}

func (f *fakeController) ListPlayers(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeController) Status(ctx context.Context, name string) (string, error) { return "", nil }

func (f *fakeController) Metadata(ctx context.Context, name string) (player.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta, f.metaErr
}

func (f *fakeController) Follow(name string) (player.Follower, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, prev := range f.followers {
		select {
		case <-prev.stopped:
		default:
			f.overlap = true
		}
	}
	ff := newFakeFollower()
	ff.stopDelay = f.stopDelay
	f.followers = append(f.followers, ff)
	return ff, nil
}

func (f *fakeController) Command(ctx context.Context, name string, args ...string) error {
	return nil
}

func (f *fakeController) Capabilities(ctx context.Context, name string) (player.Capabilities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capsCalls++
	return f.caps, nil
}

func newTestSupervisor(t *testing.T, ctl *fakeController) (*Supervisor, *state.Store, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Art:          config.ArtConfig{Enabled: false, DefaultImage: "/tmp/cover.png", TimeoutMS: 1000},
		Presentation: config.PresentationConfig{TruncateTitle: 10, TruncateArtist: 10},
	}
	store := state.NewStore(filepath.Join(dir, "state.json"), filepath.Join(dir, "events.jsonl"), false)
	reg := registry.New(registry.Filter{})
	sup := New(cfg, reg, ctl, store, art.NewResolver(cfg.Art))
	return sup, store, reg
}

func TestHandleMetadataPublishesProjection(t *testing.T) {
	ctl := &fakeController{caps: player.Capabilities{CanGoNext: true, CanGoPrevious: true}}
	sup, store, reg := newTestSupervisor(t, ctl)
	reg.Replace([]string{"spotify"})

	cur := &session{name: "spotify"}
	sup.handleMetadata(context.Background(), cur, player.Metadata{
		Status:   "Playing",
		Player:   "spotify",
		Title:    "A very long track title",
		Artist:   "Someone",
		Length:   245,
		Position: 62.7,
	})

	got := store.Current()
	if got.Name != "spotify" || got.Status != "Playing" {
		t.Fatalf("unexpected projection: %+v", got)
	}
	if got.Title != "A very lo…" {
		t.Fatalf("title not truncated: %q", got.Title)
	}
	if got.PositionStr != "1:02" || got.LengthStr != "4:05" {
		t.Fatalf("time formatting wrong: %q / %q", got.PositionStr, got.LengthStr)
	}
	if got.CanNext != 1 || got.CanPrev != 1 {
		t.Fatalf("capabilities not projected: %+v", got)
	}
	if got.Thumbnail != "/tmp/cover.png" {
		t.Fatalf("art disabled must fall back to default image, got %q", got.Thumbnail)
	}
	if reg.Snapshot().Status["spotify"] != registry.StatusPlaying {
		t.Fatal("status not written back to registry")
	}
}

func TestCapabilityQueriesAreRateLimited(t *testing.T) {
	ctl := &fakeController{caps: player.Capabilities{CanGoNext: true}}
	sup, _, _ := newTestSupervisor(t, ctl)

	cur := &session{name: "vlc"}
	sup.handleMetadata(context.Background(), cur, player.Metadata{Status: "Playing", Title: "one"})
	sup.handleMetadata(context.Background(), cur, player.Metadata{Status: "Playing", Title: "two"})

	if ctl.capsCalls != 1 {
		t.Fatalf("expected one capability query inside the rate window, got %d", ctl.capsCalls)
	}

	sup.capsAt = time.Now().Add(-2 * capsMinInterval)
	sup.handleMetadata(context.Background(), cur, player.Metadata{Status: "Playing", Title: "three"})
	if ctl.capsCalls != 2 {
		t.Fatalf("expected a refresh after the window elapsed, got %d", ctl.capsCalls)
	}
}

func TestYoutubeOverride(t *testing.T) {
	cases := []struct {
		name, player, url string
		want, override    bool
	}{
		{"single video", "firefox.instance42", "https://www.youtube.com/watch?v=abc", true, true},
		{"playlist keeps real caps", "firefox.instance42", "https://www.youtube.com/watch?v=abc&list=PL1", false, false},
		{"non-browser player", "spotify", "https://www.youtube.com/watch?v=abc", false, false},
		{"browser off youtube", "chromium.i7", "https://example.com/stream", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caps, ok := youtubeOverride(tc.player, tc.url)
			if ok != tc.override {
				t.Fatalf("override = %v, want %v", ok, tc.override)
			}
			if ok && (caps.CanGoNext != tc.want || caps.CanGoPrevious) {
				t.Fatalf("unexpected caps %+v", caps)
			}
		})
	}
}

func TestRetargetNothingSelectedPublishesBlank(t *testing.T) {
	ctl := &fakeController{}
	sup, store, _ := newTestSupervisor(t, ctl)

	var gen uint64
	if cur := sup.retarget(context.Background(), nil, Target{}, &gen); cur != nil {
		t.Fatal("no session expected without a target")
	}
	got := store.Current()
	if got.Name != "" || got.Thumbnail != "/tmp/cover.png" {
		t.Fatalf("expected blank state with default cover, got %+v", got)
	}
}

func TestRetargetSameTargetKeepsStream(t *testing.T) {
	ctl := &fakeController{metaErr: errors.New("no metadata")}
	sup, _, _ := newTestSupervisor(t, ctl)

	var gen uint64
	first := sup.retarget(context.Background(), nil, Target{Name: "mpv", OK: true}, &gen)
	if first == nil {
		t.Fatal("expected a session")
	}
	second := sup.retarget(context.Background(), first, Target{Name: "mpv", OK: true}, &gen)
	if second != first {
		t.Fatal("re-announcing the current target must not restart the stream")
	}
	select {
	case <-ctl.followers[0].stopped:
		t.Fatal("live stream was stopped")
	default:
	}
}

func TestRetargetConfirmsTerminationBeforeSpawn(t *testing.T) {
	ctl := &fakeController{metaErr: errors.New("no metadata"), stopDelay: 100 * time.Millisecond}
	sup, _, _ := newTestSupervisor(t, ctl)

	var gen uint64
	first := sup.retarget(context.Background(), nil, Target{Name: "mpv", OK: true}, &gen)
	if first == nil {
		t.Fatal("expected a session")
	}
	second := sup.retarget(context.Background(), first, Target{Name: "spotify", OK: true}, &gen)
	if second == nil {
		t.Fatal("expected a replacement session")
	}

	select {
	case <-ctl.followers[0].stopped:
	default:
		t.Fatal("previous generation still alive after retarget returned")
	}
	if ctl.overlap {
		t.Fatal("next generation spawned before the previous one terminated")
	}
}

func TestRunFollowsTargetAndSwitches(t *testing.T) {
	ctl := &fakeController{metaErr: errors.New("no metadata")}
	sup, store, _ := newTestSupervisor(t, ctl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	sup.SetTarget("mpv", true)
	first := waitFollower(t, ctl, 1)
	if got := store.Current(); got.Name != "mpv" {
		t.Fatalf("blank placeholder should carry the new name, got %q", got.Name)
	}

	first.lines <- "Playing|mpv|Song|Artist|240000000||61000000|file:///a.mp3"
	waitState(t, store, func(st state.UiState) bool { return st.Title == "Song" })

	sup.SetTarget("spotify", true)
	waitFollower(t, ctl, 2)
	select {
	case <-first.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("previous stream was not stopped on switch")
	}
	if got := store.Current(); got.Name != "spotify" {
		t.Fatalf("switch should republish under the new name, got %q", got.Name)
	}

	cancel()
	<-done
}

func waitFollower(t *testing.T, ctl *fakeController, n int) *fakeFollower {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		ctl.mu.Lock()
		if len(ctl.followers) >= n {
			f := ctl.followers[n-1]
			ctl.mu.Unlock()
			return f
		}
		ctl.mu.Unlock()
		select {
		case <-deadline:
			t.Fatalf("follower %d was never spawned", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitState(t *testing.T, store *state.Store, ok func(state.UiState) bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if ok(store.Current()) {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("state never reached expected shape, last: %+v", store.Current())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
