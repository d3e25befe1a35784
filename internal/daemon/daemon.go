package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mprisbridge/internal/art"
	"mprisbridge/internal/bus"
	"mprisbridge/internal/config"
	"mprisbridge/internal/focus"
	"mprisbridge/internal/follower"
	"mprisbridge/internal/ingest"
	"mprisbridge/internal/ipc"
	"mprisbridge/internal/player"
	"mprisbridge/internal/registry"
	"mprisbridge/internal/selector"
	"mprisbridge/internal/state"
)

// Daemon is the fully wired bridge process.
type Daemon struct {
	cfg    config.Config
	srv    *ipc.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// StartDaemon wires all components and starts their goroutines. A
// control socket bind failure is returned as-is; the process must not
// run without its control surface.
func StartDaemon(cfg config.Config) (*Daemon, error) {
	if err := EnsureRuntimeDir(); err != nil {
		return nil, err
	}
	for _, dir := range []string{
		filepath.Dir(cfg.Output.SnapshotPath),
		filepath.Dir(cfg.Output.EventsPath),
		filepath.Dir(cfg.Art.CurrentPath),
		cfg.Art.CacheDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	store := state.NewStore(cfg.Output.SnapshotPath, cfg.Output.EventsPath, cfg.Output.PrettySnapshot)
	resolver := art.NewResolver(cfg.Art)
	reg := registry.New(registry.Filter{
		Include: cfg.Selection.Include,
		Exclude: cfg.Selection.Exclude,
	})
	sel := &selector.State{}
	ctl := player.NewPlayerctl(bus.QueryCapabilities)

	sup := follower.New(cfg, reg, ctl, store, resolver)
	pipe := ingest.New(cfg, reg, sel, ctl, sup.SetTarget)

	srv, err := ipc.Listen(SocketPath(), ctl, sel.Current)
	if err != nil {
		return nil, err
	}
	if err := WritePID(os.Getpid()); err != nil {
		srv.Close()
		return nil, err
	}

	// External consumers see a blank state until the first metadata
	// arrives, never a stale file from a previous run.
	store.Publish(state.Empty(cfg.Art.DefaultImage))

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{cfg: cfg, srv: srv, cancel: cancel, done: make(chan struct{})}

	listener := bus.NewListener()
	go listener.Run(ctx)

	hints := make(chan string, 8)
	if p := focus.Detect(); p != nil {
		log.Printf("daemon: focus provider: %s", p.Name())
		go p.Run(ctx, hints)
	} else {
		log.Printf("daemon: no focus provider detected, selection runs without hints")
	}

	go sup.Run(ctx)

	pipe.Seed(ctx)
	if names := reg.Names(); len(names) > 0 {
		log.Printf("daemon: players at startup: %s", strings.Join(names, ", "))
	}
	go func() {
		defer close(d.done)
		pipe.Run(ctx, listener.Events(), hints)
	}()

	go d.handleSighup()

	return d, nil
}

// Close tears the daemon down: stops the goroutines, closes the
// control socket and removes the pid file.
func (d *Daemon) Close() error {
	d.cancel()
	select {
	case <-d.done:
	case <-time.After(3 * time.Second):
	}
	if err := d.srv.Close(); err != nil {
		return err
	}
	return RemovePID()
}

// handleSighup logs a notice on SIGHUP. Configuration is immutable
// after startup; the signal is accepted so service managers reloading
// unit files do not kill the process.
func (d *Daemon) handleSighup() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP)
	defer signal.Stop(sigc)
	for range sigc {
		log.Printf("daemon: SIGHUP received; configuration is read at startup, restart to apply changes")
	}
}

// StopRunningDaemon terminates the daemon recorded in the pid file,
// escalating to SIGKILL when force is set.
func StopRunningDaemon(force bool) error {
	pid, err := RunningPID()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if IsRunning() {
				return fmt.Errorf("daemon is running but PID file %q is missing; stop it manually", PIDPath())
			}
			return nil
		}
		return fmt.Errorf("unable to read daemon PID: %w", err)
	}
	if pid == os.Getpid() {
		return errors.New("refusing to stop current process")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := sendSignal(proc, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForShutdown(3 * time.Second) {
		return nil
	}
	if !force {
		return fmt.Errorf("daemon process %d did not exit after SIGTERM", pid)
	}
	if err := sendSignal(proc, syscall.SIGKILL); err != nil {
		return err
	}
	if waitForShutdown(2 * time.Second) {
		return nil
	}
	return fmt.Errorf("daemon process %d did not exit after SIGKILL", pid)
}

func sendSignal(proc *os.Process, sig syscall.Signal) error {
	if err := proc.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			_ = RemovePID()
			return nil
		}
		return err
	}
	return nil
}

func waitForShutdown(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !IsRunning() {
			_ = RemovePID()
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(100 * time.Millisecond)
	}
}
