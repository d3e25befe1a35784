// Package player abstracts the external control tool that talks MPRIS
// on the bridge's behalf. All process invocations use exec.Command with
// explicit argument slices.
package player

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Capabilities is the slice of the player property model the bridge
// cares about.
type Capabilities struct {
	CanGoNext     bool
	CanGoPrevious bool
}

// Follower is a live metadata-streaming subprocess for one player.
type Follower interface {
	// Lines yields raw metadata lines until the process exits.
	Lines() <-chan string
	// Stop terminates the subprocess, gracefully first, and waits for
	// it with a bounded delay before forcing.
	Stop()
	// Wait blocks until the process has exited.
	Wait() error
}

// Controller is the narrow interface over the external control tool.
// One production implementation shells out; tests supply fakes.
type Controller interface {
	ListPlayers(ctx context.Context) ([]string, error)
	Status(ctx context.Context, name string) (string, error)
	Metadata(ctx context.Context, name string) (Metadata, error)
	Follow(name string) (Follower, error)
	Command(ctx context.Context, name string, args ...string) error
	Capabilities(ctx context.Context, name string) (Capabilities, error)
}

// Playerctl drives the playerctl binary.
type Playerctl struct {
	// Bin allows tests and exotic setups to point at another binary.
	Bin string
	// QueryCaps resolves capabilities; defaults to a D-Bus property
	// read so the hot path avoids extra subprocesses.
	QueryCaps func(ctx context.Context, name string) (Capabilities, error)
}

// NewPlayerctl returns the production controller.
func NewPlayerctl(queryCaps func(ctx context.Context, name string) (Capabilities, error)) *Playerctl {
	return &Playerctl{Bin: "playerctl", QueryCaps: queryCaps}
}

func (p *Playerctl) ListPlayers(ctx context.Context) ([]string, error) {
	out, err := exec.CommandContext(ctx, p.Bin, "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("%s -l: %w", p.Bin, err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *Playerctl) Status(ctx context.Context, name string) (string, error) {
	out, err := exec.CommandContext(ctx, p.Bin, "-p", name, "status").Output()
	if err != nil {
		return "", fmt.Errorf("%s status for %s: %w", p.Bin, name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (p *Playerctl) Metadata(ctx context.Context, name string) (Metadata, error) {
	out, err := exec.CommandContext(ctx, p.Bin, "-p", name, "metadata", "--format", metadataFormat).Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("%s metadata for %s: %w", p.Bin, name, err)
	}
	return ParseLine(strings.TrimSpace(string(out)))
}

func (p *Playerctl) Command(ctx context.Context, name string, args ...string) error {
	full := append([]string{"-p", name}, args...)
	if err := exec.CommandContext(ctx, p.Bin, full...).Run(); err != nil {
		return fmt.Errorf("%s %s for %s: %w", p.Bin, strings.Join(args, " "), name, err)
	}
	return nil
}

func (p *Playerctl) Capabilities(ctx context.Context, name string) (Capabilities, error) {
	if p.QueryCaps == nil {
		return Capabilities{}, nil
	}
	return p.QueryCaps(ctx, name)
}

// Follow spawns `playerctl -p <name> metadata -F` streaming one line
// per metadata change.
func (p *Playerctl) Follow(name string) (Follower, error) {
	cmd := exec.Command(p.Bin, "-p", name, "metadata", "--format", metadataFormat, "-F")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn %s -F for %s: %w", p.Bin, name, err)
	}

	f := &execFollower{
		cmd:   cmd,
		lines: make(chan string),
		done:  make(chan error, 1),
	}
	go f.read(stdout)
	return f, nil
}

type execFollower struct {
	cmd   *exec.Cmd
	lines chan string
	done  chan error
}

func (f *execFollower) read(r io.Reader) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024)
	for sc.Scan() {
		f.lines <- sc.Text()
	}
	close(f.lines)
	f.done <- f.cmd.Wait()
}

func (f *execFollower) Lines() <-chan string { return f.lines }

func (f *execFollower) Wait() error { return <-f.done }

// Stop terminates the subprocess with SIGTERM and escalates to SIGKILL
// if it lingers past a short deadline.
func (f *execFollower) Stop() {
	if f.cmd.Process == nil {
		return
	}
	_ = f.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-f.doneOrDrained():
	case <-time.After(2 * time.Second):
		_ = f.cmd.Process.Kill()
		<-f.doneOrDrained()
	}
}

// doneOrDrained waits for the reader goroutine to observe process exit,
// draining any buffered lines so it is never blocked on send.
func (f *execFollower) doneOrDrained() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		for range f.lines {
		}
		close(ch)
	}()
	return ch
}
