package focus

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"os/exec"
	"strings"
	"time"
)

// hyprProvider follows the hyprland event stream and resolves the
// active window class on every focus change.
type hyprProvider struct{}

func newHyprProvider() *hyprProvider { return &hyprProvider{} }

func (p *hyprProvider) Name() string { return "hyprland" }

// Run tails `hyprctl -i events`, restarting the stream when it ends.
func (p *hyprProvider) Run(ctx context.Context, hints chan<- string) {
	for ctx.Err() == nil {
		if err := p.follow(ctx, hints); err != nil {
			log.Printf("focus: hyprctl stream: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (p *hyprProvider) follow(ctx context.Context, hints chan<- string) error {
	cmd := exec.CommandContext(ctx, "hyprctl", "-i", "events")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	defer cmd.Wait()

	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		if !strings.HasPrefix(sc.Text(), "activewindow>>") {
			continue
		}
		class, err := activeWindowClass(ctx)
		if err != nil {
			log.Printf("focus: hyprctl activewindow: %v", err)
			continue
		}
		send(ctx, hints, mapClassToHint(class))
	}
	return sc.Err()
}

func activeWindowClass(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", "activewindow", "-j").Output()
	if err != nil {
		return "", err
	}
	var v struct {
		Class string `json:"class"`
	}
	if err := json.Unmarshal(out, &v); err != nil {
		return "", err
	}
	return v.Class, nil
}
