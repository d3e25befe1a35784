// Package focus streams hints about the focused application. The hint
// is advisory: it only breaks ties during selection, so every provider
// failure degrades to "no hint", never to an error surfaced upstream.
package focus

import (
	"context"
	"os"
	"strings"
)

// Provider feeds focus hints into the given channel until ctx ends.
// An empty hint means "focused app is not a known player".
type Provider interface {
	Run(ctx context.Context, hints chan<- string)
	Name() string
}

// Detect picks a provider for the current session: hyprland when its
// IPC is reachable, plain X11 otherwise, nil when neither applies.
func Detect() Provider {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return newHyprProvider()
	}
	if os.Getenv("DISPLAY") != "" {
		return newX11Provider()
	}
	return nil
}

// mapClassToHint reduces a window class to a player-name prefix.
func mapClassToHint(class string) string {
	lc := strings.ToLower(class)
	for _, p := range []string{"firefox", "spotify", "vlc", "mpv"} {
		if strings.HasPrefix(lc, p) {
			return p
		}
	}
	return ""
}

func send(ctx context.Context, hints chan<- string, hint string) {
	select {
	case hints <- hint:
	case <-ctx.Done():
	}
}
