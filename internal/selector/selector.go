// Package selector decides which known player is active.
package selector

import (
	"strings"
	"sync"

	"mprisbridge/internal/config"
	"mprisbridge/internal/registry"
)

// Select is the pure decision function. Given a registry view, an
// optional focus hint, the sticky last selection and the selection
// config, it returns the chosen player name (ok=false means none).
//
// Tie-break order is fixed: focus hint, then priority list, then
// enumeration order, in both the playing and the idle branch.
func Select(view registry.View, hint, last string, cfg config.SelectionConfig) (string, bool) {
	if len(view.Players) == 0 {
		return "", false
	}

	playing := view.Playing()
	if len(playing) > 0 {
		if hint != "" {
			if p, ok := firstWithPrefix(playing, hint); ok {
				return p, true
			}
		}
		for _, want := range cfg.Priority {
			if p, ok := firstWithPrefix(playing, want); ok {
				return p, true
			}
		}
		return playing[0], true
	}

	if cfg.RememberLast && last != "" && view.Contains(last) {
		return last, true
	}
	if hint != "" {
		if p, ok := firstWithPrefix(view.Players, hint); ok {
			return p, true
		}
	}
	for _, want := range cfg.Priority {
		if p, ok := firstWithPrefix(view.Players, want); ok {
			return p, true
		}
	}
	if cfg.Fallback == "any" {
		return view.Players[0], true
	}
	return "", false
}

func firstWithPrefix(players []string, prefix string) (string, bool) {
	for _, p := range players {
		if strings.HasPrefix(p, prefix) {
			return p, true
		}
	}
	return "", false
}

// State owns the current and last selection. All mutation goes through
// Apply; readers get copies.
type State struct {
	mu      sync.Mutex
	current string
	hasCur  bool
	last    string
}

// Apply recomputes the selection against the view and records it.
// It returns the new selection and whether it differs from the previous
// one. Losing the selection never clears the sticky last value.
func (s *State) Apply(view registry.View, hint string, cfg config.SelectionConfig) (string, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := Select(view, hint, s.last, cfg)
	changed := ok != s.hasCur || name != s.current
	s.current = name
	s.hasCur = ok
	if ok {
		s.last = name
	}
	return name, ok, changed
}

// Current returns the active selection, if any.
func (s *State) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCur
}

// Last returns the sticky last selection, if any.
func (s *State) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
