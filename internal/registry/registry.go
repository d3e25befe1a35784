// Package registry is the in-memory catalog of known media players and
// their last observed playback status.
package registry

import (
	"sort"
	"strings"
	"sync"
)

// Status is a player's last-known playback state. Absence from the
// registry's status map means the player has not been queried yet.
type Status string

const (
	StatusPlaying Status = "Playing"
	StatusPaused  Status = "Paused"
	StatusStopped Status = "Stopped"
)

// Filter holds the include/exclude prefix sets applied to membership.
type Filter struct {
	Include []string
	Exclude []string
}

// Match reports whether a player name passes the filter.
func (f Filter) Match(name string) bool {
	if len(f.Include) > 0 && !hasAnyPrefix(name, f.Include) {
		return false
	}
	if len(f.Exclude) > 0 && hasAnyPrefix(name, f.Exclude) {
		return false
	}
	return true
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// View is a consistent copy of the registry taken under the lock.
// Players preserves enumeration order.
type View struct {
	Players []string
	Status  map[string]Status
}

// Playing returns the subset of players currently playing, in order.
func (v View) Playing() []string {
	out := make([]string, 0, len(v.Players))
	for _, p := range v.Players {
		if v.Status[p] == StatusPlaying {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports membership of name in the view.
func (v View) Contains(name string) bool {
	for _, p := range v.Players {
		if p == name {
			return true
		}
	}
	return false
}

// Registry keeps the filtered player set and status map behind one lock.
// Enumeration order is preserved so selection tie-breaks stay stable.
type Registry struct {
	mu      sync.RWMutex
	filter  Filter
	players []string
	status  map[string]Status
}

// New returns an empty registry with the given membership filter.
func New(filter Filter) *Registry {
	return &Registry{
		filter: filter,
		status: make(map[string]Status),
	}
}

// Replace swaps the player set with the filtered subset of names,
// keeping status values for retained players and dropping the rest.
func (r *Registry) Replace(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || !r.filter.Match(n) {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		next = append(next, n)
	}

	status := make(map[string]Status, len(next))
	for _, n := range next {
		if s, ok := r.status[n]; ok {
			status[n] = s
		}
	}
	r.players = next
	r.status = status
}

// SetStatus records the status for a known player. Unknown names are
// ignored so follower output for removed players cannot resurrect them.
func (r *Registry) SetStatus(name string, s Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.containsLocked(name) {
		return false
	}
	r.status[name] = s
	return true
}

// SetAllStatuses replaces the whole status map, dropping entries for
// players that are no longer members.
func (r *Registry) SetAllStatuses(all map[string]Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := make(map[string]Status, len(all))
	for name, s := range all {
		if r.containsLocked(name) {
			status[name] = s
		}
	}
	r.status = status
}

// Snapshot returns a consistent copy for selection.
func (r *Registry) Snapshot() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	players := make([]string, len(r.players))
	copy(players, r.players)
	status := make(map[string]Status, len(r.status))
	for k, v := range r.status {
		status[k] = v
	}
	return View{Players: players, Status: status}
}

// Names returns the member names sorted, for logging and ipc listings.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.players))
	copy(out, r.players)
	sort.Strings(out)
	return out
}

func (r *Registry) containsLocked(name string) bool {
	for _, p := range r.players {
		if p == name {
			return true
		}
	}
	return false
}
