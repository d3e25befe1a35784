// Package ingest is the debounced bridge between raw bus signals and
// the registry. It owns the only loop that mutates registry membership
// and recomputes selection, so updates are naturally serialized.
package ingest

import (
	"context"
	"log"
	"time"

	"mprisbridge/internal/bus"
	"mprisbridge/internal/config"
	"mprisbridge/internal/player"
	"mprisbridge/internal/registry"
	"mprisbridge/internal/selector"
)

// Pipeline consumes typed bus events and focus hints, refreshes the
// registry through the controller, and reports selection changes.
type Pipeline struct {
	cfg      config.Config
	reg      *registry.Registry
	sel      *selector.State
	ctl      player.Controller
	onChange func(name string, ok bool)

	hint string

	// after is swapped in tests to drive the debounce windows with a
	// fake clock instead of wall-time sleeps.
	after func(time.Duration) <-chan time.Time
}

// New wires a pipeline. onChange fires on every selection transition,
// from the pipeline goroutine, after the registry has been updated.
func New(cfg config.Config, reg *registry.Registry, sel *selector.State, ctl player.Controller, onChange func(name string, ok bool)) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		reg:      reg,
		sel:      sel,
		ctl:      ctl,
		onChange: onChange,
		after:    time.After,
	}
}

// Seed performs the initial enumeration and selection synchronously.
func (p *Pipeline) Seed(ctx context.Context) {
	p.enumerate(ctx)
}

// Run processes events and hints until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, events <-chan bus.Event, hints <-chan string) {
	enumGate := &gate{interval: p.cfg.EnumerateInterval()}
	statusGate := &gate{interval: p.cfg.StatusInterval()}

	var enumFire, statusFire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case bus.PlayersChanged:
				if enumGate.arm() {
					enumFire = p.after(enumGate.interval)
				}
			case bus.StatusChanged:
				if statusGate.arm() {
					statusFire = p.after(statusGate.interval)
				}
			}

		case <-enumFire:
			enumGate.fire()
			enumFire = nil
			p.enumerate(ctx)

		case <-statusFire:
			statusGate.fire()
			statusFire = nil
			p.refreshStatuses(ctx)

		case h, ok := <-hints:
			if !ok {
				hints = nil
				continue
			}
			// Hints supersede each other; no history, no debounce.
			p.hint = h
			p.reselect()
		}
	}
}

// enumerate replaces the registry's key set with the currently known,
// filtered players and re-polls their statuses. Failures leave the
// registry untouched; the next signal retries.
func (p *Pipeline) enumerate(ctx context.Context) {
	names, err := p.ctl.ListPlayers(ctx)
	if err != nil {
		log.Printf("ingest: enumerate players: %v", err)
		return
	}
	p.reg.Replace(names)
	p.refreshStatuses(ctx)
}

// refreshStatuses queries every known player and swaps the status map.
// Players whose query fails simply drop out of the map until the next
// refresh.
func (p *Pipeline) refreshStatuses(ctx context.Context) {
	view := p.reg.Snapshot()
	statuses := make(map[string]registry.Status, len(view.Players))
	for _, name := range view.Players {
		s, err := p.ctl.Status(ctx, name)
		if err != nil || s == "" {
			continue
		}
		statuses[name] = registry.Status(s)
	}
	p.reg.SetAllStatuses(statuses)
	p.reselect()
}

func (p *Pipeline) reselect() {
	name, ok, changed := p.sel.Apply(p.reg.Snapshot(), p.hint, p.cfg.Selection)
	if changed && p.onChange != nil {
		p.onChange(name, ok)
	}
}
