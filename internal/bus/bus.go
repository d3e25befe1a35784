// Package bus turns raw session-bus traffic into the typed event stream
// the ingestion pipeline consumes. Subscriptions are narrowed to the
// MPRIS namespace; anything else is discarded before the channel.
package bus

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

const (
	mprisNamespace = "org.mpris.MediaPlayer2"
	mprisPath      = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	playerIface    = "org.mpris.MediaPlayer2.Player"
)

// Kind labels a refresh-worthy observation.
type Kind int

const (
	// PlayersChanged means a player appeared or disappeared.
	PlayersChanged Kind = iota
	// StatusChanged means some player property changed.
	StatusChanged
)

// Event is one filtered bus observation.
type Event struct {
	Kind Kind
}

// Listener owns the signal subscription and republishes matching
// signals as Events. Delivery conflates per kind: dense bursts may
// collapse into fewer events, but a matching signal always yields at
// least one event even when the consumer lags.
type Listener struct {
	events chan Event

	mu      sync.Mutex
	pending [2]bool
	kick    chan struct{}

	// connect is swapped in tests.
	connect func() (conn, error)
}

type conn interface {
	AddMatchSignal(...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// NewListener returns a listener with a bounded event buffer.
func NewListener() *Listener {
	return &Listener{
		events:  make(chan Event, 64),
		kick:    make(chan struct{}, 1),
		connect: sessionBus,
	}
}

func sessionBus() (conn, error) {
	c, err := dbus.SessionBusPrivate()
	if err != nil {
		return nil, err
	}
	if err := c.Auth(nil); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.Hello(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Events is the typed event stream.
func (l *Listener) Events() <-chan Event { return l.events }

// Run keeps a subscription alive until ctx is cancelled, reconnecting
// with doubling, capped backoff after transport failures. Registry and
// selection stay at their last values during an outage.
func (l *Listener) Run(ctx context.Context) {
	go l.pump(ctx)
	backoff := time.Second
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("bus: listener error: %v (will reconnect)", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	c, err := l.connect()
	if err != nil {
		return errors.Wrap(err, "session bus")
	}
	defer c.Close()

	// Owner changes only for names in the MPRIS namespace.
	if err := c.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchOption("arg0namespace", mprisNamespace),
	); err != nil {
		return errors.Wrap(err, "match NameOwnerChanged")
	}
	// Property changes only on the MPRIS object path, for the player
	// and the root interface.
	for _, iface := range []string{playerIface, mprisNamespace} {
		if err := c.AddMatchSignal(
			dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
			dbus.WithMatchMember("PropertiesChanged"),
			dbus.WithMatchObjectPath(mprisPath),
			dbus.WithMatchArg(0, iface),
		); err != nil {
			return errors.Wrap(err, "match PropertiesChanged")
		}
	}

	sigs := make(chan *dbus.Signal, 32)
	c.Signal(sigs)
	defer c.RemoveSignal(sigs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-sigs:
			if !ok {
				return errors.New("signal stream closed")
			}
			if ev, ok := classify(sig); ok {
				l.emit(ev)
			}
		}
	}
}

// classify maps a raw signal to an event, or drops it. This is the
// filtering step; it never counts toward the debounce window.
func classify(sig *dbus.Signal) (Event, bool) {
	switch sig.Name {
	case "org.freedesktop.DBus.NameOwnerChanged":
		if len(sig.Body) < 1 {
			return Event{}, false
		}
		name, _ := sig.Body[0].(string)
		if !strings.HasPrefix(name, mprisNamespace) {
			return Event{}, false
		}
		return Event{Kind: PlayersChanged}, true
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if sig.Path != mprisPath {
			return Event{}, false
		}
		if len(sig.Body) < 1 {
			return Event{}, false
		}
		iface, _ := sig.Body[0].(string)
		if iface != playerIface && iface != mprisNamespace {
			return Event{}, false
		}
		return Event{Kind: StatusChanged}, true
	}
	return Event{}, false
}

// emit never blocks the bus reader: it marks the kind pending and
// nudges the pump. The sticky flag survives a full event channel, so a
// matching signal can never end up yielding zero refreshes.
func (l *Listener) emit(ev Event) {
	l.mu.Lock()
	l.pending[ev.Kind] = true
	l.mu.Unlock()
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// pump moves pending kinds onto the event channel. It is the only
// sender, so it may block on a slow consumer without stalling the bus
// reader.
func (l *Listener) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.kick:
		}
		for _, k := range []Kind{PlayersChanged, StatusChanged} {
			if !l.take(k) {
				continue
			}
			select {
			case l.events <- Event{Kind: k}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (l *Listener) take(k Kind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.pending[k] {
		return false
	}
	l.pending[k] = false
	return true
}
