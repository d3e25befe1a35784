package bus

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestClassifyNameOwnerChanged(t *testing.T) {
	sig := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{"org.mpris.MediaPlayer2.spotify", "", ":1.99"},
	}
	ev, ok := classify(sig)
	if !ok || ev.Kind != PlayersChanged {
		t.Fatalf("expected PlayersChanged, got %v ok=%v", ev.Kind, ok)
	}
}

func TestClassifyDropsForeignNameOwner(t *testing.T) {
	sig := &dbus.Signal{
		Name: "org.freedesktop.DBus.NameOwnerChanged",
		Body: []interface{}{"org.gnome.Shell", "", ":1.5"},
	}
	if _, ok := classify(sig); ok {
		t.Fatal("non-MPRIS owner change must be discarded")
	}
}

func TestClassifyPropertiesChanged(t *testing.T) {
	sig := &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Path: "/org/mpris/MediaPlayer2",
		Body: []interface{}{"org.mpris.MediaPlayer2.Player", map[string]dbus.Variant{}, []string{}},
	}
	ev, ok := classify(sig)
	if !ok || ev.Kind != StatusChanged {
		t.Fatalf("expected StatusChanged, got %v ok=%v", ev.Kind, ok)
	}
}

func TestClassifyDropsWrongPathOrInterface(t *testing.T) {
	wrongPath := &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Path: "/org/gnome/whatever",
		Body: []interface{}{"org.mpris.MediaPlayer2.Player"},
	}
	if _, ok := classify(wrongPath); ok {
		t.Fatal("wrong object path must be discarded")
	}

	wrongIface := &dbus.Signal{
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Path: "/org/mpris/MediaPlayer2",
		Body: []interface{}{"org.freedesktop.Notifications"},
	}
	if _, ok := classify(wrongIface); ok {
		t.Fatal("wrong arg0 interface must be discarded")
	}
}

func TestClassifyDropsUnrelatedSignals(t *testing.T) {
	if _, ok := classify(&dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired"}); ok {
		t.Fatal("unrelated signal must be discarded")
	}
}

func TestEmitDeliversEveryKindUnderBackpressure(t *testing.T) {
	l := NewListener()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.pump(ctx)

	// Far more signals than the channel holds, with nobody reading yet.
	// Each kind must still come out at least once.
	for i := 0; i < 1000; i++ {
		l.emit(Event{Kind: StatusChanged})
	}
	l.emit(Event{Kind: PlayersChanged})

	got := map[Kind]bool{}
	deadline := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-l.Events():
			got[ev.Kind] = true
		case <-deadline:
			t.Fatalf("kinds delivered: %v, want both", got)
		}
	}
}
