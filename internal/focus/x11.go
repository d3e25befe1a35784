package focus

import (
	"context"
	"encoding/binary"
	"log"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// x11Provider watches _NET_ACTIVE_WINDOW property changes on the root
// window and maps the focused window's WM_CLASS to a hint.
type x11Provider struct{}

func newX11Provider() *x11Provider { return &x11Provider{} }

func (p *x11Provider) Name() string { return "x11" }

func (p *x11Provider) Run(ctx context.Context, hints chan<- string) {
	for ctx.Err() == nil {
		if err := p.watch(ctx, hints); err != nil {
			log.Printf("focus: x11 watch: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (p *x11Provider) watch(ctx context.Context, hints chan<- string) error {
	conn, err := xgb.NewConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	activeAtom, err := internAtom(conn, "_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}
	classAtom, err := internAtom(conn, "WM_CLASS")
	if err != nil {
		return err
	}

	if err := xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return err
	}

	// Close the connection when ctx ends so WaitForEvent unblocks.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		ev, err := conn.WaitForEvent()
		if ev == nil && err == nil {
			return nil // connection closed
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		prop, ok := ev.(xproto.PropertyNotifyEvent)
		if !ok || prop.Atom != activeAtom {
			continue
		}
		class := activeClass(conn, root, activeAtom, classAtom)
		send(ctx, hints, mapClassToHint(class))
		if ctx.Err() != nil {
			return nil
		}
	}
}

func internAtom(conn *xgb.Conn, name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

func activeClass(conn *xgb.Conn, root xproto.Window, activeAtom, classAtom xproto.Atom) string {
	data, err := getProperty(conn, root, activeAtom, xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return ""
	}
	win := xproto.Window(binary.LittleEndian.Uint32(data))
	if win == 0 {
		return ""
	}

	raw, err := getProperty(conn, win, classAtom, xproto.AtomString, 256)
	if err != nil || len(raw) == 0 {
		return ""
	}
	// WM_CLASS is "instance\0class\0"; the class half is the stable one.
	parts := strings.Split(strings.TrimRight(string(raw), "\x00"), "\x00")
	if len(parts) >= 2 {
		return parts[1]
	}
	return parts[0]
}

func getProperty(conn *xgb.Conn, window xproto.Window, atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(conn, false, window, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}
