package bus

import (
	"context"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"mprisbridge/internal/player"
)

// QueryCapabilities reads CanGoNext/CanGoPrevious for the named player
// straight off the bus. It is the production backing for the
// controller's capability query.
func QueryCapabilities(ctx context.Context, name string) (player.Capabilities, error) {
	c, err := dbus.SessionBus()
	if err != nil {
		return player.Capabilities{}, errors.Wrap(err, "session bus")
	}
	obj := c.Object(mprisNamespace+"."+name, mprisPath)

	caps := player.Capabilities{}
	next, err := getBoolProperty(ctx, obj, playerIface+".CanGoNext")
	if err != nil {
		return caps, err
	}
	prev, err := getBoolProperty(ctx, obj, playerIface+".CanGoPrevious")
	if err != nil {
		return caps, err
	}
	caps.CanGoNext = next
	caps.CanGoPrevious = prev
	return caps, nil
}

func getBoolProperty(ctx context.Context, obj dbus.BusObject, prop string) (bool, error) {
	call := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0,
		playerIface, prop[len(playerIface)+1:])
	if call.Err != nil {
		return false, errors.Wrapf(call.Err, "get %s", prop)
	}
	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return false, errors.Wrapf(err, "decode %s", prop)
	}
	b, ok := v.Value().(bool)
	if !ok {
		return false, errors.Errorf("%s is not a bool", prop)
	}
	return b, nil
}
