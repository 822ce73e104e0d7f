package telemetry

import (
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/rc/dr16"
	"github.com/robotalks/rtio.go/pkg/rc/joystick"
	"github.com/robotalks/rtio.go/pkg/rc/vt03"
	"github.com/robotalks/rtio.go/pkg/telemetry/msgs"
)

// Mouse button bits in RCSnapshot.Buttons. Joystick snapshots carry the
// pad's button bits instead.
const (
	ButtonLeft uint32 = 1 << iota
	ButtonRight
	ButtonMiddle
	ButtonFnL
	ButtonFnR
	ButtonPause
	ButtonTrigger
)

func down(k rc.KeyState) bool {
	return k.Ctrl != rc.Released
}

func keyBits(kb *rc.Keyboard) (bits uint32) {
	for i := range kb {
		if down(kb[i]) {
			bits |= 1 << uint(i)
		}
	}
	return
}

func buttonBits(states ...rc.KeyState) (bits uint32) {
	for i, s := range states {
		if down(s) {
			bits |= 1 << uint(i)
		}
	}
	return
}

// SnapshotFrom converts a decoded receiver snapshot. It returns nil for
// unknown snapshot types.
func SnapshotFrom(link string, snapshot any) *msgs.RCSnapshot {
	switch c := snapshot.(type) {
	case dr16.Control:
		return &msgs.RCSnapshot{
			Link:     link,
			Channels: c.Ch[:],
			Wheel:    c.Wheel,
			Switches: []uint32{uint32(c.Switch[dr16.SwitchRight].State), uint32(c.Switch[dr16.SwitchLeft].State)},
			MouseX:   c.Mouse.X,
			MouseY:   c.Mouse.Y,
			MouseZ:   c.Mouse.Z,
			Buttons:  buttonBits(c.Mouse.Left, c.Mouse.Right),
			Keys:     keyBits(&c.Keys),
		}
	case vt03.Control:
		return &msgs.RCSnapshot{
			Link:     link,
			Channels: c.Ch[:],
			Wheel:    c.Wheel,
			Switches: []uint32{uint32(c.Gear.State)},
			MouseX:   c.Mouse.X,
			MouseY:   c.Mouse.Y,
			MouseZ:   c.Mouse.Z,
			Buttons: buttonBits(c.Mouse.Left, c.Mouse.Right, c.Mouse.Middle,
				c.FnL, c.FnR, c.Pause, c.Trigger),
			Keys: keyBits(&c.Keys),
		}
	case joystick.Control:
		sticks := c.Sticks()
		return &msgs.RCSnapshot{
			Link:     link,
			Channels: sticks[:],
			Buttons:  c.Buttons,
		}
	}
	return nil
}
