// Package joystick decodes Linux joystick events (/dev/input/jsN) so a
// gamepad can serve as a low-priority link, e.g. on a test bench.
//
// The device only reports changes, so the link stays active while the
// pad is in use and is lost once it is untouched for Timeout.
package joystick

import (
	"encoding/binary"
	"errors"
	"time"
)

// Protocol constants.
const (
	FrameSize = 8
	Priority  = 2
	Period    = 10 * time.Millisecond
	Timeout   = 2 * time.Second
	// BufferSize is the receive buffer of a joystick port.
	BufferSize = 64

	// MaxAxes and MaxButtons bound the tracked controls.
	MaxAxes    = 8
	MaxButtons = 32
)

// Event types.
const (
	EventButton uint8 = 0x01
	EventAxis   uint8 = 0x02
	EventInit   uint8 = 0x80
)

// ErrFrameSize indicates a buffer that is not FrameSize long.
var ErrFrameSize = errors.New("joystick: invalid frame size")

// Event is one js_event record.
type Event struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

// IsInit indicates the event reports the initial state.
func (e Event) IsInit() bool {
	return e.Type&EventInit != 0
}

// Kind returns the event type without the init flag.
func (e Event) Kind() uint8 {
	return e.Type &^ EventInit
}

// Unpack reads an event.
func Unpack(buf []byte) (e Event, err error) {
	if len(buf) != FrameSize {
		return e, ErrFrameSize
	}
	e.Time = binary.LittleEndian.Uint32(buf)
	e.Value = int16(binary.LittleEndian.Uint16(buf[4:]))
	e.Type, e.Number = buf[6], buf[7]
	return e, nil
}

// Pack encodes an event.
func Pack(e Event) (buf [FrameSize]byte) {
	binary.LittleEndian.PutUint32(buf[:], e.Time)
	binary.LittleEndian.PutUint16(buf[4:], uint16(e.Value))
	buf[6], buf[7] = e.Type, e.Number
	return
}

// Control is the decoded pad state.
type Control struct {
	// Axes are scaled to [-1, 1]. Axes 0-3 are the sticks.
	Axes [MaxAxes]float32
	// Buttons has bit n set while button n is down.
	Buttons uint32
	// Time is the device timestamp of the last event in ms.
	Time uint32
}

// Sticks implements rc.Sticks.
func (c Control) Sticks() (ch [4]float32) {
	copy(ch[:], c.Axes[:4])
	return
}

// Pressed reports whether button n is down.
func (c Control) Pressed(n int) bool {
	return n >= 0 && n < MaxButtons && c.Buttons&(1<<uint(n)) != 0
}

// Decoder implements rc.Decoder for joystick events.
type Decoder struct {
	cur  Control
	prev Control
}

// New creates a decoder.
func New() *Decoder {
	return &Decoder{}
}

// Size implements rc.Decoder.
func (d *Decoder) Size() int { return FrameSize }

// Accept implements rc.Decoder. Only axis and button events of tracked
// controls are accepted.
func (d *Decoder) Accept(buf []byte) bool {
	e, err := Unpack(buf)
	if err != nil {
		return false
	}
	switch e.Kind() {
	case EventAxis:
		return e.Number < MaxAxes
	case EventButton:
		return e.Number < MaxButtons
	}
	return false
}

// Decode implements rc.Decoder.
func (d *Decoder) Decode(buf []byte) bool {
	if !d.Accept(buf) {
		return false
	}
	e, _ := Unpack(buf)
	d.prev = d.cur
	c := &d.cur
	c.Time = e.Time
	switch e.Kind() {
	case EventAxis:
		v := float32(e.Value) / 32767
		if v < -1 {
			v = -1
		}
		c.Axes[e.Number] = v
	case EventButton:
		bit := uint32(1) << e.Number
		if e.Value != 0 {
			c.Buttons |= bit
		} else {
			c.Buttons &^= bit
		}
	}
	return true
}

// Snapshot implements rc.Decoder. It returns a Control.
func (d *Decoder) Snapshot() any { return d.cur }

// Previous implements rc.Decoder. It returns a Control.
func (d *Decoder) Previous() any { return d.prev }
