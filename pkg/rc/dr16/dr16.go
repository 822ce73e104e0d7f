// Package dr16 decodes DR16 receiver frames.
package dr16

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/robotalks/rtio.go/pkg/rc"
)

// Protocol constants.
const (
	FrameSize = 18
	Priority  = 1
	Period    = 14 * time.Millisecond
	Timeout   = 100 * time.Millisecond
	// BufferSize is the receive buffer of a DR16 port.
	BufferSize = 36
)

// Switch indexes.
const (
	SwitchRight = 0
	SwitchLeft  = 1
)

// ErrFrameSize indicates a buffer that is not FrameSize long.
var ErrFrameSize = errors.New("dr16: invalid frame size")

// Raw is the undecoded content of a frame.
type Raw struct {
	Ch      [4]uint16
	S1      uint8 // right switch
	S2      uint8 // left switch
	MouseX  int16
	MouseY  int16
	MouseZ  int16
	PressL  uint8
	PressR  uint8
	KeyCode uint16
	Wheel   uint16
}

const mask11 = 0x7FF

// Unpack extracts the fields of a frame.
func Unpack(buf []byte) (r Raw, err error) {
	if len(buf) != FrameSize {
		return r, ErrFrameSize
	}
	var bits uint64
	for i := 5; i >= 0; i-- {
		bits = bits<<8 | uint64(buf[i])
	}
	for i := range r.Ch {
		r.Ch[i] = uint16(bits >> uint(i*11) & mask11)
	}
	r.S1 = uint8(bits >> 44 & 3)
	r.S2 = uint8(bits >> 46 & 3)
	r.MouseX = int16(binary.LittleEndian.Uint16(buf[6:]))
	r.MouseY = int16(binary.LittleEndian.Uint16(buf[8:]))
	r.MouseZ = int16(binary.LittleEndian.Uint16(buf[10:]))
	r.PressL = buf[12]
	r.PressR = buf[13]
	r.KeyCode = binary.LittleEndian.Uint16(buf[14:])
	r.Wheel = binary.LittleEndian.Uint16(buf[16:])
	return r, nil
}

// Pack encodes r as a frame.
func Pack(r Raw) (buf [FrameSize]byte) {
	var bits uint64
	for i, ch := range r.Ch {
		bits |= uint64(ch&mask11) << uint(i*11)
	}
	bits |= uint64(r.S1&3)<<44 | uint64(r.S2&3)<<46
	for i := 0; i < 6; i++ {
		buf[i] = byte(bits >> uint(i*8))
	}
	binary.LittleEndian.PutUint16(buf[6:], uint16(r.MouseX))
	binary.LittleEndian.PutUint16(buf[8:], uint16(r.MouseY))
	binary.LittleEndian.PutUint16(buf[10:], uint16(r.MouseZ))
	buf[12] = r.PressL
	buf[13] = r.PressR
	binary.LittleEndian.PutUint16(buf[14:], r.KeyCode)
	binary.LittleEndian.PutUint16(buf[16:], r.Wheel)
	return
}

// Valid checks the analog ranges.
func (r Raw) Valid() bool {
	for _, ch := range r.Ch {
		if !rc.InRange(ch) {
			return false
		}
	}
	return rc.InRange(r.Wheel)
}

// Mouse is the decoded mouse state.
type Mouse struct {
	X, Y, Z float32
	Left    rc.KeyState
	Right   rc.KeyState
}

// Control is the decoded receiver state.
type Control struct {
	Ch     [4]float32
	Wheel  float32
	Switch [2]rc.SwitchState
	Mouse  Mouse
	Keys   rc.Keyboard
}

// Sticks implements rc.Sticks.
func (c Control) Sticks() [4]float32 { return c.Ch }

// Decoder implements rc.Decoder for DR16.
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

// Accept implements rc.Decoder. DR16 frames carry no sync bytes.
func (d *Decoder) Accept(buf []byte) bool { return len(buf) == FrameSize }

// Decode implements rc.Decoder.
func (d *Decoder) Decode(buf []byte) bool {
	r, err := Unpack(buf)
	if err != nil || !r.Valid() {
		return false
	}
	d.prev = d.cur
	c := &d.cur
	for i, ch := range r.Ch {
		c.Ch[i] = rc.Scale(ch)
	}
	c.Wheel = rc.Scale(r.Wheel)
	c.Switch[SwitchRight].Update(r.S1)
	c.Switch[SwitchLeft].Update(r.S2)
	c.Mouse.X = float32(r.MouseX) / 32768
	c.Mouse.Y = float32(r.MouseY) / 32768
	c.Mouse.Z = float32(r.MouseZ) / 32768
	c.Mouse.Left.Update(r.PressL == 1)
	c.Mouse.Right.Update(r.PressR == 1)
	c.Keys.Update(r.KeyCode)
	return true
}

// Snapshot implements rc.Decoder. It returns a Control.
func (d *Decoder) Snapshot() any { return d.cur }

// Previous implements rc.Decoder. It returns a Control.
func (d *Decoder) Previous() any { return d.prev }
