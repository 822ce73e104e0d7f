// Package vt03 decodes VT03 image-link receiver frames.
package vt03

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/sigurn/crc16"

	"github.com/robotalks/rtio.go/pkg/rc"
)

// Protocol constants.
const (
	FrameSize = 21
	Sync0     = 0xA9
	Sync1     = 0x53
	Priority  = 0
	Period    = 14 * time.Millisecond
	Timeout   = 120 * time.Millisecond
	// BufferSize is the receive buffer of a VT03 port.
	BufferSize = 42
)

// ErrFrameSize indicates a buffer that is not FrameSize long.
var ErrFrameSize = errors.New("vt03: invalid frame size")

var crcTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Checksum computes the frame CRC over data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// Raw is the undecoded content of a frame.
type Raw struct {
	Ch      [4]uint16
	Gear    uint8
	Pause   uint8
	FnL     uint8
	FnR     uint8
	Wheel   uint16
	Trigger uint8
	MouseX  int16
	MouseY  int16
	MouseZ  int16
	PressL  uint8
	PressR  uint8
	PressM  uint8
	KeyCode uint16
	CRC     uint16
}

const mask11 = 0x7FF

// Unpack extracts the fields of a frame without validating it.
func Unpack(buf []byte) (r Raw, err error) {
	if len(buf) != FrameSize {
		return r, ErrFrameSize
	}
	bits := binary.LittleEndian.Uint64(buf[2:])
	for i := range r.Ch {
		r.Ch[i] = uint16(bits >> uint(i*11) & mask11)
	}
	r.Gear = uint8(bits >> 44 & 3)
	r.Pause = uint8(bits >> 46 & 1)
	r.FnL = uint8(bits >> 47 & 1)
	r.FnR = uint8(bits >> 48 & 1)
	r.Wheel = uint16(bits >> 49 & mask11)
	r.Trigger = uint8(bits >> 60 & 1)
	r.MouseX = int16(binary.LittleEndian.Uint16(buf[10:]))
	r.MouseY = int16(binary.LittleEndian.Uint16(buf[12:]))
	r.MouseZ = int16(binary.LittleEndian.Uint16(buf[14:]))
	r.PressL = buf[16] & 3
	r.PressR = buf[16] >> 2 & 3
	r.PressM = buf[16] >> 4 & 3
	r.KeyCode = binary.LittleEndian.Uint16(buf[17:])
	r.CRC = binary.LittleEndian.Uint16(buf[19:])
	return r, nil
}

// Pack encodes r as a frame with sync bytes and a computed CRC.
// r.CRC is ignored.
func Pack(r Raw) (buf [FrameSize]byte) {
	buf[0], buf[1] = Sync0, Sync1
	var bits uint64
	for i, ch := range r.Ch {
		bits |= uint64(ch&mask11) << uint(i*11)
	}
	bits |= uint64(r.Gear&3) << 44
	bits |= uint64(r.Pause&1) << 46
	bits |= uint64(r.FnL&1) << 47
	bits |= uint64(r.FnR&1) << 48
	bits |= uint64(r.Wheel&mask11) << 49
	bits |= uint64(r.Trigger&1) << 60
	binary.LittleEndian.PutUint64(buf[2:], bits)
	binary.LittleEndian.PutUint16(buf[10:], uint16(r.MouseX))
	binary.LittleEndian.PutUint16(buf[12:], uint16(r.MouseY))
	binary.LittleEndian.PutUint16(buf[14:], uint16(r.MouseZ))
	buf[16] = r.PressL&3 | (r.PressR&3)<<2 | (r.PressM&3)<<4
	binary.LittleEndian.PutUint16(buf[17:], r.KeyCode)
	binary.LittleEndian.PutUint16(buf[19:], Checksum(buf[:FrameSize-2]))
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
	Middle  rc.KeyState
}

// Control is the decoded receiver state.
type Control struct {
	Ch      [4]float32
	Wheel   float32
	Gear    rc.GearState
	FnL     rc.KeyState
	FnR     rc.KeyState
	Pause   rc.KeyState
	Trigger rc.KeyState
	Mouse   Mouse
	Keys    rc.Keyboard
}

// Sticks implements rc.Sticks.
func (c Control) Sticks() [4]float32 { return c.Ch }

// Decoder implements rc.Decoder for VT03.
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

// Accept implements rc.Decoder.
func (d *Decoder) Accept(buf []byte) bool {
	return len(buf) == FrameSize && buf[0] == Sync0 && buf[1] == Sync1
}

// Decode implements rc.Decoder.
func (d *Decoder) Decode(buf []byte) bool {
	r, err := Unpack(buf)
	if err != nil || !r.Valid() || Checksum(buf[:FrameSize-2]) != r.CRC {
		return false
	}
	d.prev = d.cur
	c := &d.cur
	for i, ch := range r.Ch {
		c.Ch[i] = rc.Scale(ch)
	}
	c.Wheel = rc.Scale(r.Wheel)
	c.Gear.Update(r.Gear)
	c.FnL.Update(r.FnL == 1)
	c.FnR.Update(r.FnR == 1)
	c.Pause.Update(r.Pause == 1)
	c.Trigger.Update(r.Trigger == 1)
	c.Mouse.X = float32(r.MouseX) / 32768
	c.Mouse.Y = float32(r.MouseY) / 32768
	c.Mouse.Z = float32(r.MouseZ) / 32768
	c.Mouse.Left.Update(r.PressL == 1)
	c.Mouse.Right.Update(r.PressR == 1)
	c.Mouse.Middle.Update(r.PressM == 1)
	c.Keys.Update(r.KeyCode)
	return true
}

// Snapshot implements rc.Decoder. It returns a Control.
func (d *Decoder) Snapshot() any { return d.cur }

// Previous implements rc.Decoder. It returns a Control.
func (d *Decoder) Previous() any { return d.prev }
