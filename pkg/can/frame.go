package can

import "fmt"

// BusID identifies a physical CAN bus.
type BusID uint8

// String implements fmt.Stringer.
func (b BusID) String() string {
	return fmt.Sprintf("can%d", uint8(b))
}

// Frame is a classical CAN data frame.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8
	Data     [8]byte
}

const (
	maxStdID = 0x7FF
	maxExtID = 0x1FFFFFFF
)

// NewFrame creates a standard 8-byte data frame.
func NewFrame(id uint32, data [8]byte) Frame {
	return Frame{ID: id, Len: 8, Data: data}
}

// Validate returns an error if the frame cannot be put on the wire.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if f.Extended {
		if f.ID > maxExtID {
			return ErrInvalidID
		}
	} else if f.ID > maxStdID {
		return ErrInvalidID
	}
	return nil
}

// Payload returns the valid data bytes.
func (f Frame) Payload() []byte {
	n := f.Len
	if n > 8 {
		n = 8
	}
	return f.Data[:n]
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%03X#% X", f.ID, f.Payload())
}
