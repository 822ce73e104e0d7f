package can

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRegistered indicates a bus, receiver or slot is already registered.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNotRegistered indicates the merge slot was never registered.
	ErrNotRegistered = errors.New("not registered")
	// ErrNotFound indicates no receiver or bus is registered for the key.
	// Dispatching an unknown frame id is not fatal.
	ErrNotFound = errors.New("not found")
	// ErrTransmitFailed is matched by all transmit errors.
	ErrTransmitFailed = errors.New("transmit failed")
	// ErrBusy indicates the transport is saturated. Callers may retry on
	// their next cycle.
	ErrBusy = errors.New("transport busy")
	// ErrTimeout indicates the transport did not accept the frame in time.
	ErrTimeout = errors.New("transport timeout")
	// ErrSlotRange indicates a merge slot index out of range.
	ErrSlotRange = errors.New("slot index out of range")
	// ErrClosed indicates the transport is closed.
	ErrClosed = errors.New("transport closed")
	// ErrInvalidID indicates the identifier does not fit the frame format.
	ErrInvalidID = errors.New("invalid identifier")
	// ErrInvalidLen indicates a data length over 8 bytes.
	ErrInvalidLen = errors.New("invalid data length")
)

// TransmitError wraps a transport failure with the frame it was sending.
type TransmitError struct {
	Bus BusID
	ID  uint32
	Err error
}

// Error implements error.
func (e *TransmitError) Error() string {
	return fmt.Sprintf("transmit %s:%03X failed: %v", e.Bus, e.ID, e.Err)
}

// Unwrap returns the transport error.
func (e *TransmitError) Unwrap() error {
	return e.Err
}

// Is makes every TransmitError match ErrTransmitFailed.
func (e *TransmitError) Is(target error) bool {
	return target == ErrTransmitFailed
}
