package can

import (
	"context"
	"time"
)

// Transport is a physical bus endpoint.
type Transport interface {
	// Transmit puts the frame on the bus.
	Transmit(context.Context, Frame) error
	// Receive blocks until a frame arrives.
	Receive(context.Context) (Frame, error)
	// Close releases the endpoint. Pending Receive calls return ErrClosed.
	Close() error
}

// Clock provides monotonic timestamps.
type Clock func() time.Time
