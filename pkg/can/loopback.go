package can

import (
	"context"
	"sync"
)

// Loopback is an in-memory Transport for tests and simulation.
// Transmitted frames are recorded and, with Echo set, delivered back to
// the receive side as if a peer had answered on the same id.
type Loopback struct {
	Echo bool

	rxCh   chan Frame
	done   chan struct{}
	lock   sync.Mutex
	sent   []Frame
	fail   func(Frame) error
	closed bool
}

// NewLoopback creates a Loopback with a receive backlog of size.
func NewLoopback(size int) *Loopback {
	if size <= 0 {
		size = 64
	}
	return &Loopback{
		rxCh: make(chan Frame, size),
		done: make(chan struct{}),
	}
}

// FailWith installs a hook deciding whether a transmit fails.
func (l *Loopback) FailWith(fn func(Frame) error) {
	l.lock.Lock()
	l.fail = fn
	l.lock.Unlock()
}

// Transmit implements Transport.
func (l *Loopback) Transmit(ctx context.Context, f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	l.lock.Lock()
	if l.closed {
		l.lock.Unlock()
		return ErrClosed
	}
	if l.fail != nil {
		if err := l.fail(f); err != nil {
			l.lock.Unlock()
			return err
		}
	}
	l.sent = append(l.sent, f)
	l.lock.Unlock()
	if l.Echo {
		return l.Inject(ctx, f)
	}
	return nil
}

// Inject delivers a frame to the receive side.
func (l *Loopback) Inject(ctx context.Context, f Frame) error {
	select {
	case l.rxCh <- f:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive implements Transport.
func (l *Loopback) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-l.rxCh:
		return f, nil
	case <-l.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Sent returns a copy of all transmitted frames.
func (l *Loopback) Sent() []Frame {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]Frame(nil), l.sent...)
}

// Reset forgets transmitted frames.
func (l *Loopback) Reset() {
	l.lock.Lock()
	l.sent = nil
	l.lock.Unlock()
}

// Close implements Transport.
func (l *Loopback) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}
