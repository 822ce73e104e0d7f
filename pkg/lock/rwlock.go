package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout indicates the lock was not acquired before the deadline.
var ErrTimeout = errors.New("lock timeout")

// gate is a binary semaphore. A token in the channel means the gate is free.
type gate chan struct{}

func newGate() gate {
	g := make(gate, 1)
	g <- struct{}{}
	return g
}

func (g gate) take() {
	<-g
}

func (g gate) takeContext(ctx context.Context) bool {
	select {
	case <-g:
		return true
	default:
	}
	select {
	case <-g:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g gate) give(what string) {
	select {
	case g <- struct{}{}:
	default:
		panic("lock: " + what + " of unlocked RWLock")
	}
}

func (g gate) held() bool {
	return len(g) == 0
}

// RWLock is a writer-preferring reader/writer lock.
//
// Readers pass the read gate and the first reader closes the write gate
// on behalf of all readers. The first waiting writer closes the read gate
// so no new reader can enter, then every writer takes the write gate for
// exclusive access. Timed acquisitions roll back completely on timeout.
type RWLock struct {
	mu             sync.Mutex
	readGate       gate
	writeGate      gate
	readers        int
	writersWaiting int
	// writers collectively own readGate.
	writersHoldRead bool
	writing         bool
}

// State is a snapshot of the internal lock state.
type State struct {
	Readers        int
	WritersWaiting int
	ReadGateHeld   bool
	WriteGateHeld  bool
}

// New creates a RWLock.
func New() *RWLock {
	return &RWLock{
		readGate:  newGate(),
		writeGate: newGate(),
	}
}

// RLock acquires the lock for reading.
func (l *RWLock) RLock() {
	l.readGate.take()
	l.mu.Lock()
	l.readers++
	first := l.readers == 1
	l.mu.Unlock()
	if first {
		l.writeGate.take()
	}
	l.readGate.give("RLock")
}

// RLockTimeout acquires the lock for reading within d.
func (l *RWLock) RLockTimeout(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.RLockContext(ctx) == nil
}

// RLockContext acquires the lock for reading until ctx is done.
func (l *RWLock) RLockContext(ctx context.Context) error {
	if !l.readGate.takeContext(ctx) {
		return ctxErr(ctx)
	}
	l.mu.Lock()
	l.readers++
	first := l.readers == 1
	l.mu.Unlock()
	if first && !l.writeGate.takeContext(ctx) {
		l.mu.Lock()
		l.readers--
		l.mu.Unlock()
		l.readGate.give("RLock rollback")
		return ctxErr(ctx)
	}
	l.readGate.give("RLock")
	return nil
}

// RUnlock releases a read lock.
func (l *RWLock) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readers <= 0 {
		panic("lock: RUnlock of unlocked RWLock")
	}
	l.readers--
	if l.readers == 0 {
		l.writeGate.give("RUnlock")
	}
}

// Lock acquires the lock for writing.
func (l *RWLock) Lock() {
	l.mu.Lock()
	l.writersWaiting++
	first := l.writersWaiting == 1
	l.mu.Unlock()
	if first {
		l.readGate.take()
		l.mu.Lock()
		l.writersHoldRead = true
		l.mu.Unlock()
	}
	l.writeGate.take()
	l.mu.Lock()
	l.writing = true
	l.mu.Unlock()
}

// LockTimeout acquires the lock for writing within d.
func (l *RWLock) LockTimeout(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.LockContext(ctx) == nil
}

// LockContext acquires the lock for writing until ctx is done.
func (l *RWLock) LockContext(ctx context.Context) error {
	l.mu.Lock()
	l.writersWaiting++
	first := l.writersWaiting == 1
	l.mu.Unlock()
	if first {
		if !l.readGate.takeContext(ctx) {
			l.mu.Lock()
			l.writersWaiting--
			l.mu.Unlock()
			return ctxErr(ctx)
		}
		l.mu.Lock()
		l.writersHoldRead = true
		l.mu.Unlock()
	}
	if !l.writeGate.takeContext(ctx) {
		l.mu.Lock()
		l.leaveWriterLocked()
		l.mu.Unlock()
		return ctxErr(ctx)
	}
	l.mu.Lock()
	l.writing = true
	l.mu.Unlock()
	return nil
}

// Unlock releases a write lock.
func (l *RWLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writing {
		panic("lock: Unlock of unlocked RWLock")
	}
	l.writing = false
	l.writeGate.give("Unlock")
	l.leaveWriterLocked()
}

func (l *RWLock) leaveWriterLocked() {
	l.writersWaiting--
	if l.writersWaiting == 0 && l.writersHoldRead {
		l.writersHoldRead = false
		l.readGate.give("Unlock")
	}
}

// State returns a snapshot of the lock state.
func (l *RWLock) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Readers:        l.readers,
		WritersWaiting: l.writersWaiting,
		ReadGateHeld:   l.readGate.held(),
		WriteGateHeld:  l.writeGate.held(),
	}
}

func ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
