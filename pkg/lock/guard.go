package lock

import (
	"sync"
	"time"
)

// Guard holds a scoped read or write acquisition of a RWLock.
// Release is idempotent so it can always be deferred.
type Guard struct {
	release func()
	once    sync.Once
}

// Release releases the acquisition.
func (g *Guard) Release() {
	g.once.Do(g.release)
}

// ReadScope blocks until l is read-locked and returns the guard.
func ReadScope(l *RWLock) *Guard {
	l.RLock()
	return &Guard{release: l.RUnlock}
}

// WriteScope blocks until l is write-locked and returns the guard.
func WriteScope(l *RWLock) *Guard {
	l.Lock()
	return &Guard{release: l.Unlock}
}

// ReadScopeTimeout read-locks l within d. The guard is nil on timeout.
func ReadScopeTimeout(l *RWLock, d time.Duration) (*Guard, bool) {
	if !l.RLockTimeout(d) {
		return nil, false
	}
	return &Guard{release: l.RUnlock}, true
}

// WriteScopeTimeout write-locks l within d. The guard is nil on timeout.
func WriteScopeTimeout(l *RWLock, d time.Duration) (*Guard, bool) {
	if !l.LockTimeout(d) {
		return nil, false
	}
	return &Guard{release: l.Unlock}, true
}
