package can

import (
	"sync"
	"time"
)

// RxBuffer holds the latest payload received for one frame id.
// It is written only by its Dispatcher and read through copies.
type RxBuffer struct {
	ID uint32

	lock    sync.Mutex
	data    [8]byte
	fresh   bool
	updated time.Time
}

func (b *RxBuffer) store(data []byte, now time.Time) {
	b.lock.Lock()
	b.data = [8]byte{}
	copy(b.data[:], data)
	b.fresh = true
	b.updated = now
	b.lock.Unlock()
}

// ReadLatest returns a copy of the latest payload.
func (b *RxBuffer) ReadLatest() [8]byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.data
}

// Read returns the latest payload with its freshness and update time,
// and marks the buffer read.
func (b *RxBuffer) Read() (data [8]byte, fresh bool, updated time.Time) {
	b.lock.Lock()
	defer b.lock.Unlock()
	data, fresh, updated = b.data, b.fresh, b.updated
	b.fresh = false
	return
}

// IsFresh indicates new data arrived since the last Read or MarkRead.
func (b *RxBuffer) IsFresh() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.fresh
}

// MarkRead clears the freshness flag.
func (b *RxBuffer) MarkRead() {
	b.lock.Lock()
	b.fresh = false
	b.lock.Unlock()
}

// LastUpdate returns the time of the latest dispatch, zero if none.
func (b *RxBuffer) LastUpdate() time.Time {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.updated
}
