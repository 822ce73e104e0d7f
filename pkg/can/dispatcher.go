package can

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"
)

// Dispatcher routes received frames of one bus into registered RxBuffers.
type Dispatcher struct {
	Bus       BusID
	Transport Transport

	now     Clock
	lock    sync.RWMutex
	buffers map[uint32]*RxBuffer

	received atomix.Uint32
	unknown  atomix.Uint32
}

// DispatcherStats reports dispatcher counters.
type DispatcherStats struct {
	Bus       BusID
	Receivers int
	Received  uint32
	Unknown   uint32
}

func newDispatcher(bus BusID, t Transport, now Clock) *Dispatcher {
	return &Dispatcher{
		Bus:       bus,
		Transport: t,
		now:       now,
		buffers:   make(map[uint32]*RxBuffer),
	}
}

// Name implements framework.Named.
func (d *Dispatcher) Name() string {
	return "dispatcher." + d.Bus.String()
}

// Register creates the RxBuffer for a frame id.
func (d *Dispatcher) Register(id uint32) (*RxBuffer, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, ok := d.buffers[id]; ok {
		return nil, ErrAlreadyRegistered
	}
	buf := &RxBuffer{ID: id}
	d.buffers[id] = buf
	return buf, nil
}

// Dispatch copies data into the buffer registered for id.
// It returns ErrNotFound when nobody registered the id.
func (d *Dispatcher) Dispatch(id uint32, data []byte) error {
	d.received.Add(1)
	d.lock.RLock()
	buf := d.buffers[id]
	d.lock.RUnlock()
	if buf == nil {
		d.unknown.Add(1)
		return ErrNotFound
	}
	buf.store(data, d.now())
	return nil
}

// Send transmits a standard 8-byte frame on this bus.
func (d *Dispatcher) Send(ctx context.Context, id uint32, data [8]byte) error {
	if err := d.Transport.Transmit(ctx, NewFrame(id, data)); err != nil {
		return &TransmitError{Bus: d.Bus, ID: id, Err: err}
	}
	return nil
}

// Run implements Runnable. It receives frames until the transport closes
// or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		f, err := d.Transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) {
				glog.Infof("%s: transport closed", d.Bus)
				return nil
			}
			return err
		}
		if err = d.Dispatch(f.ID, f.Payload()); err != nil && glog.V(5) {
			glog.Infof("%s: drop %s: %v", d.Bus, f, err)
		}
	}
}

// Stats returns the dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	d.lock.RLock()
	n := len(d.buffers)
	d.lock.RUnlock()
	return DispatcherStats{
		Bus:       d.Bus,
		Receivers: n,
		Received:  d.received.Load(),
		Unknown:   d.unknown.Load(),
	}
}

func systemClock() time.Time {
	return time.Now()
}
