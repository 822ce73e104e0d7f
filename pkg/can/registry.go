package can

import (
	"context"
	"sort"
	"sync"
)

// Registry owns the dispatchers of all buses and the merge frames
// transmitted on them.
type Registry struct {
	now Clock

	lock        sync.RWMutex
	dispatchers map[BusID]*Dispatcher
	merges      map[MergeKey]*MergeFrame
	policy      MergePolicy
}

// NewRegistry creates an empty registry using the system clock.
func NewRegistry() *Registry {
	return NewRegistryWithClock(nil)
}

// NewRegistryWithClock creates an empty registry with a custom clock.
func NewRegistryWithClock(clock Clock) *Registry {
	if clock == nil {
		clock = systemClock
	}
	return &Registry{
		now:         clock,
		dispatchers: make(map[BusID]*Dispatcher),
		merges:      make(map[MergeKey]*MergeFrame),
	}
}

// SetDefaultPolicy sets the policy of merge frames created afterwards.
func (r *Registry) SetDefaultPolicy(p MergePolicy) {
	r.lock.Lock()
	r.policy = p
	r.lock.Unlock()
}

// AddBus attaches a transport and creates its dispatcher.
func (r *Registry) AddBus(bus BusID, t Transport) (*Dispatcher, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.dispatchers[bus]; ok {
		return nil, ErrAlreadyRegistered
	}
	d := newDispatcher(bus, t, r.now)
	r.dispatchers[bus] = d
	return d, nil
}

// Dispatcher returns the dispatcher of a bus.
func (r *Registry) Dispatcher(bus BusID) (*Dispatcher, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if d := r.dispatchers[bus]; d != nil {
		return d, nil
	}
	return nil, ErrNotFound
}

// Dispatchers lists all dispatchers ordered by bus.
func (r *Registry) Dispatchers() []*Dispatcher {
	r.lock.RLock()
	list := make([]*Dispatcher, 0, len(r.dispatchers))
	for _, d := range r.dispatchers {
		list = append(list, d)
	}
	r.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Bus < list[j].Bus })
	return list
}

// RegisterReceiver creates the receive buffer for id on bus.
func (r *Registry) RegisterReceiver(bus BusID, id uint32) (*RxBuffer, error) {
	d, err := r.Dispatcher(bus)
	if err != nil {
		return nil, err
	}
	return d.Register(id)
}

// Dispatch stores a received payload. ErrNotFound means no receiver.
func (r *Registry) Dispatch(bus BusID, id uint32, data []byte) error {
	d, err := r.Dispatcher(bus)
	if err != nil {
		return err
	}
	return d.Dispatch(id, data)
}

// Send transmits one standard 8-byte frame on bus.
func (r *Registry) Send(ctx context.Context, bus BusID, id uint32, data [8]byte) error {
	d, err := r.Dispatcher(bus)
	if err != nil {
		return &TransmitError{Bus: bus, ID: id, Err: err}
	}
	return d.Send(ctx, id, data)
}

// MergeFrame returns the merge frame for (bus, id), creating it on first use.
func (r *Registry) MergeFrame(bus BusID, id uint32) *MergeFrame {
	key := MergeKey{Bus: bus, ID: id}
	r.lock.RLock()
	m := r.merges[key]
	r.lock.RUnlock()
	if m != nil {
		return m
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	if m = r.merges[key]; m == nil {
		m = &MergeFrame{Key: key, reg: r, policy: r.policy}
		r.merges[key] = m
	}
	return m
}

// MergeFrames lists all merge frames ordered by key.
func (r *Registry) MergeFrames() []*MergeFrame {
	r.lock.RLock()
	list := make([]*MergeFrame, 0, len(r.merges))
	for _, m := range r.merges {
		list = append(list, m)
	}
	r.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Key.Bus != list[j].Key.Bus {
			return list[i].Key.Bus < list[j].Key.Bus
		}
		return list[i].Key.ID < list[j].Key.ID
	})
	return list
}
