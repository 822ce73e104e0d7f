package can

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// StallMode decides what a merge frame does while some slots lag behind.
type StallMode int

// Stall modes.
const (
	// StallHold waits until every in-use slot is updated.
	StallHold StallMode = iota
	// StallFlushStale transmits after Timeout using the last known values
	// of the missing slots.
	StallFlushStale
	// StallFlushZero transmits after Timeout with zero in the missing slots.
	StallFlushZero
)

var stallModeNames = map[StallMode]string{
	StallHold:       "hold",
	StallFlushStale: "flush-stale",
	StallFlushZero:  "flush-zero",
}

func (m StallMode) String() string {
	if s, ok := stallModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("StallMode(%d)", int(m))
}

// ParseStallMode converts a name produced by StallMode.String.
func ParseStallMode(s string) (StallMode, error) {
	if s == "" {
		return StallHold, nil
	}
	for m, name := range stallModeNames {
		if name == s {
			return m, nil
		}
	}
	return StallHold, fmt.Errorf("unknown stall mode %q", s)
}

// MergePolicy configures stall handling of a MergeFrame.
type MergePolicy struct {
	Mode    StallMode
	Timeout time.Duration
}

func (p MergePolicy) flushes() bool {
	return p.Mode != StallHold && p.Timeout > 0
}

// MergeKey identifies a merge frame.
type MergeKey struct {
	Bus BusID
	ID  uint32
}

func (k MergeKey) String() string {
	return fmt.Sprintf("%s:%03X", k.Bus, k.ID)
}

type mergeSlot struct {
	inUse bool
	dirty bool
	value int16
}

// MergeFrame combines up to four int16 values from independent producers
// into one outgoing frame. A round completes when every in-use slot has
// been updated; the frame is then transmitted and all slots become clean.
type MergeFrame struct {
	Key MergeKey

	reg *Registry

	lock       sync.Mutex
	slots      [SlotCount]mergeSlot
	policy     MergePolicy
	roundStart time.Time

	rounds   uint32
	partials uint32
	failures uint32
}

// MergeStatus is a snapshot of a MergeFrame.
type MergeStatus struct {
	Key      MergeKey
	Policy   MergePolicy
	InUse    []int
	Dirty    []int
	Missing  []int
	Values   [SlotCount]int16
	Rounds   uint32
	Partials uint32
	Failures uint32
}

// SetPolicy replaces the stall policy.
func (m *MergeFrame) SetPolicy(p MergePolicy) {
	m.lock.Lock()
	m.policy = p
	m.lock.Unlock()
}

// RegisterSlot claims a slot for one producer.
func (m *MergeFrame) RegisterSlot(idx int) error {
	if idx < 0 || idx >= SlotCount {
		return ErrSlotRange
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.slots[idx].inUse {
		return ErrAlreadyRegistered
	}
	m.slots[idx].inUse = true
	return nil
}

// UpdateSlot stores a value and transmits the frame when the round
// completes, or when the stall policy flushes a partial round.
func (m *MergeFrame) UpdateSlot(ctx context.Context, idx int, v int16) error {
	if idx < 0 || idx >= SlotCount {
		return ErrSlotRange
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	s := &m.slots[idx]
	if !s.inUse {
		return ErrNotRegistered
	}
	now := m.reg.now()
	if m.roundStart.IsZero() {
		m.roundStart = now
	}
	s.value, s.dirty = v, true

	complete := true
	for i := range m.slots {
		if m.slots[i].inUse && !m.slots[i].dirty {
			complete = false
			break
		}
	}
	if complete {
		m.rounds++
		return m.transmitLocked(ctx, false)
	}
	if m.policy.flushes() && now.Sub(m.roundStart) >= m.policy.Timeout {
		m.partials++
		if glog.V(3) {
			glog.Infof("merge %s: flush partial round, missing %v", m.Key, m.missingLocked())
		}
		return m.transmitLocked(ctx, m.policy.Mode == StallFlushZero)
	}
	return nil
}

func (m *MergeFrame) transmitLocked(ctx context.Context, zeroMissing bool) error {
	var values [SlotCount]int16
	for i := range m.slots {
		s := &m.slots[i]
		if s.dirty || !zeroMissing {
			values[i] = s.value
		}
		s.dirty = false
	}
	m.roundStart = time.Time{}
	err := m.reg.Send(ctx, m.Key.Bus, m.Key.ID, EncodeSlots(values))
	if err != nil {
		m.failures++
		glog.Warningf("merge %s: %v", m.Key, err)
	}
	return err
}

func (m *MergeFrame) missingLocked() (missing []int) {
	for i, s := range m.slots {
		if s.inUse && !s.dirty {
			missing = append(missing, i)
		}
	}
	return
}

// Status returns the current slot state and counters.
func (m *MergeFrame) Status() MergeStatus {
	m.lock.Lock()
	defer m.lock.Unlock()
	st := MergeStatus{
		Key:      m.Key,
		Policy:   m.policy,
		Missing:  m.missingLocked(),
		Rounds:   m.rounds,
		Partials: m.partials,
		Failures: m.failures,
	}
	for i, s := range m.slots {
		st.Values[i] = s.value
		if s.inUse {
			st.InUse = append(st.InUse, i)
		}
		if s.dirty {
			st.Dirty = append(st.Dirty, i)
		}
	}
	return st
}
