// Package diag provides diagnostic shell commands over a running system.
package diag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/lock"
	"github.com/robotalks/rtio.go/pkg/system"
	"github.com/robotalks/rtio.go/pkg/telemetry"
	"github.com/robotalks/rtio.go/pkg/telemetry/msgs"
)

// ReadTimeout bounds waiting for a link snapshot.
const ReadTimeout = 100 * time.Millisecond

var (
	// ErrNoActiveLink indicates no link currently drives the controls.
	ErrNoActiveLink = errors.New("no active link")
	// ErrBusy indicates the link lock was not acquired in time.
	ErrBusy = errors.New("link busy")
)

// Links returns the status of all links in priority order.
func Links(sys *system.System) []*msgs.LinkStatus {
	links := sys.Group.Links()
	result := make([]*msgs.LinkStatus, 0, len(links))
	for _, l := range links {
		result = append(result, telemetry.LinkStatusOf(l.Status()))
	}
	return result
}

// Snapshot reads the latest controls of the named link, or the active
// link when name is empty.
func Snapshot(sys *system.System, name string) (*msgs.RCSnapshot, error) {
	l := sys.Group.Active()
	if name != "" {
		l = sys.Group.Link(name)
		if l == nil {
			return nil, fmt.Errorf("link %q: %w", name, system.ErrNotFound)
		}
	}
	if l == nil {
		return nil, ErrNoActiveLink
	}
	var snapshot *msgs.RCSnapshot
	if !l.ReadTimeout(ReadTimeout, func(s any) { snapshot = telemetry.SnapshotFrom(l.Name(), s) }) {
		return nil, fmt.Errorf("link %q: %w", l.Name(), ErrBusy)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("link %q: unsupported snapshot", l.Name())
	}
	return snapshot, nil
}

// LockState returns the state of the named link's lock.
func LockState(sys *system.System, name string) (lock.State, error) {
	l := sys.Group.Link(name)
	if l == nil {
		return lock.State{}, fmt.Errorf("link %q: %w", name, system.ErrNotFound)
	}
	return l.Lock().State(), nil
}

// Frames returns the status of all merge frames.
func Frames(sys *system.System) []*msgs.MergeStatus {
	frames := sys.Registry.MergeFrames()
	result := make([]*msgs.MergeStatus, 0, len(frames))
	for _, m := range frames {
		result = append(result, telemetry.MergeStatusOf(m.Status()))
	}
	return result
}

// Buses returns the dispatcher stats of all buses.
func Buses(sys *system.System) []*msgs.BusStats {
	var result []*msgs.BusStats
	for _, d := range sys.Registry.Dispatchers() {
		result = append(result, telemetry.BusStatsOf(d.Stats()))
	}
	return result
}

// Pipelines returns the capture stats of all ports.
func Pipelines(sys *system.System) []*msgs.PipelineStats {
	var result []*msgs.PipelineStats
	for _, p := range sys.Pipelines() {
		result = append(result, telemetry.PipelineStatsOf(p.Name, p.Stats()))
	}
	return result
}

// SetMotor applies "on", "off" or "torque VALUE" to the named motor.
func SetMotor(sys *system.System, name string, args ...string) error {
	m := sys.Motor(name)
	if m == nil {
		return fmt.Errorf("motor %q: %w", name, system.ErrNotFound)
	}
	if len(args) == 0 {
		return fmt.Errorf("motor %q: action expected", name)
	}
	switch args[0] {
	case "on":
		m.Enable()
	case "off":
		m.Disable()
	case "torque":
		if len(args) < 2 {
			return fmt.Errorf("motor %q: torque value expected", name)
		}
		v, err := strconv.ParseFloat(args[1], 32)
		if err != nil {
			return fmt.Errorf("motor %q: %w", name, err)
		}
		m.SetTorque(float32(v))
	default:
		return fmt.Errorf("motor %q: unknown action %q", name, args[0])
	}
	return nil
}

// WriteSlot updates one slot of an existing merge frame. Bus, id and
// slot accept any integer literal.
func WriteSlot(ctx context.Context, sys *system.System, bus, id, slot, value string) error {
	b, err := strconv.ParseUint(bus, 0, 8)
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	i, err := strconv.ParseUint(id, 0, 32)
	if err != nil {
		return fmt.Errorf("id: %w", err)
	}
	idx, err := strconv.Atoi(slot)
	if err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	v, err := strconv.ParseInt(value, 0, 16)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	key := can.MergeKey{Bus: can.BusID(b), ID: uint32(i)}
	for _, m := range sys.Registry.MergeFrames() {
		if m.Key == key {
			return m.UpdateSlot(ctx, idx, int16(v))
		}
	}
	return fmt.Errorf("merge frame %s: %w", key, system.ErrNotFound)
}
