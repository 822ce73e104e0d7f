package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/capture"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/rc/dr16"
	"github.com/robotalks/rtio.go/pkg/rc/joystick"
	"github.com/robotalks/rtio.go/pkg/rc/vt03"
	"github.com/robotalks/rtio.go/pkg/system"
)

// Protocol describes a receiver protocol.
type Protocol struct {
	FrameSize  int
	BufferSize int
	Priority   int
	Period     time.Duration
	Timeout    time.Duration
	NewDecoder func() rc.Decoder
}

var (
	dr16Protocol = Protocol{
		FrameSize:  dr16.FrameSize,
		BufferSize: dr16.BufferSize,
		Priority:   dr16.Priority,
		Period:     dr16.Period,
		Timeout:    dr16.Timeout,
		NewDecoder: func() rc.Decoder { return dr16.New() },
	}
	vt03Protocol = Protocol{
		FrameSize:  vt03.FrameSize,
		BufferSize: vt03.BufferSize,
		Priority:   vt03.Priority,
		Period:     vt03.Period,
		Timeout:    vt03.Timeout,
		NewDecoder: func() rc.Decoder { return vt03.New() },
	}
	joystickProtocol = Protocol{
		FrameSize:  joystick.FrameSize,
		BufferSize: joystick.BufferSize,
		Priority:   joystick.Priority,
		Period:     joystick.Period,
		Timeout:    joystick.Timeout,
		NewDecoder: func() rc.Decoder { return joystick.New() },
	}
)

// OpenDevice opens a receive device. It is replaced in tests.
var OpenDevice = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// OpenTransport opens a bus transport from its spec.
func OpenTransport(spec string, backlog int) (can.Transport, error) {
	kind, arg, err := ParseTransport(spec)
	if err != nil {
		return nil, err
	}
	if kind == "loopback" {
		return can.NewLoopback(backlog), nil
	}
	return openSocketCAN(arg, backlog)
}

// NodeName returns the node id chosen by flags, then the file.
func (c *Config) NodeName(f *File, fallback func() string) string {
	switch {
	case c.NodeID != "":
		return c.NodeID
	case f.Node != "":
		return f.Node
	}
	return fallback()
}

// NewSystem builds a system from the file. Transports opened before a
// failure are closed.
func (f *File) NewSystem(node string) (_ *system.System, err error) {
	sys := system.New(node)
	var closers []io.Closer
	defer func() {
		if err != nil {
			sys.Close()
			for _, c := range closers {
				c.Close()
			}
		}
	}()

	if f.Loop > 0 {
		sys.Loop.Interval = f.Loop
	}

	for _, b := range f.Buses {
		t, err := OpenTransport(b.Transport, b.Backlog)
		if err != nil {
			return nil, fmt.Errorf("bus %d: %w", b.ID, err)
		}
		if err := sys.AddBus(can.BusID(b.ID), t); err != nil {
			t.Close()
			return nil, fmt.Errorf("bus %d: %w", b.ID, err)
		}
	}

	mode, err := can.ParseStallMode(f.Merge.Stall)
	if err != nil {
		return nil, err
	}
	sys.Registry.SetDefaultPolicy(can.MergePolicy{Mode: mode, Timeout: f.Merge.Timeout})

	// motors create their merge frames, the overrides apply afterwards.
	for _, mc := range f.Motors {
		model, err := motor.ParseModel(mc.Model)
		if err != nil {
			return nil, err
		}
		m, err := motor.New(sys.Registry, mc.Name, can.BusID(mc.Bus), model, mc.ID)
		if err != nil {
			return nil, err
		}
		if mc.Enabled {
			m.Enable()
		}
		sys.AddMotor(m)
		if mc.Channel != nil {
			sys.Bind(m, *mc.Channel, mc.Scale)
		}
	}
	for _, fc := range f.Merge.Frames {
		mode, err := can.ParseStallMode(fc.Stall)
		if err != nil {
			return nil, err
		}
		sys.Registry.MergeFrame(can.BusID(fc.Bus), fc.ID).SetPolicy(can.MergePolicy{Mode: mode, Timeout: fc.Timeout})
	}

	for _, pc := range f.Ports {
		size := pc.BufferSize
		if size == 0 {
			size = f.defaultBufferSize(pc.Name)
		}
		dev, err := OpenDevice(pc.Device)
		if err != nil {
			return nil, fmt.Errorf("port %s: %w", pc.Name, err)
		}
		if pc.IdleGap >= 0 {
			dev = capture.NewIdleReader(dev, pc.IdleGap)
		}
		closers = append(closers, dev)
		sys.AddPort(system.NewPort(pc.Name, dev, dev, size))
		glog.V(2).Infof("port %s: %s, buffer %d", pc.Name, pc.Device, size)
	}

	for _, lc := range f.Links {
		proto := Protocols[lc.Protocol]
		timeout := lc.Timeout
		if timeout == 0 {
			timeout = proto.Timeout
		}
		link, err := rc.NewLink(lc.Name, lc.priority(proto), proto.NewDecoder(), sys.Group.Mask, rc.LinkOptions{
			Period:     proto.Period,
			Timeout:    timeout,
			QueueDepth: lc.QueueDepth,
		})
		if err != nil {
			return nil, fmt.Errorf("link %s: %w", lc.Name, err)
		}
		port := sys.Port(lc.Port)
		if port == nil {
			return nil, fmt.Errorf("link %s: unknown port %q", lc.Name, lc.Port)
		}
		if err := sys.AttachLink(port, link); err != nil {
			return nil, fmt.Errorf("link %s: %w", lc.Name, err)
		}
	}
	return sys, nil
}

func (f *File) defaultBufferSize(port string) int {
	size := 0
	for _, l := range f.Links {
		if p, ok := Protocols[l.Protocol]; ok && l.Port == port && p.BufferSize > size {
			size = p.BufferSize
		}
	}
	if size == 0 {
		size = 64
	}
	return size
}
