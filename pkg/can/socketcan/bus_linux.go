//go:build linux

// Package socketcan attaches a Linux SocketCAN interface as a can.Transport.
package socketcan

import (
	"context"
	"fmt"
	"net"
	"sync"

	bcan "github.com/brutella/can"
	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/can"
)

// linux can_id flags and masks
const (
	effFlag = 0x80000000
	rtrFlag = 0x40000000
	errFlag = 0x20000000
	effMask = 0x1FFFFFFF
	sffMask = 0x7FF
)

// fromWire converts a received frame. Remote and error frames are not
// data frames and are refused.
func fromWire(f bcan.Frame) (can.Frame, bool) {
	if f.ID&(rtrFlag|errFlag) != 0 {
		return can.Frame{}, false
	}
	frame := can.Frame{ID: f.ID & sffMask, Len: f.Length, Data: f.Data}
	if f.ID&effFlag != 0 {
		frame.ID = f.ID & effMask
		frame.Extended = true
	}
	return frame, true
}

func toWire(f can.Frame) bcan.Frame {
	id := f.ID
	if f.Extended {
		id |= effFlag
	}
	return bcan.Frame{ID: id, Length: f.Len, Data: f.Data}
}

// Bus is a SocketCAN interface opened through github.com/brutella/can.
type Bus struct {
	Interface string

	bus  *bcan.Bus
	rxCh chan can.Frame
	done chan struct{}
	once sync.Once
}

// Open binds the named interface (e.g. can0) and starts reading from it.
func Open(name string, backlog int) (*Bus, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("socketcan %s: %w", name, err)
	}
	conn, err := bcan.NewReadWriteCloserForInterface(iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan %s: %w", name, err)
	}
	if backlog <= 0 {
		backlog = 256
	}
	b := &Bus{
		Interface: name,
		bus:       bcan.NewBus(conn),
		rxCh:      make(chan can.Frame, backlog),
		done:      make(chan struct{}),
	}
	b.bus.SubscribeFunc(b.handle)
	go b.publish()
	return b, nil
}

func (b *Bus) publish() {
	if err := b.bus.ConnectAndPublish(); err != nil {
		glog.Errorf("socketcan %s: %v", b.Interface, err)
	}
	b.shutdown()
}

func (b *Bus) handle(f bcan.Frame) {
	frame, ok := fromWire(f)
	if !ok {
		if glog.V(4) {
			glog.Infof("socketcan %s: skip frame %08X", b.Interface, f.ID)
		}
		return
	}
	select {
	case b.rxCh <- frame:
	case <-b.done:
	default:
		if glog.V(4) {
			glog.Infof("socketcan %s: backlog full, drop %s", b.Interface, frame)
		}
	}
}

// Transmit implements can.Transport.
func (b *Bus) Transmit(ctx context.Context, f can.Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	select {
	case <-b.done:
		return can.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return b.bus.Publish(toWire(f))
}

// Receive implements can.Transport.
func (b *Bus) Receive(ctx context.Context) (can.Frame, error) {
	select {
	case f := <-b.rxCh:
		return f, nil
	case <-b.done:
		return can.Frame{}, can.ErrClosed
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	}
}

// Close implements can.Transport.
func (b *Bus) Close() error {
	err := b.bus.Disconnect()
	b.shutdown()
	return err
}

func (b *Bus) shutdown() {
	b.once.Do(func() { close(b.done) })
}
