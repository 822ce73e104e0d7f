// Package system composes buses, receive ports, receiver links and motors
// into one runnable unit.
package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/capture"
	fx "github.com/robotalks/rtio.go/pkg/framework"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
)

// ErrNotFound indicates an unknown link, port or motor name.
var ErrNotFound = errors.New("not found")

// Port is a receive port feeding a capture pipeline.
type Port struct {
	Name     string
	Stream   *capture.StreamPort
	Pipeline *capture.Pipeline

	closer io.Closer
}

// NewPort creates a Port reading r. A nil closer is allowed for readers
// that stop on their own.
func NewPort(name string, r io.Reader, closer io.Closer, bufSize int) *Port {
	stream := capture.NewStreamPort(name, r)
	pipeline := capture.NewPipeline(stream, bufSize)
	pipeline.Name = name
	return &Port{Name: name, Stream: stream, Pipeline: pipeline, closer: closer}
}

// Run implements framework.Runnable. It arms the pipeline and reads until
// ctx is done or the reader ends.
func (p *Port) Run(ctx context.Context) error {
	if err := p.Pipeline.Start(); err != nil {
		return err
	}
	if p.closer == nil {
		return p.Stream.Run(ctx, p.Pipeline)
	}
	return fx.RunWithContextCloser(ctx, p.closer, func() error {
		return p.Stream.Run(ctx, p.Pipeline)
	})
}

// System is a complete I/O node.
type System struct {
	Node     string
	Registry *can.Registry
	Group    *rc.Group
	Ports    []*Port
	Motors   []*motor.Motor
	Mixer    *motor.Mixer
	Loop     *fx.Loop

	transports []can.Transport
	homes      map[string]*Port
}

// New creates an empty System.
func New(node string) *System {
	return &System{
		Node:     node,
		Registry: can.NewRegistry(),
		Group:    rc.NewGroup(nil),
		Loop:     fx.NewLoop(),
	}
}

// AddBus attaches a transport to the registry. The System closes it on exit.
func (s *System) AddBus(bus can.BusID, t can.Transport) error {
	if _, err := s.Registry.AddBus(bus, t); err != nil {
		return err
	}
	s.transports = append(s.transports, t)
	return nil
}

// AddPort adds a receive port.
func (s *System) AddPort(p *Port) {
	s.Ports = append(s.Ports, p)
}

// Port finds a port by name.
func (s *System) Port(name string) *Port {
	for _, p := range s.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AttachLink enables a link on its home port.
func (s *System) AttachLink(p *Port, l *rc.Link) error {
	if err := s.Group.AddOn(p.Pipeline, l); err != nil {
		return err
	}
	if s.homes == nil {
		s.homes = make(map[string]*Port)
	}
	s.homes[l.Name()] = p
	return nil
}

// EnableLink re-enables a disabled link on its home port.
func (s *System) EnableLink(name string) error {
	l, p := s.Group.Link(name), s.homes[name]
	if l == nil || p == nil {
		return fmt.Errorf("link %q: %w", name, ErrNotFound)
	}
	return l.Enable(p.Pipeline)
}

// DisableLink disables a link. It stays in the group and keeps its
// priority reserved.
func (s *System) DisableLink(name string) error {
	l := s.Group.Link(name)
	if l == nil {
		return fmt.Errorf("link %q: %w", name, ErrNotFound)
	}
	return l.Disable()
}

// AddMotor adds a motor to the control loop.
func (s *System) AddMotor(m *motor.Motor) {
	s.Motors = append(s.Motors, m)
	s.Loop.Add(m)
}

// Motor finds a motor by name.
func (s *System) Motor(name string) *motor.Motor {
	for _, m := range s.Motors {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// MotorNames returns sorted motor names.
func (s *System) MotorNames() []string {
	names := make([]string, 0, len(s.Motors))
	for _, m := range s.Motors {
		names = append(names, m.Name)
	}
	sort.Strings(names)
	return names
}

// Bind drives a motor from a stick channel of the winning link.
func (s *System) Bind(m *motor.Motor, channel int, scale float32) {
	if s.Mixer == nil {
		s.Mixer = &motor.Mixer{Source: s.Group}
		s.Loop.Add(s.Mixer)
	}
	s.Mixer.Bindings = append(s.Mixer.Bindings, motor.Binding{Motor: m, Channel: channel, Scale: scale})
}

// Pipelines returns the pipelines of all ports.
func (s *System) Pipelines() []*capture.Pipeline {
	pipelines := make([]*capture.Pipeline, 0, len(s.Ports))
	for _, p := range s.Ports {
		pipelines = append(pipelines, p.Pipeline)
	}
	return pipelines
}

// Runnables returns everything Run starts.
func (s *System) Runnables() []fx.Runnable {
	var runners []fx.Runnable
	for _, d := range s.Registry.Dispatchers() {
		runners = append(runners, d)
	}
	for _, p := range s.Ports {
		runners = append(runners, fx.NamedRun("port."+p.Name, p))
	}
	runners = append(runners, fx.NamedRun("links", s.Group), fx.NamedRun("loop", s.Loop))
	return runners
}

// Run implements framework.Runnable.
func (s *System) Run(ctx context.Context) error {
	glog.Infof("node %s: %d buses, %d ports, %d links, %d motors",
		s.Node, len(s.transports), len(s.Ports), len(s.Group.Links()), len(s.Motors))
	runner := fx.NewRunnerWith(ctx)
	runner.Go(s.Runnables()...)
	err := runner.Wait()
	if cerr := s.Close(); cerr != nil {
		glog.Warningf("close transports: %v", cerr)
	}
	return err
}

// Close closes all bus transports.
func (s *System) Close() error {
	var errs fx.AggregatedError
	for _, t := range s.transports {
		errs.Add(t.Close())
	}
	s.transports = nil
	return errs.Aggregate()
}
