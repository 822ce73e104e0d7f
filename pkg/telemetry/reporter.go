package telemetry

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/capture"
	fx "github.com/robotalks/rtio.go/pkg/framework"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/telemetry/msgs"
)

// Sink receives encoded Typed packets.
type Sink interface {
	Publish(topic string, packet []byte) error
}

// Announcer is a Sink keeping the latest announce packet available.
type Announcer interface {
	Announce(packet []byte) error
}

// Sources are the components a Reporter samples.
type Sources struct {
	Registry  *can.Registry
	Groups    []*rc.Group
	Pipelines []*capture.Pipeline
	Motors    []*motor.Motor
}

// DefaultInterval is the status reporting period.
const DefaultInterval = 500 * time.Millisecond

// DefaultBacklog is the number of packets waiting for sinks.
const DefaultBacklog = 256

type packet struct {
	topic string
	data  []byte
}

// Reporter publishes status and feedback to sinks. As a loop controller it
// encodes and queues packets; as a Runnable it drains them to the sinks.
// Packets are dropped when the queue is full.
type Reporter struct {
	Node     string
	Session  string
	Interval time.Duration
	Sources  Sources

	sinks []Sink
	queue chan packet
	last  time.Time

	published atomix.Uint32
	dropped   atomix.Uint32
	failures  atomix.Uint32
}

// ReporterStats are the counters of a Reporter.
type ReporterStats struct {
	Published uint32
	Dropped   uint32
	Failures  uint32
}

// NewReporter creates a Reporter.
func NewReporter(node, session string, sources Sources, sinks ...Sink) *Reporter {
	return &Reporter{
		Node:     node,
		Session:  session,
		Interval: DefaultInterval,
		Sources:  sources,
		sinks:    sinks,
		queue:    make(chan packet, DefaultBacklog),
	}
}

// Name implements framework.Named.
func (r *Reporter) Name() string {
	return "telemetry"
}

// Topic returns the topic of a message published by node.
func Topic(node string, msg msgs.SerializableMessage) string {
	switch m := msg.(type) {
	case *msgs.NodeAnnounce:
		return node + "/meta"
	case *msgs.LinkStatus:
		return node + "/links/" + SanitizeTopicLevel(m.Name)
	case *msgs.RCSnapshot:
		return node + "/rc"
	case *msgs.BusStats:
		return fmt.Sprintf("%s/can/%d", node, m.Bus)
	case *msgs.MergeStatus:
		return fmt.Sprintf("%s/can/%d/%03X", node, m.Bus, m.Id)
	case *msgs.MotorFeedback:
		return node + "/motors/" + SanitizeTopicLevel(m.Name)
	case *msgs.PipelineStats:
		return node + "/pipelines/" + SanitizeTopicLevel(m.Name)
	}
	return fmt.Sprintf("%s/msgs/%08x", node, msg.TypeID())
}

// Encode wraps msg into a Typed envelope stamped with node and session.
func (r *Reporter) Encode(msg msgs.SerializableMessage, at time.Time) ([]byte, error) {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return nil, err
	}
	typed.Node, typed.Session, typed.Stamp = r.Node, r.Session, at.UnixNano()
	return typed.Encode()
}

// Post encodes msg and queues it for the sinks. It never blocks.
func (r *Reporter) Post(msg msgs.SerializableMessage, at time.Time) {
	data, err := r.Encode(msg, at)
	if err != nil {
		glog.Errorf("telemetry encode %T: %v", msg, err)
		return
	}
	select {
	case r.queue <- packet{topic: Topic(r.Node, msg), data: data}:
	default:
		r.dropped.Add(1)
	}
}

// Announce sends the announce packet to sinks supporting it.
func (r *Reporter) Announce() {
	msg := &msgs.NodeAnnounce{Node: r.Node, Session: r.Session}
	for _, g := range r.Sources.Groups {
		for _, l := range g.Links() {
			msg.Links = append(msg.Links, l.Name())
		}
	}
	for _, m := range r.Sources.Motors {
		msg.Motors = append(msg.Motors, m.Name)
	}
	data, err := r.Encode(msg, time.Now())
	if err != nil {
		glog.Errorf("telemetry encode announce: %v", err)
		return
	}
	for _, s := range r.sinks {
		if a, ok := s.(Announcer); ok {
			if err := a.Announce(data); err != nil {
				glog.Warningf("telemetry announce: %v", err)
			}
		}
	}
}

// Control implements framework.Controller.
func (r *Reporter) Control(it *fx.Iteration) error {
	it.Take(func(msg fx.Message) bool {
		fb, ok := msg.(*motor.FeedbackMessage)
		if ok {
			r.Post(r.motorFeedback(fb), fb.At)
		}
		return ok
	})
	now := it.Time()
	interval := r.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	if now.Sub(r.last) < interval {
		return nil
	}
	r.last = now
	r.Collect(now)
	return nil
}

// Collect posts the status of all sources.
func (r *Reporter) Collect(now time.Time) {
	for _, g := range r.Sources.Groups {
		for _, l := range g.Links() {
			r.Post(LinkStatusOf(l.Status()), now)
		}
		if l := g.Active(); l != nil {
			var snapshot *msgs.RCSnapshot
			l.Read(func(s any) { snapshot = SnapshotFrom(l.Name(), s) })
			if snapshot != nil {
				r.Post(snapshot, now)
			}
		}
	}
	for _, p := range r.Sources.Pipelines {
		r.Post(PipelineStatsOf(p.Name, p.Stats()), now)
	}
	if reg := r.Sources.Registry; reg != nil {
		for _, d := range reg.Dispatchers() {
			r.Post(BusStatsOf(d.Stats()), now)
		}
		for _, m := range reg.MergeFrames() {
			r.Post(MergeStatusOf(m.Status()), now)
		}
	}
}

func (r *Reporter) motorFeedback(fb *motor.FeedbackMessage) *msgs.MotorFeedback {
	msg := &msgs.MotorFeedback{
		Name:        fb.Motor,
		Angle:       fb.Feedback.Angle,
		Speed:       fb.Feedback.Speed,
		Torque:      fb.Feedback.Torque,
		Temperature: int32(fb.Feedback.Temperature),
	}
	for _, m := range r.Sources.Motors {
		if m.Name == fb.Motor {
			msg.Command, msg.Enabled = m.Torque(), m.Enabled()
			break
		}
	}
	return msg
}

// AddToLoop implements framework.LoopAdder.
func (r *Reporter) AddToLoop(l *fx.Loop) {
	l.AddController(fx.StageReport, r)
}

// Run implements Runnable.
func (r *Reporter) Run(ctx context.Context) error {
	r.Announce()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-r.queue:
			r.publish(p)
		}
	}
}

func (r *Reporter) publish(p packet) {
	for _, s := range r.sinks {
		if err := s.Publish(p.topic, p.data); err != nil {
			if r.failures.Add(1) == 1 || glog.V(3) {
				glog.Warningf("telemetry publish %s: %v", p.topic, err)
			}
			continue
		}
		r.published.Add(1)
	}
}

// Stats returns the counters.
func (r *Reporter) Stats() ReporterStats {
	return ReporterStats{
		Published: r.published.Load(),
		Dropped:   r.dropped.Load(),
		Failures:  r.failures.Load(),
	}
}

// LinkStatusOf converts link status into its telemetry message.
func LinkStatusOf(s rc.LinkStatus) *msgs.LinkStatus {
	return &msgs.LinkStatus{
		Name:        s.Name,
		Priority:    uint32(s.Priority),
		Enabled:     s.Enabled,
		Active:      s.Active,
		Received:    s.Received,
		Decoded:     s.Decoded,
		Rejected:    s.Rejected,
		Dropped:     s.Dropped,
		Timeouts:    s.Timeouts,
		Activations: s.Activations,
	}
}

// PipelineStatsOf converts pipeline stats.
func PipelineStatsOf(name string, s capture.Stats) *msgs.PipelineStats {
	return &msgs.PipelineStats{
		Name:          name,
		State:         s.State.String(),
		Completions:   s.Completions,
		Claimed:       s.Claimed,
		Unclaimed:     s.Unclaimed,
		Failures:      s.Failures,
		RearmFailures: s.RearmFailures,
	}
}

func BusStatsOf(s can.DispatcherStats) *msgs.BusStats {
	return &msgs.BusStats{
		Bus:       uint32(s.Bus),
		Receivers: uint32(s.Receivers),
		Received:  s.Received,
		Unknown:   s.Unknown,
	}
}

// MergeStatusOf converts merge frame status.
func MergeStatusOf(s can.MergeStatus) *msgs.MergeStatus {
	msg := &msgs.MergeStatus{
		Bus:      uint32(s.Key.Bus),
		Id:       s.Key.ID,
		Policy:   s.Policy.Mode.String(),
		Rounds:   s.Rounds,
		Partials: s.Partials,
		Failures: s.Failures,
	}
	for _, i := range s.InUse {
		msg.InUse = append(msg.InUse, uint32(i))
	}
	for _, i := range s.Missing {
		msg.Missing = append(msg.Missing, uint32(i))
	}
	return msg
}
