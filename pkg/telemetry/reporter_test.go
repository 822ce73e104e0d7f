package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/rc/dr16"
	"github.com/robotalks/rtio.go/pkg/rc/joystick"
	"github.com/robotalks/rtio.go/pkg/rc/vt03"
	"github.com/robotalks/rtio.go/pkg/telemetry/msgs"
)

type recordingSink struct {
	lock     sync.Mutex
	topics   []string
	packets  [][]byte
	announce []byte
	err      error
}

func (s *recordingSink) Publish(topic string, packet []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.err != nil {
		return s.err
	}
	s.topics = append(s.topics, topic)
	s.packets = append(s.packets, packet)
	return nil
}

func (s *recordingSink) Announce(packet []byte) error {
	s.announce = packet
	return nil
}

func (s *recordingSink) Topics() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.topics...)
}

func drain(r *Reporter) {
	for {
		select {
		case p := <-r.queue:
			r.publish(p)
		default:
			return
		}
	}
}

func TestTopic(t *testing.T) {
	testCases := []struct {
		msg   msgs.SerializableMessage
		topic string
	}{
		{&msgs.NodeAnnounce{}, "n1/meta"},
		{&msgs.LinkStatus{Name: "dr16"}, "n1/links/dr16"},
		{&msgs.LinkStatus{Name: "a/b"}, "n1/links/a_b"},
		{&msgs.RCSnapshot{}, "n1/rc"},
		{&msgs.BusStats{Bus: 2}, "n1/can/2"},
		{&msgs.MergeStatus{Bus: 1, Id: 0x1FF}, "n1/can/1/1FF"},
		{&msgs.MotorFeedback{Name: "yaw"}, "n1/motors/yaw"},
		{&msgs.PipelineStats{Name: "uart1"}, "n1/pipelines/uart1"},
	}
	for _, tc := range testCases {
		t.Run(tc.topic, func(t *testing.T) {
			require.Equal(t, tc.topic, Topic("n1", tc.msg))
		})
	}
}

func TestSnapshotFrom(t *testing.T) {
	var c dr16.Control
	c.Ch[0] = 0.5
	c.Switch[dr16.SwitchRight].State = rc.SwitchUp
	c.Switch[dr16.SwitchLeft].State = rc.SwitchDown
	c.Mouse.Right.Ctrl = rc.Held
	c.Keys[rc.KeyW].Ctrl = rc.Pressed
	c.Keys[rc.KeyB].Ctrl = rc.Held
	s := SnapshotFrom("dr16", c)
	require.NotNil(t, s)
	require.Equal(t, []float32{0.5, 0, 0, 0}, s.Channels)
	require.Equal(t, []uint32{uint32(rc.SwitchUp), uint32(rc.SwitchDown)}, s.Switches)
	require.Equal(t, ButtonRight, s.Buttons)
	require.Equal(t, uint32(1|1<<15), s.Keys)

	var v vt03.Control
	v.Gear.State = rc.GearRight
	v.Trigger.Ctrl = rc.Pressed
	v.Mouse.Middle.Ctrl = rc.Pressed
	s = SnapshotFrom("vt03", v)
	require.Equal(t, []uint32{uint32(rc.GearRight)}, s.Switches)
	require.Equal(t, ButtonMiddle|ButtonTrigger, s.Buttons)

	var j joystick.Control
	j.Axes[1] = -0.25
	j.Axes[4] = 1
	j.Buttons = 1 << 3
	s = SnapshotFrom("pad", j)
	require.Equal(t, []float32{0, -0.25, 0, 0}, s.Channels)
	require.Equal(t, uint32(1<<3), s.Buttons)
	require.Empty(t, s.Switches)

	require.Nil(t, SnapshotFrom("x", 42))
}

func TestReporterCollect(t *testing.T) {
	reg := can.NewRegistry()
	lo := can.NewLoopback(0)
	_, err := reg.AddBus(1, lo)
	require.NoError(t, err)
	m, err := motor.New(reg, "yaw", 1, motor.GM6020, 1)
	require.NoError(t, err)

	sink := &recordingSink{}
	r := NewReporter("n1", "s1", Sources{Registry: reg, Motors: []*motor.Motor{m}}, sink)
	at := time.Unix(100, 0)
	r.Collect(at)
	drain(r)
	require.Equal(t, []string{"n1/can/1", "n1/can/1/1FF"}, sink.Topics())

	typed, err := msgs.DecodeTyped(sink.packets[1])
	require.NoError(t, err)
	require.Equal(t, "n1", typed.Node)
	require.Equal(t, "s1", typed.Session)
	require.Equal(t, at.UnixNano(), typed.Stamp)
	msg, err := typed.Decode()
	require.NoError(t, err)
	status := msg.(*msgs.MergeStatus)
	require.Equal(t, uint32(0x1FF), status.Id)
	require.Equal(t, []uint32{0}, status.InUse)
	require.Equal(t, "hold", status.Policy)

	m.Enable()
	m.SetTorque(0.5)
	r.Post(r.motorFeedback(&motor.FeedbackMessage{Motor: "yaw", Feedback: motor.Feedback{Speed: 3}}), at)
	drain(r)
	typed, err = msgs.DecodeTyped(sink.packets[2])
	require.NoError(t, err)
	msg, err = typed.Decode()
	require.NoError(t, err)
	fb := msg.(*msgs.MotorFeedback)
	require.Equal(t, float32(3), fb.Speed)
	require.Equal(t, float32(0.5), fb.Command)
	require.True(t, fb.Enabled)
}

func TestReporterRun(t *testing.T) {
	sink := &recordingSink{err: errors.New("offline")}
	r := NewReporter("n1", "s1", Sources{}, sink)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Post(&msgs.LinkStatus{Name: "dr16"}, time.Now())
	require.Eventually(t, func() bool { return r.Stats().Failures == 1 }, time.Second, time.Millisecond)

	sink.lock.Lock()
	sink.err = nil
	sink.lock.Unlock()
	r.Post(&msgs.LinkStatus{Name: "vt03"}, time.Now())
	require.Eventually(t, func() bool { return r.Stats().Published == 1 }, time.Second, time.Millisecond)
	require.Equal(t, []string{"n1/links/vt03"}, sink.Topics())

	cancel()
	require.Equal(t, context.Canceled, <-done)

	typed, err := msgs.DecodeTyped(sink.announce)
	require.NoError(t, err)
	require.Equal(t, msgs.NodeAnnounceTypeID, typed.TypeId)
}

func TestReporterDropsWhenFull(t *testing.T) {
	r := NewReporter("n1", "s1", Sources{})
	for i := 0; i < DefaultBacklog+3; i++ {
		r.Post(&msgs.LinkStatus{}, time.Now())
	}
	require.Equal(t, uint32(3), r.Stats().Dropped)
}
