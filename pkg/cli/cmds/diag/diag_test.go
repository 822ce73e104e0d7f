package diag

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/cli/sh"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
	"github.com/robotalks/rtio.go/pkg/rc/dr16"
	"github.com/robotalks/rtio.go/pkg/system"
)

func newSystem(t *testing.T) (*system.System, *can.Loopback) {
	sys := system.New("test")
	lo := can.NewLoopback(0)
	require.NoError(t, sys.AddBus(1, lo))

	pr, _ := io.Pipe()
	port := system.NewPort("uart", pr, pr, dr16.BufferSize)
	sys.AddPort(port)
	link, err := rc.NewLink("dr16", dr16.Priority, dr16.New(), sys.Group.Mask,
		rc.LinkOptions{Period: dr16.Period, Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, sys.AttachLink(port, link))

	m, err := motor.New(sys.Registry, "wheel", 1, motor.M3508, 1)
	require.NoError(t, err)
	sys.AddMotor(m)
	t.Cleanup(func() { sys.Close() })
	return sys, lo
}

func TestReports(t *testing.T) {
	sys, _ := newSystem(t)

	links := Links(sys)
	require.Len(t, links, 1)
	require.Equal(t, "dr16", links[0].Name)
	require.True(t, links[0].Enabled)
	require.False(t, links[0].Active)

	frames := Frames(sys)
	require.Len(t, frames, 1)
	require.Equal(t, uint32(0x200), frames[0].Id)
	require.Equal(t, []uint32{0}, frames[0].InUse)

	buses := Buses(sys)
	require.Len(t, buses, 1)
	require.Equal(t, uint32(1), buses[0].Bus)

	pipelines := Pipelines(sys)
	require.Len(t, pipelines, 1)
	require.Equal(t, "uart", pipelines[0].Name)
}

func TestSnapshotAndLock(t *testing.T) {
	sys, _ := newSystem(t)

	_, err := Snapshot(sys, "")
	require.ErrorIs(t, err, ErrNoActiveLink)
	_, err = Snapshot(sys, "sbus")
	require.ErrorIs(t, err, system.ErrNotFound)

	snapshot, err := Snapshot(sys, "dr16")
	require.NoError(t, err)
	require.Equal(t, "dr16", snapshot.Link)
	require.Len(t, snapshot.Switches, 2)

	state, err := LockState(sys, "dr16")
	require.NoError(t, err)
	require.Zero(t, state.Readers)
	require.False(t, state.WriteGateHeld)
	_, err = LockState(sys, "sbus")
	require.ErrorIs(t, err, system.ErrNotFound)
}

func TestSetMotor(t *testing.T) {
	sys, _ := newSystem(t)
	m := sys.Motor("wheel")

	testCases := []struct {
		name string
		args []string
		fail bool
	}{
		{"on", []string{"on"}, false},
		{"torque", []string{"torque", "1.5"}, false},
		{"torque missing", []string{"torque"}, true},
		{"torque invalid", []string{"torque", "fast"}, true},
		{"unknown", []string{"spin"}, true},
		{"no action", nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := SetMotor(sys, "wheel", tc.args...)
			if tc.fail {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
	require.True(t, m.Enabled())
	require.Equal(t, float32(1.5), m.Torque())
	require.NoError(t, SetMotor(sys, "wheel", "off"))
	require.False(t, m.Enabled())
	require.ErrorIs(t, SetMotor(sys, "arm", "on"), system.ErrNotFound)
}

func TestWriteSlot(t *testing.T) {
	sys, lo := newSystem(t)
	ctx := context.Background()

	require.NoError(t, WriteSlot(ctx, sys, "1", "0x200", "0", "-100"))
	sent := lo.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, uint32(0x200), sent[0].ID)
	require.Equal(t, int16(-100), can.DecodeSlots(sent[0].Data)[0])

	require.ErrorIs(t, WriteSlot(ctx, sys, "1", "0x200", "1", "5"), can.ErrNotRegistered)
	require.ErrorIs(t, WriteSlot(ctx, sys, "2", "0x200", "0", "5"), system.ErrNotFound)
	require.Error(t, WriteSlot(ctx, sys, "1", "0x200", "0", "40000"))
	require.Error(t, WriteSlot(ctx, sys, "x", "0x200", "0", "5"))
}

func TestShellCommands(t *testing.T) {
	sys, _ := newSystem(t)
	s := sh.New(sys)

	require.NoError(t, s.Process("disable", "dr16"))
	require.False(t, sys.Group.Link("dr16").Status().Enabled)
	require.NoError(t, s.Process("enable", "dr16"))
	require.True(t, sys.Group.Link("dr16").Status().Enabled)
	require.NoError(t, s.Process("motor", "wheel", "on"))
	require.True(t, sys.Motor("wheel").Enabled())
}
