package rc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSwitchSequence(t *testing.T) {
	var s SwitchState
	steps := []struct {
		raw  uint8
		want Transition
	}{
		{SwitchUp, NoChange},
		{SwitchUp, NoChange},
		{SwitchMid, UpToMid},
		{SwitchMid, NoChange},
		{SwitchDown, MidToDown},
		{SwitchMid, DownToMid},
		{SwitchUp, MidToUp},
		{SwitchDown, NoChange},
	}
	for i, step := range steps {
		s.Update(step.raw)
		require.Equal(t, step.want, s.Transition, "step %d", i)
		require.Equal(t, step.raw, s.State)
	}
}

func TestGearSequence(t *testing.T) {
	var g GearState
	steps := []struct {
		raw  uint8
		want Transition
	}{
		{GearLeft, NoChange},
		{GearMid, LeftToMid},
		{GearRight, MidToRight},
		{GearRight, NoChange},
		{GearMid, RightToMid},
		{GearLeft, MidToLeft},
	}
	for i, step := range steps {
		g.Update(step.raw)
		require.Equal(t, step.want, g.Transition, "step %d", i)
	}
}

func TestKeyDebounce(t *testing.T) {
	var k KeyState
	// 14, 28, 42: pressed on the third sample.
	k.Update(true)
	k.Update(true)
	require.Equal(t, Released, k.Ctrl)
	require.Equal(t, uint32(28), k.Time)
	k.Update(true)
	require.Equal(t, Pressed, k.Ctrl)
	require.Equal(t, uint32(42), k.Time)

	// 56 ... 168: held once time exceeds 160.
	samples := 0
	for k.Ctrl == Pressed {
		k.Update(true)
		samples++
	}
	require.Equal(t, 9, samples)
	require.Equal(t, Held, k.Ctrl)
	require.Zero(t, k.Time)

	k.Update(true)
	require.Equal(t, KeyState{}, k)

	k.Update(true)
	k.Update(false)
	require.Equal(t, KeyState{}, k)
}

func TestKeyboard(t *testing.T) {
	var kb Keyboard
	for i := 0; i < 3; i++ {
		kb.Update(1<<uint(KeyW) | 1<<uint(KeyB))
	}
	require.Equal(t, Pressed, kb[KeyW].Ctrl)
	require.Equal(t, Pressed, kb[KeyB].Ctrl)
	require.Equal(t, Released, kb[KeyS].Ctrl)
	require.Equal(t, "SHIFT", KeyShift.String())
}

func TestScale(t *testing.T) {
	require.Equal(t, float32(0), Scale(ChannelOffset))
	require.Equal(t, float32(1), Scale(ChannelMax))
	require.Equal(t, float32(-1), Scale(ChannelMin))
	require.True(t, InRange(ChannelMin))
	require.False(t, InRange(ChannelMax+1))
}

func TestMask(t *testing.T) {
	m := NewMask()
	require.Equal(t, idleBit, m.Lowest())
	require.True(t, m.Allows(0))
	require.True(t, m.Allows(MaxPriority))

	m.Set(1)
	require.True(t, m.Active(1))
	require.True(t, m.Allows(0))
	require.True(t, m.Allows(1))
	require.False(t, m.Allows(2))

	m.Set(0)
	require.Equal(t, 0, m.Lowest())
	require.False(t, m.Allows(1))

	m.Clear(0)
	m.Clear(1)
	require.Equal(t, uint32(1<<idleBit), m.Bits())
}
