package vt03

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio.go/pkg/rc"
)

func centered() Raw {
	return Raw{
		Ch:    [4]uint16{1024, 1024, 1024, 1024},
		Gear:  rc.GearMid,
		Wheel: 1024,
	}
}

func TestChecksum(t *testing.T) {
	require.Equal(t, uint16(0x6F91), Checksum([]byte("123456789")))
}

func TestPackLayout(t *testing.T) {
	r := Raw{
		Ch:      [4]uint16{364, 1684, 1024, 1000},
		Gear:    rc.GearRight,
		Pause:   1,
		FnL:     0,
		FnR:     1,
		Wheel:   0x7FF,
		Trigger: 1,
		MouseX:  -1,
		MouseY:  2,
		MouseZ:  -3,
		PressL:  1,
		PressR:  0,
		PressM:  1,
		KeyCode: 0x1234,
	}
	buf := Pack(r)
	require.Equal(t, byte(Sync0), buf[0])
	require.Equal(t, byte(Sync1), buf[1])
	require.Equal(t, []byte{0xFF, 0xFF, 0x02, 0x00, 0xFD, 0xFF}, buf[10:16])
	require.Equal(t, byte(0x11), buf[16])
	require.Equal(t, []byte{0x34, 0x12}, buf[17:19])
	crc := Checksum(buf[:19])
	require.Equal(t, []byte{byte(crc), byte(crc >> 8)}, buf[19:21])

	got, err := Unpack(buf[:])
	require.NoError(t, err)
	r.CRC = crc
	require.Equal(t, r, got)

	_, err = Unpack(buf[1:])
	require.Equal(t, ErrFrameSize, err)
}

func TestDecode(t *testing.T) {
	d := New()
	r := centered()
	r.Ch[1] = 364
	r.Trigger = 1
	buf := Pack(r)
	require.True(t, d.Accept(buf[:]))
	require.True(t, d.Decode(buf[:]))
	c := d.Snapshot().(Control)
	require.Equal(t, float32(-1), c.Ch[1])
	require.Equal(t, rc.GearMid, c.Gear.State)
	require.Equal(t, rc.LeftToMid, c.Gear.Transition)
	require.Equal(t, uint32(rc.KeyStep), c.Trigger.Time)

	r.Gear = rc.GearLeft
	buf = Pack(r)
	require.True(t, d.Decode(buf[:]))
	c = d.Snapshot().(Control)
	require.Equal(t, rc.MidToLeft, c.Gear.Transition)
	require.Equal(t, rc.LeftToMid, d.Previous().(Control).Gear.Transition)
}

func TestDecodeRejects(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(buf []byte)
		accept bool
	}{
		{"bad sync", func(buf []byte) { buf[1] = 0x54 }, false},
		{"bad crc", func(buf []byte) { buf[20] ^= 0x01 }, true},
		{"corrupt payload", func(buf []byte) { buf[12] ^= 0x40 }, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := New()
			buf := Pack(centered())
			tc.mutate(buf[:])
			require.Equal(t, tc.accept, d.Accept(buf[:]))
			require.False(t, d.Decode(buf[:]))
			require.Equal(t, Control{}, d.Snapshot())
		})
	}

	r := centered()
	r.Wheel = 1700
	buf := Pack(r)
	require.False(t, New().Decode(buf[:]))
}
