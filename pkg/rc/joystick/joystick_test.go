package joystick

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackLayout(t *testing.T) {
	e := Event{Time: 0x01020304, Value: -2, Type: EventAxis | EventInit, Number: 3}
	buf := Pack(e)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01, 0xFE, 0xFF, 0x82, 0x03}, buf[:])
	got, err := Unpack(buf[:])
	require.NoError(t, err)
	require.Equal(t, e, got)
	require.True(t, got.IsInit())
	require.Equal(t, EventAxis, got.Kind())

	_, err = Unpack(buf[:4])
	require.Equal(t, ErrFrameSize, err)
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name   string
		event  Event
		accept bool
	}{
		{"axis", Event{Type: EventAxis, Number: 1, Value: 32767}, true},
		{"init axis", Event{Type: EventAxis | EventInit, Number: 0, Value: -32768}, true},
		{"button", Event{Type: EventButton, Number: 5, Value: 1}, true},
		{"axis range", Event{Type: EventAxis, Number: MaxAxes}, false},
		{"button range", Event{Type: EventButton, Number: MaxButtons}, false},
		{"unknown type", Event{Type: 0x04}, false},
	}
	d := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := Pack(tc.event)
			require.Equal(t, tc.accept, d.Accept(buf[:]))
			require.Equal(t, tc.accept, d.Decode(buf[:]))
		})
	}

	c := d.Snapshot().(Control)
	require.Equal(t, [4]float32{-1, 1, 0, 0}, c.Sticks())
	require.True(t, c.Pressed(5))
	require.False(t, c.Pressed(4))
	require.False(t, c.Pressed(MaxButtons))

	release := Pack(Event{Type: EventButton, Number: 5})
	require.True(t, d.Decode(release[:]))
	require.False(t, d.Snapshot().(Control).Pressed(5))
	require.True(t, d.Previous().(Control).Pressed(5))
}
