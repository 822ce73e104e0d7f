//go:build linux

package socketcan

import (
	"testing"

	bcan "github.com/brutella/can"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rtio.go/pkg/can"
)

func TestFrameConversion(t *testing.T) {
	data := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	testCases := []struct {
		name  string
		frame can.Frame
		wire  uint32
	}{
		{"standard", can.Frame{ID: 0x200, Len: 8, Data: data}, 0x200},
		{"standard max", can.Frame{ID: 0x7FF, Len: 2, Data: data}, 0x7FF},
		{"extended", can.Frame{ID: 0x200, Extended: true, Len: 8, Data: data}, 0x80000200},
		{"extended max", can.Frame{ID: 0x1FFFFFFF, Extended: true, Len: 0}, 0x9FFFFFFF},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := toWire(tc.frame)
			require.Equal(t, tc.wire, w.ID)
			require.Equal(t, tc.frame.Len, w.Length)
			require.Equal(t, tc.frame.Data, w.Data)

			back, ok := fromWire(w)
			require.True(t, ok)
			require.Equal(t, tc.frame, back)
		})
	}
}

func TestFromWireRefusesNonData(t *testing.T) {
	testCases := []struct {
		name string
		id   uint32
	}{
		{"remote", rtrFlag | 0x123},
		{"extended remote", effFlag | rtrFlag | 0x123},
		{"error", errFlag | 0x4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := fromWire(bcan.Frame{ID: tc.id, Length: 8})
			require.False(t, ok)
		})
	}
}
