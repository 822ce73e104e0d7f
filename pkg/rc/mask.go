package rc

import (
	"math/bits"

	"code.hybscloud.com/atomix"
)

// idleBit is always set so Lowest is well defined when no link is active.
const idleBit = 7

// MaxPriority is the largest priority a link may use.
const MaxPriority = idleBit - 1

// Mask tracks which links are active. Bit p is set while the link with
// priority p delivers frames; lower p wins.
type Mask struct {
	v atomix.Uint32
}

// NewMask creates a mask with no active link.
func NewMask() *Mask {
	m := &Mask{}
	m.v.Store(1 << idleBit)
	return m
}

func (m *Mask) update(fn func(uint32) uint32) {
	for {
		old := m.v.Load()
		if m.v.CompareAndSwap(old, fn(old)) {
			return
		}
	}
}

// Set marks priority p active.
func (m *Mask) Set(p int) {
	m.update(func(v uint32) uint32 { return v | 1<<uint(p) })
}

// Clear marks priority p inactive.
func (m *Mask) Clear(p int) {
	m.update(func(v uint32) uint32 { return v &^ (1 << uint(p)) })
}

// Active reports whether priority p is active.
func (m *Mask) Active(p int) bool {
	return m.v.Load()&(1<<uint(p)) != 0
}

// Lowest returns the highest-ranked active priority, or idleBit when
// nothing is active.
func (m *Mask) Lowest() int {
	return bits.TrailingZeros32(m.v.Load())
}

// Allows reports whether frames of priority p may be accepted.
func (m *Mask) Allows(p int) bool {
	return m.Lowest() >= p
}

// Bits returns the raw mask.
func (m *Mask) Bits() uint32 {
	return m.v.Load()
}
