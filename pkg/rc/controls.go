package rc

// Transition describes the edge detected between two samples of a
// multi-position switch.
type Transition uint8

// Switch positions reported by DR16.
const (
	SwitchUp   uint8 = 1
	SwitchDown uint8 = 2
	SwitchMid  uint8 = 3
)

// Switch transitions.
const (
	NoChange Transition = iota
	UpToMid
	MidToDown
	DownToMid
	MidToUp
)

// SwitchState is a three-position switch with edge detection.
type SwitchState struct {
	State      uint8
	Transition Transition
}

// Update stores raw and sets the transition relative to the previous
// sample. The first sample after the zero state yields NoChange.
func (s *SwitchState) Update(raw uint8) {
	t := NoChange
	switch {
	case s.State == SwitchUp && raw == SwitchMid:
		t = UpToMid
	case s.State == SwitchMid && raw == SwitchDown:
		t = MidToDown
	case s.State == SwitchDown && raw == SwitchMid:
		t = DownToMid
	case s.State == SwitchMid && raw == SwitchUp:
		t = MidToUp
	}
	s.State, s.Transition = raw, t
}

// Gear positions reported by VT03.
const (
	GearLeft  uint8 = 0
	GearMid   uint8 = 1
	GearRight uint8 = 2
)

// Gear transitions.
const (
	LeftToMid Transition = iota + 1
	MidToRight
	RightToMid
	MidToLeft
)

// GearState is the VT03 three-position gear with edge detection.
type GearState struct {
	State      uint8
	Transition Transition
}

// Update stores raw and sets the transition relative to the previous sample.
func (g *GearState) Update(raw uint8) {
	t := NoChange
	switch {
	case g.State == GearLeft && raw == GearMid:
		t = LeftToMid
	case g.State == GearMid && raw == GearRight:
		t = MidToRight
	case g.State == GearRight && raw == GearMid:
		t = RightToMid
	case g.State == GearMid && raw == GearLeft:
		t = MidToLeft
	}
	g.State, g.Transition = raw, t
}

// KeyPhase is the debounced state of a key or button.
type KeyPhase uint8

// Key states.
const (
	Released KeyPhase = iota
	Pressed
	Held
)

func (k KeyPhase) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Held:
		return "held"
	}
	return "released"
}

// Debounce timing in milliseconds. Each sample adds KeyStep.
const (
	KeyStep           = 14
	KeyPressThreshold = 40
	KeyHoldThreshold  = 160
)

// KeyState debounces a key sampled once per frame.
type KeyState struct {
	Ctrl KeyPhase
	Time uint32
}

// Update feeds one sample.
func (k *KeyState) Update(pressed bool) {
	if !pressed {
		*k = KeyState{}
		return
	}
	switch k.Ctrl {
	case Released:
		k.Time += KeyStep
		if k.Time > KeyPressThreshold {
			k.Ctrl = Pressed
		}
	case Pressed:
		k.Time += KeyStep
		if k.Time > KeyHoldThreshold {
			k.Ctrl, k.Time = Held, 0
		}
	default:
		// a held key starts over and is reported pressed again.
		*k = KeyState{}
	}
}

// Key indexes into the 16-key keyboard bitmap, in key_code bit order.
type Key int

// Keys.
const (
	KeyW Key = iota
	KeyS
	KeyA
	KeyD
	KeyShift
	KeyCtrl
	KeyQ
	KeyE
	KeyR
	KeyF
	KeyG
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	NumKeys
)

var keyNames = [NumKeys]string{"W", "S", "A", "D", "SHIFT", "CTRL", "Q", "E", "R", "F", "G", "Z", "X", "C", "V", "B"}

func (k Key) String() string {
	if k >= 0 && k < NumKeys {
		return keyNames[k]
	}
	return "?"
}

// Keyboard holds debounced state of all keys.
type Keyboard [NumKeys]KeyState

// Update feeds a key_code bitmap.
func (kb *Keyboard) Update(code uint16) {
	for i := range kb {
		kb[i].Update(code>>uint(i)&1 != 0)
	}
}

// Scale converts an 11-bit stick value to [-1, 1].
func Scale(raw uint16) float32 {
	return float32(int(raw)-ChannelOffset) / ChannelSpan
}

// Stick value limits shared by both receivers.
const (
	ChannelMin    = 364
	ChannelMax    = 1684
	ChannelOffset = 1024
	ChannelSpan   = 660
)

// InRange reports whether raw is a valid stick value.
func InRange(raw uint16) bool {
	return raw >= ChannelMin && raw <= ChannelMax
}
