package motor

import (
	fx "github.com/robotalks/rtio.go/pkg/framework"
)

// StickSource provides the current stick channels, ok is false when no
// receiver is active.
type StickSource interface {
	Sticks() (ch [4]float32, ok bool)
}

// Binding drives a motor from one stick channel.
type Binding struct {
	Motor   *Motor
	Channel int
	// Scale is the torque at full stick deflection.
	Scale float32
}

// Mixer sets motor torques from the sticks of the winning receiver once per
// loop iteration. All bound motors get zero torque while no receiver is
// active.
type Mixer struct {
	Source   StickSource
	Bindings []Binding
}

// Control implements framework.Controller.
func (m *Mixer) Control(*fx.Iteration) error {
	m.Apply()
	return nil
}

// Apply updates the torque commands.
func (m *Mixer) Apply() {
	ch, ok := m.Source.Sticks()
	for _, b := range m.Bindings {
		var torque float32
		if ok && b.Channel >= 0 && b.Channel < len(ch) {
			torque = ch[b.Channel] * b.Scale
		}
		b.Motor.SetTorque(torque)
	}
}

// AddToLoop implements framework.LoopAdder.
func (m *Mixer) AddToLoop(l *fx.Loop) {
	l.AddController(fx.StageControl, m)
}
