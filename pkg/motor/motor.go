package motor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/framework"
)

// Motor is one DJI motor: a receive buffer for its feedback and a slot
// in the shared command frame.
type Motor struct {
	Name    string
	Bus     can.BusID
	Mapping Mapping

	rx *can.RxBuffer
	tx *can.MergeFrame

	enabled  atomix.Uint32
	setpoint atomix.Uint32

	lock     sync.RWMutex
	feedback Feedback
	updated  time.Time
}

// New registers a motor on bus. It fails if the feedback id or the
// command slot is already taken.
func New(reg *can.Registry, name string, bus can.BusID, model Model, id int) (*Motor, error) {
	mapping, err := Lookup(model, id)
	if err != nil {
		return nil, fmt.Errorf("motor %s: %w", name, err)
	}
	rx, err := reg.RegisterReceiver(bus, mapping.RxID)
	if err != nil {
		return nil, fmt.Errorf("motor %s: feedback %03X: %w", name, mapping.RxID, err)
	}
	tx := reg.MergeFrame(bus, mapping.TxID)
	if err := tx.RegisterSlot(mapping.Slot); err != nil {
		return nil, fmt.Errorf("motor %s: slot %d of %03X: %w", name, mapping.Slot, mapping.TxID, err)
	}
	return &Motor{Name: name, Bus: bus, Mapping: mapping, rx: rx, tx: tx}, nil
}

// Enable allows torque commands to reach the motor.
func (m *Motor) Enable() {
	m.enabled.Store(1)
}

// Disable makes the motor receive zero torque.
func (m *Motor) Disable() {
	m.enabled.Store(0)
}

// Enabled reports whether commands are forwarded.
func (m *Motor) Enabled() bool {
	return m.enabled.Load() != 0
}

// SetTorque sets the command used by the next control iteration.
func (m *Motor) SetTorque(torque float32) {
	m.setpoint.Store(math.Float32bits(torque))
}

// Torque returns the current torque command.
func (m *Motor) Torque() float32 {
	return math.Float32frombits(m.setpoint.Load())
}

// UpdateFeedback decodes the latest feedback frame if a new one arrived.
func (m *Motor) UpdateFeedback() bool {
	data, fresh, at := m.rx.Read()
	if !fresh {
		return false
	}
	fb := m.Mapping.DecodeFeedback(data)
	m.lock.Lock()
	m.feedback, m.updated = fb, at
	m.lock.Unlock()
	return true
}

// Feedback returns the last decoded feedback and when it was received.
func (m *Motor) Feedback() (Feedback, time.Time) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.feedback, m.updated
}

// SendTorque writes torque into the command slot. The frame goes out when
// every motor sharing it has written. A disabled motor sends zero.
func (m *Motor) SendTorque(ctx context.Context, torque float32) error {
	if !m.Enabled() {
		torque = 0
	}
	return m.tx.UpdateSlot(ctx, m.Mapping.Slot, m.Mapping.Raw(torque))
}

// FeedbackMessage is posted to the control loop on new feedback.
type FeedbackMessage struct {
	Motor    string
	Feedback Feedback
	At       time.Time
}

// NewMessage implements framework.Message.
func (m *FeedbackMessage) NewMessage() framework.Message {
	return &FeedbackMessage{}
}

// Sense decodes new feedback and posts a FeedbackMessage.
func (m *Motor) Sense(it *framework.Iteration) error {
	if m.UpdateFeedback() {
		fb, at := m.Feedback()
		it.Post(&FeedbackMessage{Motor: m.Name, Feedback: fb, At: at})
	}
	return nil
}

// Actuate sends the torque command.
func (m *Motor) Actuate(it *framework.Iteration) error {
	err := m.SendTorque(it.Context(), m.Torque())
	if err != nil && glog.V(3) {
		glog.Infof("motor %s: %v", m.Name, err)
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (m *Motor) AddToLoop(l *framework.Loop) {
	l.AddController(framework.StageSense, framework.ControlFunc(m.Sense))
	l.AddController(framework.StageActuate, framework.ControlFunc(m.Actuate))
}
