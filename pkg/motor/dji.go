// Package motor drives DJI CAN motors through the shared frame registry.
package motor

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Model is a DJI motor type.
type Model int

// Supported models.
const (
	M3508 Model = iota
	M2006
	GM6020
)

var modelNames = map[Model]string{
	M3508:  "m3508",
	M2006:  "m2006",
	GM6020: "gm6020",
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// ParseModel converts a model name, case insensitive.
func ParseModel(s string) (Model, error) {
	s = strings.ToLower(s)
	for m, name := range modelNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown motor model %q", s)
}

// ErrInvalidID indicates an ESC id the model does not support.
var ErrInvalidID = errors.New("invalid motor id")

// Mapping is where a motor lives on the bus.
type Mapping struct {
	Model Model
	// ID is the ESC id set on the motor, starting at 1.
	ID   int
	TxID uint32
	RxID uint32
	Slot int
	// MaxTorque is the torque (or voltage for GM6020) at MaxRaw.
	MaxTorque float32
	MaxRaw    int16
}

// Lookup returns the bus mapping of a motor.
func Lookup(model Model, id int) (Mapping, error) {
	m := Mapping{Model: model, ID: id, Slot: (id - 1) % 4}
	switch model {
	case M3508, M2006:
		switch {
		case id >= 1 && id <= 4:
			m.TxID = 0x200
		case id >= 5 && id <= 8:
			m.TxID = 0x1FF
		default:
			return m, ErrInvalidID
		}
		m.RxID = 0x200 + uint32(id)
		if model == M3508 {
			m.MaxTorque, m.MaxRaw = 20, 16384
		} else {
			m.MaxTorque, m.MaxRaw = 10, 10000
		}
	case GM6020:
		switch {
		case id >= 1 && id <= 4:
			m.TxID = 0x1FF
		case id >= 5 && id <= 7:
			m.TxID = 0x2FE
		default:
			return m, ErrInvalidID
		}
		m.RxID = 0x204 + uint32(id)
		m.MaxTorque, m.MaxRaw = 3, 16384
	default:
		return m, fmt.Errorf("unknown motor model %d", int(model))
	}
	return m, nil
}

// Raw converts a torque command to the slot value, clamped to the model
// range.
func (m Mapping) Raw(torque float32) int16 {
	if torque > m.MaxTorque {
		torque = m.MaxTorque
	} else if torque < -m.MaxTorque {
		torque = -m.MaxTorque
	}
	return int16(torque / m.MaxTorque * float32(m.MaxRaw))
}

// Feedback is the decoded motor report.
type Feedback struct {
	// Angle of the rotor in radians, in (-pi, pi].
	Angle float32
	// Speed in radians per second.
	Speed       float32
	Torque      float32
	Temperature int8
}

// DecodeFeedback parses a feedback frame.
func (m Mapping) DecodeFeedback(data [8]byte) Feedback {
	angle := float64(uint16(data[0])<<8|uint16(data[1])) / 8192 * 2 * math.Pi
	if angle > math.Pi {
		angle -= 2 * math.Pi
	}
	rpm := int16(uint16(data[2])<<8 | uint16(data[3]))
	raw := int16(uint16(data[4])<<8 | uint16(data[5]))
	return Feedback{
		Angle:       float32(angle),
		Speed:       float32(float64(rpm) * 2 * math.Pi / 60),
		Torque:      float32(raw) / float32(m.MaxRaw) * m.MaxTorque,
		Temperature: int8(data[6]),
	}
}
