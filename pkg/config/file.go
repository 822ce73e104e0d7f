package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/rtio.go/pkg/can"
	"github.com/robotalks/rtio.go/pkg/motor"
	"github.com/robotalks/rtio.go/pkg/rc"
)

// File is the YAML system description.
type File struct {
	Node string `yaml:"node"`
	// Loop is the control loop period.
	Loop   time.Duration `yaml:"loop"`
	Buses  []BusConfig   `yaml:"buses"`
	Merge  MergeConfig   `yaml:"merge"`
	Ports  []PortConfig  `yaml:"ports"`
	Links  []LinkConfig  `yaml:"links"`
	Motors []MotorConfig `yaml:"motors"`
}

// BusConfig describes a CAN bus.
type BusConfig struct {
	Name string `yaml:"name"`
	ID   uint8  `yaml:"id"`
	// Transport is "loopback" or "socketcan:<iface>".
	Transport string `yaml:"transport"`
	Backlog   int    `yaml:"backlog,omitempty"`
}

// MergeConfig sets the stall policy of merge frames.
type MergeConfig struct {
	Stall   string             `yaml:"stall"`
	Timeout time.Duration      `yaml:"timeout"`
	Frames  []MergeFrameConfig `yaml:"frames"`
}

// MergeFrameConfig overrides the policy of one frame.
type MergeFrameConfig struct {
	Bus     uint8         `yaml:"bus"`
	ID      uint32        `yaml:"id"`
	Stall   string        `yaml:"stall"`
	Timeout time.Duration `yaml:"timeout"`
}

// PortConfig describes a receive port.
type PortConfig struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
	// BufferSize defaults to twice the largest frame of its links.
	BufferSize int `yaml:"buffer_size,omitempty"`
	// IdleGap ends a frame after the line stays silent this long. Zero
	// uses capture.DefaultIdleGap, negative passes reads through as frames.
	IdleGap time.Duration `yaml:"idle_gap,omitempty"`
}

// LinkConfig describes a receiver link.
type LinkConfig struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	Port     string `yaml:"port"`
	// Priority defaults to the protocol priority, 0 is the highest.
	Priority   *int          `yaml:"priority,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	QueueDepth int           `yaml:"queue_depth,omitempty"`
}

// MotorConfig describes a motor.
type MotorConfig struct {
	Name    string `yaml:"name"`
	Bus     uint8  `yaml:"bus"`
	Model   string `yaml:"model"`
	ID      int    `yaml:"id"`
	Enabled bool   `yaml:"enabled"`
	// Channel binds the motor to a stick channel.
	Channel *int    `yaml:"channel,omitempty"`
	Scale   float32 `yaml:"scale,omitempty"`
}

// ValidationError lists all problems of a File.
type ValidationError struct {
	Problems []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) addf(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

func (e *ValidationError) aggregate() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// Load reads, parses and validates a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML content.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Protocols lists the supported link protocols.
var Protocols = map[string]Protocol{
	"dr16":     dr16Protocol,
	"vt03":     vt03Protocol,
	"joystick": joystickProtocol,
}

// ParseTransport splits a transport spec into kind and argument.
func ParseTransport(s string) (kind, arg string, err error) {
	kind, arg, _ = strings.Cut(s, ":")
	switch kind {
	case "loopback":
		if arg != "" {
			return "", "", fmt.Errorf("loopback takes no argument")
		}
	case "socketcan":
		if arg == "" {
			return "", "", fmt.Errorf("socketcan requires an interface")
		}
	default:
		return "", "", fmt.Errorf("unknown transport %q", s)
	}
	return kind, arg, nil
}

// Validate checks the file for consistency.
func (f *File) Validate() error {
	var errs ValidationError
	if f.Loop < 0 {
		errs.addf("loop: negative period")
	}

	buses := make(map[uint8]bool)
	busNames := make(map[string]bool)
	for i, b := range f.Buses {
		if buses[b.ID] {
			errs.addf("buses[%d]: duplicated id %d", i, b.ID)
		}
		buses[b.ID] = true
		if b.Name != "" {
			if busNames[b.Name] {
				errs.addf("buses[%d]: duplicated name %q", i, b.Name)
			}
			busNames[b.Name] = true
		}
		if _, _, err := ParseTransport(b.Transport); err != nil {
			errs.addf("buses[%d]: %v", i, err)
		}
	}

	validatePolicy := func(where, stall string, timeout time.Duration) {
		mode, err := can.ParseStallMode(stall)
		if err != nil {
			errs.addf("%s: %v", where, err)
			return
		}
		if timeout < 0 || (mode != can.StallHold && timeout == 0) {
			errs.addf("%s: stall %s requires a positive timeout", where, mode)
		}
	}
	validatePolicy("merge", f.Merge.Stall, f.Merge.Timeout)
	for i, m := range f.Merge.Frames {
		where := fmt.Sprintf("merge.frames[%d]", i)
		if !buses[m.Bus] {
			errs.addf("%s: unknown bus %d", where, m.Bus)
		}
		if m.ID > 0x7FF {
			errs.addf("%s: id %X is not a standard id", where, m.ID)
		}
		validatePolicy(where, m.Stall, m.Timeout)
	}

	ports := make(map[string]bool)
	for i, p := range f.Ports {
		if p.Name == "" {
			errs.addf("ports[%d]: missing name", i)
		} else if ports[p.Name] {
			errs.addf("ports[%d]: duplicated name %q", i, p.Name)
		}
		ports[p.Name] = true
		if p.Device == "" {
			errs.addf("ports[%d]: missing device", i)
		}
		if p.BufferSize < 0 {
			errs.addf("ports[%d]: negative buffer size", i)
		}
	}

	links := make(map[string]bool)
	priorities := make(map[int]string)
	for i, l := range f.Links {
		where := fmt.Sprintf("links[%d]", i)
		if l.Name == "" {
			errs.addf("%s: missing name", where)
		} else if links[l.Name] {
			errs.addf("%s: duplicated name %q", where, l.Name)
		}
		links[l.Name] = true
		proto, ok := Protocols[l.Protocol]
		if !ok {
			errs.addf("%s: unknown protocol %q", where, l.Protocol)
			continue
		}
		if !ports[l.Port] {
			errs.addf("%s: unknown port %q", where, l.Port)
		}
		prio := l.priority(proto)
		if prio < 0 || prio > rc.MaxPriority {
			errs.addf("%s: priority %d out of range 0-%d", where, prio, rc.MaxPriority)
		} else if other, dup := priorities[prio]; dup {
			errs.addf("%s: priority %d already used by %q", where, prio, other)
		}
		priorities[prio] = l.Name
		if l.Timeout < 0 || l.QueueDepth < 0 {
			errs.addf("%s: negative timeout or queue depth", where)
		}
	}

	motors := make(map[string]bool)
	for i, m := range f.Motors {
		where := fmt.Sprintf("motors[%d]", i)
		if m.Name == "" {
			errs.addf("%s: missing name", where)
		} else if motors[m.Name] {
			errs.addf("%s: duplicated name %q", where, m.Name)
		}
		motors[m.Name] = true
		if !buses[m.Bus] {
			errs.addf("%s: unknown bus %d", where, m.Bus)
		}
		model, err := motor.ParseModel(m.Model)
		if err != nil {
			errs.addf("%s: %v", where, err)
		} else if _, err := motor.Lookup(model, m.ID); err != nil {
			errs.addf("%s: id %d: %v", where, m.ID, err)
		}
		if m.Channel != nil && (*m.Channel < 0 || *m.Channel > 3) {
			errs.addf("%s: channel %d out of range 0-3", where, *m.Channel)
		}
	}
	return errs.aggregate()
}

func (l LinkConfig) priority(p Protocol) int {
	if l.Priority != nil {
		return *l.Priority
	}
	return p.Priority
}
