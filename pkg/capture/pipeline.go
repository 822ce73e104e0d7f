package capture

import (
	"fmt"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"
)

// Port is an asynchronous receive primitive. After Arm returns nil the
// port fills buf and reports the result through Completer.
type Port interface {
	Arm(buf []byte) error
}

// Completer receives completion notifications from a Port.
type Completer interface {
	Complete(n int)
	Fail(err error)
}

// Classifier inspects a settled frame and claims it by returning true.
// Claiming means the classifier has copied what it needs.
type Classifier interface {
	Classify(buf []byte) bool
}

// ClassifierFunc is the func form of Classifier.
type ClassifierFunc func([]byte) bool

// Classify implements Classifier.
func (f ClassifierFunc) Classify(buf []byte) bool {
	return f(buf)
}

// Owner names the registrant of a classifier.
type Owner string

// State is the lifecycle state of a Pipeline.
type State uint32

// States.
const (
	Idle State = iota
	Armed
	Completing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Completing:
		return "completing"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

type classifierEntry struct {
	owner Owner
	c     Classifier
}

// Pipeline double-buffers a Port. Each completion is offered to the
// registered classifiers in registration order, then the buffers swap
// and the port is armed again.
type Pipeline struct {
	Name string

	port  Port
	bufs  [2][]byte
	armed int

	state atomix.Uint32

	regLock     sync.Mutex
	classifiers atomic.Pointer[[]classifierEntry]

	completions   atomix.Uint32
	claimed       atomix.Uint32
	unclaimed     atomix.Uint32
	failures      atomix.Uint32
	rearmFailures atomix.Uint32
	spurious      atomix.Uint32
}

// Stats reports pipeline counters.
type Stats struct {
	State         State
	Classifiers   int
	Completions   uint32
	Claimed       uint32
	Unclaimed     uint32
	Failures      uint32
	RearmFailures uint32
	Spurious      uint32
}

// NewPipeline creates an idle pipeline with two buffers of size bytes.
func NewPipeline(port Port, size int) *Pipeline {
	p := &Pipeline{port: port}
	p.bufs[0] = make([]byte, size)
	p.bufs[1] = make([]byte, size)
	p.classifiers.Store(&[]classifierEntry{})
	return p
}

// Start arms the first buffer.
func (p *Pipeline) Start() error {
	if !p.state.CompareAndSwap(uint32(Idle), uint32(Armed)) {
		return ErrNotIdle
	}
	if err := p.port.Arm(p.bufs[p.armed]); err != nil {
		p.state.Store(uint32(Idle))
		return err
	}
	return nil
}

// Register appends a classifier owned by owner.
func (p *Pipeline) Register(owner Owner, c Classifier) error {
	p.regLock.Lock()
	defer p.regLock.Unlock()
	cur := *p.classifiers.Load()
	for _, e := range cur {
		if e.owner == owner {
			return ErrAlreadyRegistered
		}
	}
	next := make([]classifierEntry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, classifierEntry{owner: owner, c: c})
	p.classifiers.Store(&next)
	return nil
}

// Unregister removes the classifier of owner.
func (p *Pipeline) Unregister(owner Owner) error {
	p.regLock.Lock()
	defer p.regLock.Unlock()
	cur := *p.classifiers.Load()
	for i, e := range cur {
		if e.owner != owner {
			continue
		}
		next := make([]classifierEntry, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		p.classifiers.Store(&next)
		return nil
	}
	return ErrNotFound
}

// Complete implements Completer. n is the number of bytes received into
// the armed buffer.
func (p *Pipeline) Complete(n int) {
	if !p.state.CompareAndSwap(uint32(Armed), uint32(Completing)) {
		p.spurious.Add(1)
		return
	}
	p.completions.Add(1)
	buf := p.bufs[p.armed]
	if n < 0 {
		n = 0
	} else if n > len(buf) {
		n = len(buf)
	}
	if p.classify(buf[:n]) {
		p.claimed.Add(1)
	} else {
		p.unclaimed.Add(1)
		if glog.V(5) {
			glog.Infof("%s: unclaimed % X", p.Name, buf[:n])
		}
	}
	p.armed ^= 1
	p.rearm()
}

// Fail implements Completer. The current buffer is armed again.
func (p *Pipeline) Fail(err error) {
	if !p.state.CompareAndSwap(uint32(Armed), uint32(Completing)) {
		p.spurious.Add(1)
		return
	}
	p.failures.Add(1)
	glog.Warningf("%s: receive error: %v", p.Name, err)
	p.rearm()
}

func (p *Pipeline) classify(frame []byte) bool {
	for _, e := range *p.classifiers.Load() {
		if e.c.Classify(frame) {
			return true
		}
	}
	return false
}

func (p *Pipeline) rearm() {
	p.state.Store(uint32(Armed))
	if err := p.port.Arm(p.bufs[p.armed]); err != nil {
		p.state.Store(uint32(Idle))
		p.rearmFailures.Add(1)
		glog.Errorf("%s: re-arm failed: %v", p.Name, err)
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stats returns the pipeline counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		State:         p.State(),
		Classifiers:   len(*p.classifiers.Load()),
		Completions:   p.completions.Load(),
		Claimed:       p.claimed.Load(),
		Unclaimed:     p.unclaimed.Load(),
		Failures:      p.failures.Load(),
		RearmFailures: p.rearmFailures.Load(),
		Spurious:      p.spurious.Load(),
	}
}
