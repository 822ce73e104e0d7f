package rc

import (
	"context"
	"errors"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"

	"github.com/robotalks/rtio.go/pkg/capture"
	"github.com/robotalks/rtio.go/pkg/lock"
)

// Decoder understands one receiver protocol and owns the decoded state.
type Decoder interface {
	// Size is the exact frame length.
	Size() int
	// Accept performs the structural check of a frame, e.g. sync bytes.
	Accept(buf []byte) bool
	// Decode validates the frame and updates the current snapshot. The
	// previous snapshot is retained. Invalid frames return false and leave
	// both snapshots untouched.
	Decode(buf []byte) bool
	// Snapshot returns a copy of the current decoded state.
	Snapshot() any
	// Previous returns a copy of the state before the last Decode.
	Previous() any
}

var (
	// ErrPriorityRange indicates a priority outside [0, MaxPriority].
	ErrPriorityRange = errors.New("priority out of range")
	// ErrPriorityInUse indicates another link of the group has the priority.
	ErrPriorityInUse = errors.New("priority in use")
	// ErrAlreadyEnabled indicates the link is attached to a pipeline.
	ErrAlreadyEnabled = errors.New("link already enabled")
	// ErrNotEnabled indicates the link is not attached to a pipeline.
	ErrNotEnabled = errors.New("link not enabled")
	// ErrMaskMismatch indicates the link arbitrates on another mask.
	ErrMaskMismatch = errors.New("link uses a different mask")
)

// Sticks is implemented by snapshots carrying the four stick channels.
type Sticks interface {
	Sticks() [4]float32
}

// LinkOptions tunes a Link.
type LinkOptions struct {
	// Period is the nominal frame interval.
	Period time.Duration
	// Timeout is how long the link stays active without frames. Zero means
	// ten periods.
	Timeout time.Duration
	// QueueDepth is the number of frames buffered for the consumer.
	QueueDepth int
}

// Link is one redundant input source arbitrated through a Mask.
type Link struct {
	name     string
	priority int
	decoder  Decoder
	mask     *Mask
	timeout  time.Duration
	queue    *capture.Queue
	lock     *lock.RWLock

	cbLock    sync.Mutex
	consumers []func(any)
	pipeline  *capture.Pipeline

	decoded     atomix.Uint32
	rejected    atomix.Uint32
	purged      atomix.Uint32
	timeouts    atomix.Uint32
	activations atomix.Uint32
}

// LinkStatus reports the state of a Link.
type LinkStatus struct {
	Name        string
	Priority    int
	Enabled     bool
	Active      bool
	Received    uint32
	Decoded     uint32
	Rejected    uint32
	Dropped     uint32
	Timeouts    uint32
	Activations uint32
}

// NewLink creates a disabled link.
func NewLink(name string, priority int, decoder Decoder, mask *Mask, opts LinkOptions) (*Link, error) {
	if priority < 0 || priority > MaxPriority {
		return nil, ErrPriorityRange
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = opts.Period * 10
	}
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = 4
	}
	return &Link{
		name:     name,
		priority: priority,
		decoder:  decoder,
		mask:     mask,
		timeout:  timeout,
		queue:    capture.NewQueue(depth),
		lock:     lock.New(),
	}, nil
}

// Name implements framework.Named.
func (l *Link) Name() string {
	return l.name
}

// Priority returns the arbitration priority, lower wins.
func (l *Link) Priority() int {
	return l.priority
}

// Timeout returns the inactivity timeout.
func (l *Link) Timeout() time.Duration {
	return l.timeout
}

// Lock exposes the lock guarding the decoded snapshots.
func (l *Link) Lock() *lock.RWLock {
	return l.lock
}

// Classify implements capture.Classifier. It claims frames of the right
// shape while no higher-ranked link is active. A claimed frame that does
// not fit the queue is dropped.
func (l *Link) Classify(buf []byte) bool {
	if len(buf) != l.decoder.Size() || !l.decoder.Accept(buf) {
		return false
	}
	if !l.mask.Allows(l.priority) {
		return false
	}
	l.queue.TrySend(buf)
	return true
}

// Enable attaches the link to a capture pipeline.
func (l *Link) Enable(p *capture.Pipeline) error {
	l.cbLock.Lock()
	defer l.cbLock.Unlock()
	if l.pipeline != nil {
		return ErrAlreadyEnabled
	}
	if err := p.Register(capture.Owner(l.name), l); err != nil {
		return err
	}
	l.pipeline = p
	return nil
}

// Disable detaches the link, deactivates it and drops queued frames.
func (l *Link) Disable() error {
	l.cbLock.Lock()
	p := l.pipeline
	l.pipeline = nil
	l.cbLock.Unlock()
	if p == nil {
		return ErrNotEnabled
	}
	err := p.Unregister(capture.Owner(l.name))
	l.mask.Clear(l.priority)
	l.purged.Add(uint32(l.queue.Purge()))
	glog.V(2).Infof("%s: disabled", l.name)
	return err
}

// Consume adds a callback invoked with each decoded snapshot. Callbacks
// run in registration order while the write lock is held, so they must
// not call Read.
func (l *Link) Consume(fn func(snapshot any)) {
	l.cbLock.Lock()
	l.consumers = append(l.consumers, fn)
	l.cbLock.Unlock()
}

// Run implements framework.Runnable. It blocks for the first frame,
// which activates the link, then decodes frames until none arrives
// within the timeout or the link is disabled.
func (l *Link) Run(ctx context.Context) error {
	defer l.mask.Clear(l.priority)
	for {
		if _, err := l.queue.Receive(ctx, 0); err != nil {
			return err
		}
		l.mask.Set(l.priority)
		l.activations.Add(1)
		glog.V(2).Infof("%s: active", l.name)
		for l.mask.Active(l.priority) {
			pkt, err := l.queue.Receive(ctx, l.timeout)
			if err == capture.ErrTimeout {
				l.timeouts.Add(1)
				l.mask.Clear(l.priority)
				glog.V(2).Infof("%s: lost, no frame in %s", l.name, l.timeout)
				break
			}
			if err != nil {
				return err
			}
			l.publish(pkt.Bytes())
		}
	}
}

func (l *Link) publish(frame []byte) {
	g := lock.WriteScope(l.lock)
	defer g.Release()
	if !l.decoder.Decode(frame) {
		l.rejected.Add(1)
		if glog.V(5) {
			glog.Infof("%s: reject % X", l.name, frame)
		}
		return
	}
	l.decoded.Add(1)
	l.cbLock.Lock()
	consumers := l.consumers
	l.cbLock.Unlock()
	if len(consumers) == 0 {
		return
	}
	snap := l.decoder.Snapshot()
	for _, fn := range consumers {
		fn(snap)
	}
}

// Read calls fn with the current snapshot under the read lock.
func (l *Link) Read(fn func(snapshot any)) {
	g := lock.ReadScope(l.lock)
	defer g.Release()
	fn(l.decoder.Snapshot())
}

// ReadTimeout is Read with a bounded wait for the lock. It returns false
// without calling fn when the lock was not acquired in time.
func (l *Link) ReadTimeout(d time.Duration, fn func(snapshot any)) bool {
	g, ok := lock.ReadScopeTimeout(l.lock, d)
	if !ok {
		return false
	}
	defer g.Release()
	fn(l.decoder.Snapshot())
	return true
}

// ReadEdges calls fn with the current and previous snapshots.
func (l *Link) ReadEdges(fn func(cur, prev any)) {
	g := lock.ReadScope(l.lock)
	defer g.Release()
	fn(l.decoder.Snapshot(), l.decoder.Previous())
}

// Status returns the link counters.
func (l *Link) Status() LinkStatus {
	l.cbLock.Lock()
	enabled := l.pipeline != nil
	l.cbLock.Unlock()
	qs := l.queue.Stats()
	return LinkStatus{
		Name:        l.name,
		Priority:    l.priority,
		Enabled:     enabled,
		Active:      l.mask.Active(l.priority),
		Received:    qs.Sent,
		Decoded:     l.decoded.Load(),
		Rejected:    l.rejected.Load(),
		Dropped:     qs.Dropped + l.purged.Load(),
		Timeouts:    l.timeouts.Load(),
		Activations: l.activations.Load(),
	}
}
