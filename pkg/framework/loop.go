package framework

import (
	"context"
	"strconv"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/golang/glog"
)

// DefaultInterval is the loop period when Interval is not set.
const DefaultInterval = 100 * time.Millisecond

// Stage orders the controllers of an iteration.
type Stage int

const (
	// StageSense reads inputs such as motor feedback.
	StageSense Stage = iota
	// StageControl turns inputs into commands.
	StageControl
	// StageActuate writes commands to the buses.
	StageActuate
	// StageReport observes the finished iteration.
	StageReport

	numStages
)

var stageNames = [numStages]string{"sense", "control", "actuate", "report"}

func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return "stage" + strconv.Itoa(int(s))
	}
	return stageNames[s]
}

// Iteration is the state of one pass over all stages.
type Iteration struct {
	ctx      context.Context
	now      time.Time
	stage    Stage
	messages []Message
}

// Context returns the context the loop runs with.
func (it *Iteration) Context() context.Context {
	return it.ctx
}

// Time returns when the iteration started.
func (it *Iteration) Time() time.Time {
	return it.now
}

// Stage returns the stage being run.
func (it *Iteration) Stage() Stage {
	return it.stage
}

// Post hands messages to the controllers running after the caller.
// Messages not taken are dropped when the iteration ends.
func (it *Iteration) Post(msgs ...Message) {
	it.messages = append(it.messages, msgs...)
}

// Take calls fn with every pending message in posting order and removes
// the ones fn returns true for.
func (it *Iteration) Take(fn func(Message) bool) {
	pending := it.messages
	it.messages = nil
	for _, msg := range pending {
		if !fn(msg) {
			it.messages = append(it.messages, msg)
		}
	}
}

// Loop runs its controllers stage by stage once per Interval.
type Loop struct {
	Interval time.Duration

	stages  [numStages][]Controller
	runners []Runnable

	iterations atomix.Uint32
	overruns   atomix.Uint32
	errors     atomix.Uint32
	lastRun    atomix.Uint32
}

// LoopStats are the counters of a Loop.
type LoopStats struct {
	Iterations uint32
	// Overruns counts iterations longer than Interval.
	Overruns uint32
	Errors   uint32
	LastRun  time.Duration
}

// NewLoop creates a Loop running every DefaultInterval.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultInterval}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController appends controllers to stage. Controllers which are also
// Runnable are started by Run.
func (l *Loop) AddController(stage Stage, ctls ...Controller) *Loop {
	l.stages[stage] = append(l.stages[stage], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(ctx)
	runner.Go(l.runners...)

	ticker := time.NewTicker(l.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			l.runIteration(ctx)
		}
	}
}

func (l *Loop) interval() time.Duration {
	if l.Interval <= 0 {
		return DefaultInterval
	}
	return l.Interval
}

// RunOnce runs a single iteration started at now.
func (l *Loop) RunOnce(ctx context.Context, now time.Time) {
	it := &Iteration{ctx: ctx, now: now}
	for s := range l.stages {
		it.stage = Stage(s)
		for _, ctl := range l.stages[s] {
			if err := ctl.Control(it); err != nil {
				l.errors.Add(1)
				glog.Errorf("loop %s: %v", it.stage, err)
			}
		}
	}
	l.iterations.Add(1)
}

func (l *Loop) runIteration(ctx context.Context) {
	start := time.Now()
	l.RunOnce(ctx, start)
	elapsed := time.Since(start)
	l.lastRun.Store(uint32(elapsed / time.Microsecond))
	if elapsed > l.interval() {
		if l.overruns.Add(1) == 1 || glog.V(3) {
			glog.Warningf("loop iteration took %v, interval %v", elapsed, l.interval())
		}
	}
}

// Stats returns the counters.
func (l *Loop) Stats() LoopStats {
	return LoopStats{
		Iterations: l.iterations.Load(),
		Overruns:   l.overruns.Load(),
		Errors:     l.errors.Load(),
		LastRun:    time.Duration(l.lastRun.Load()) * time.Microsecond,
	}
}
