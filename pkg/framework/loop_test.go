package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countMessage struct{ n int }

func (m *countMessage) NewMessage() Message { return &countMessage{} }

type otherMessage struct{}

func (m *otherMessage) NewMessage() Message { return &otherMessage{} }

func TestLoopRunOnce(t *testing.T) {
	l := NewLoop()
	var order []string
	var seen []int
	var left int
	l.AddController(StageReport, ControlFunc(func(it *Iteration) error {
		order = append(order, "report")
		it.Take(func(msg Message) bool { return true })
		return nil
	}))
	l.AddController(StageActuate, ControlFunc(func(it *Iteration) error {
		order = append(order, "actuate")
		it.Take(func(msg Message) bool {
			m, ok := msg.(*countMessage)
			if ok {
				seen = append(seen, m.n)
			}
			return ok
		})
		it.Take(func(Message) bool {
			left++
			return false
		})
		return nil
	}))
	l.AddController(StageSense, ControlFunc(func(it *Iteration) error {
		order = append(order, "sense")
		require.Equal(t, StageSense, it.Stage())
		it.Post(&countMessage{n: 1}, &otherMessage{}, &countMessage{n: 2})
		return nil
	}))
	l.AddController(StageControl, ControlFunc(func(it *Iteration) error {
		order = append(order, "control")
		return errors.New("control failed")
	}))

	now := time.Unix(10, 0)
	l.RunOnce(context.Background(), now)
	require.Equal(t, []string{"sense", "control", "actuate", "report"}, order)
	require.Equal(t, []int{1, 2}, seen)
	require.Equal(t, 1, left)

	stats := l.Stats()
	require.Equal(t, uint32(1), stats.Iterations)
	require.Equal(t, uint32(1), stats.Errors)

	// messages do not outlive their iteration.
	order, seen, left = nil, nil, 0
	l.RunOnce(context.Background(), now)
	require.Equal(t, []string{"sense", "control", "actuate", "report"}, order)
	require.Equal(t, []int{1, 2}, seen)
	require.Equal(t, 1, left)
	require.Equal(t, uint32(2), l.Stats().Errors)
}

func TestStageString(t *testing.T) {
	require.Equal(t, "sense", StageSense.String())
	require.Equal(t, "report", StageReport.String())
	require.Equal(t, "stage9", Stage(9).String())
}

type runnableController struct {
	started chan struct{}
}

func (c *runnableController) Control(*Iteration) error { return nil }

func (c *runnableController) Run(ctx context.Context) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestLoopRun(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Millisecond
	ran := make(chan struct{}, 1)
	l.AddController(StageControl, ControlFunc(func(*Iteration) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	ctl := &runnableController{started: make(chan struct{})}
	l.AddController(StageReport, ctl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("iteration not run")
	}
	select {
	case <-ctl.started:
	case <-time.After(time.Second):
		t.Fatal("runnable controller not started")
	}
	cancel()
	require.Equal(t, context.Canceled, <-done)
	require.Positive(t, l.Stats().Iterations)
}

func TestRunnerWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	failure := errors.New("failed")
	r := NewRunnerWith(ctx)
	r.Go(
		NamedRun("wait", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		RunFunc(func(context.Context) error { return failure }),
	)
	cancel()
	err := r.Wait()
	require.ErrorIs(t, err, failure)
	require.Equal(t, "1: failed", err.Error())
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunWithContextCloser(t *testing.T) {
	t.Run("fn returns", func(t *testing.T) {
		closed := 0
		err := RunWithContextCloser(context.Background(), closerFunc(func() error {
			closed++
			return nil
		}), func() error { return errors.New("eof") })
		require.EqualError(t, err, "eof")
		require.Equal(t, 1, closed)
	})
	t.Run("ctx done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		unblock := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- RunWithContextCloser(ctx, closerFunc(func() error {
				close(unblock)
				return nil
			}), func() error {
				<-unblock
				return errors.New("closed")
			})
		}()
		cancel()
		require.Equal(t, context.Canceled, <-done)
	})
}

func TestAggregatedError(t *testing.T) {
	first, second := errors.New("first"), errors.New("second")
	require.NoError(t, (&AggregatedError{}).Add(nil).Aggregate())
	require.Same(t, first, (&AggregatedError{}).Add(nil, first).Aggregate())

	err := (&AggregatedError{}).Add(first, second).Aggregate()
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
	require.Equal(t, "Multiple errors:\nfirst\nsecond", err.Error())
}
