package framework

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/golang/glog"
)

// ErrForcedExit is returned by Wait after a second stop signal.
var ErrForcedExit = errors.New("forced exit")

// Runner starts Runnables in goroutines sharing one context and collects
// their errors. Cancellation is not an error.
type Runner struct {
	ctx    context.Context
	wg     sync.WaitGroup
	count  int
	forced chan struct{}

	lock sync.Mutex
	errs AggregatedError
}

// NewRunnerWith creates a runner bound to ctx.
func NewRunnerWith(ctx context.Context) *Runner {
	return &Runner{ctx: ctx, forced: make(chan struct{})}
}

// HandleSignals cancels the runner on SIGINT or SIGTERM. A second signal
// makes Wait return ErrForcedExit without waiting.
func (r *Runner) HandleSignals() *Runner {
	ctx, cancel := context.WithCancel(r.ctx)
	r.ctx = ctx
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.forced)
	}()
	return r
}

// Go starts runnables. Unnamed ones are named by start order.
func (r *Runner) Go(runnables ...Runnable) *Runner {
	for _, runnable := range runnables {
		name := strconv.Itoa(r.count)
		if named, ok := runnable.(Named); ok {
			name = named.Name()
		}
		r.count++
		r.wg.Add(1)
		go r.run(name, runnable)
	}
	return r
}

func (r *Runner) run(name string, runnable Runnable) {
	defer r.wg.Done()
	glog.V(4).Infof("%s: started", name)
	err := runnable.Run(r.ctx)
	glog.V(4).Infof("%s: stopped", name)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	glog.Errorf("%s: %v", name, err)
	r.lock.Lock()
	r.errs.Add(fmt.Errorf("%s: %w", name, err))
	r.lock.Unlock()
}

// Wait blocks until every started runnable returns.
func (r *Runner) Wait() error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-r.forced:
		return ErrForcedExit
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.errs.Aggregate()
}

// RunWithContextCloser runs fn, which does not take a context, and closes
// closer once fn returns or ctx is done. When ctx ends first, fn is
// awaited and ctx.Err() is returned.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case err := <-errCh:
		closer.Close()
		return err
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	}
}
