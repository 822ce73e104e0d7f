package framework

import "context"

// Named is implemented by components reporting a name in logs.
type Named interface {
	Name() string
}

// Runnable is a background task bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun attaches a name to runnable.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// Message is handed between controllers within one iteration.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller is invoked once per iteration at the stage it was added to.
type Controller interface {
	Control(*Iteration) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(*Iteration) error

// Control implements Controller.
func (f ControlFunc) Control(it *Iteration) error {
	return f(it)
}

// LoopAdder adds its controllers to a loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}
