package capture

import "errors"

var (
	// ErrAlreadyRegistered indicates the owner already has a classifier.
	ErrAlreadyRegistered = errors.New("classifier already registered")
	// ErrNotFound indicates the owner has no classifier.
	ErrNotFound = errors.New("classifier not found")
	// ErrTimeout is returned by Queue.Receive when nothing arrived in time.
	ErrTimeout = errors.New("receive timeout")
	// ErrNotIdle is returned by Start on a running pipeline.
	ErrNotIdle = errors.New("pipeline not idle")
	// ErrBusy indicates the port already has an armed buffer.
	ErrBusy = errors.New("port busy")
)
