// Package lock provides a writer-preferring reader/writer lock with
// timed acquisition and scoped guards.
//
// A failed timed acquisition leaves the lock exactly as it was before
// the call.
package lock
