// Package msgs defines the telemetry wire messages.
//
// Every message travels inside a Typed envelope carrying its type id, the
// publishing node and the session.
package msgs
