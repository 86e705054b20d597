// Package mqueue wraps the POSIX message queue used to hand span records
// from an in-process recorder to the out-of-process publisher sidecar (C7).
// The real implementation (mqueue_linux.go) is a thin wrapper over
// golang.org/x/sys/unix's mq_open/mq_send/mq_receive/mq_unlink family,
// mirroring the teacher's pattern of splitting OS-specific syscall access
// into its own build-tagged file instead of reimplementing cgo bindings.
// Non-Linux builds (mqueue_other.go) get an in-memory fallback so the rest
// of the module still builds and tests on a developer's laptop.
package mqueue

import (
	"errors"
	"time"
)

// ErrTimedOut is returned by Receive when no message arrived within the
// deadline (spec §4.7 "Get: blocking with timeout").
var ErrTimedOut = errors.New("mqueue: receive timed out")

// ErrInvalidParameters is returned by Open when MaxMessages, MaxMessageSize,
// or Name are out of range for the platform's mqueue implementation.
var ErrInvalidParameters = errors.New("mqueue: invalid parameters")

// ErrMessageTooLarge is returned by Send when the payload exceeds
// MaxMessageSize (spec §4.7 "Put: reject oversized messages").
var ErrMessageTooLarge = errors.New("mqueue: message exceeds max message size")

// Config describes how to open or create a queue (spec §4.7).
type Config struct {
	// Name is the queue's identifier; on Linux it becomes a /dev/mqueue
	// entry and must begin with a leading slash.
	Name string
	// MaxMessages bounds how many unread messages the queue holds at once.
	MaxMessages int
	// MaxMessageSize bounds a single message's byte length.
	MaxMessageSize int
}

// Queue is a bounded, named, cross-process FIFO of byte messages.
type Queue interface {
	// Send enqueues data, blocking until there is room or timeout elapses,
	// in which case it returns ErrTimedOut. Returns ErrMessageTooLarge if
	// data exceeds MaxMessageSize.
	Send(data []byte, timeout time.Duration) error
	// Receive dequeues the next message, blocking up to timeout.
	// Returns ErrTimedOut if none arrives in time.
	Receive(timeout time.Duration) ([]byte, error)
	// Close releases this process's handle to the queue without removing
	// it for other processes.
	Close() error
	// Unlink removes the queue from the system once every handle is
	// closed. Only the publisher sidecar, which owns the queue's
	// lifecycle, calls this.
	Unlink() error
}
