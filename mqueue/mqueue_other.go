//go:build !linux

package mqueue

import (
	"sync"
	"time"
)

// registry backs Open on platforms without a POSIX mqueue implementation
// (darwin, windows dev laptops). It is process-local, not cross-process,
// but preserves the same bounded/blocking/timeout semantics so the rest of
// the module and its tests do not need a build tag of their own.
var (
	registryMu sync.Mutex
	registry   = map[string]*memQueue{}
)

type memQueue struct {
	cfg Config
	ch  chan []byte
	refs int
}

// Open returns a handle to the named in-memory queue, creating it on first
// use.
func Open(cfg Config) (Queue, error) {
	if cfg.Name == "" || cfg.MaxMessages <= 0 || cfg.MaxMessageSize <= 0 {
		return nil, ErrInvalidParameters
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	q, ok := registry[cfg.Name]
	if !ok {
		q = &memQueue{cfg: cfg, ch: make(chan []byte, cfg.MaxMessages)}
		registry[cfg.Name] = q
	}
	q.refs++
	return &memQueueHandle{q: q}, nil
}

type memQueueHandle struct {
	q      *memQueue
	closed bool
}

// Send implements Queue.
func (h *memQueueHandle) Send(data []byte, timeout time.Duration) error {
	if len(data) > h.q.cfg.MaxMessageSize {
		return ErrMessageTooLarge
	}
	select {
	case h.q.ch <- data:
		return nil
	case <-time.After(timeout):
		return ErrTimedOut
	}
}

// Receive implements Queue.
func (h *memQueueHandle) Receive(timeout time.Duration) ([]byte, error) {
	select {
	case data := <-h.q.ch:
		return data, nil
	case <-time.After(timeout):
		return nil, ErrTimedOut
	}
}

// Close implements Queue.
func (h *memQueueHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	registryMu.Lock()
	h.q.refs--
	registryMu.Unlock()
	return nil
}

// Unlink implements Queue.
func (h *memQueueHandle) Unlink() error {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, h.q.cfg.Name)
	return nil
}
