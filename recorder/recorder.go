// Package recorder implements the span recorder (C6): the bounded,
// non-blocking handoff between a finishing span and whatever ships its
// serialized record onward. The shape mirrors the teacher's span writer —
// a fixed-size channel drained by a small worker pool — generalized from a
// single HTTP transport to the pluggable Sink this spec requires (null,
// logging, remote HTTP, and sidecar queue).
package recorder

import (
	"sync"

	"github.com/reddit/baseplate.go/internal/log"
)

// Sink accepts one serialized span record. Implementations must not block
// the caller for long; Remote and Sidecar sinks do their own buffering.
type Sink interface {
	Send(data []byte) error
	Close() error
}

// Recorder receives serialized span records through Record (called by
// recordobserver.Observer when a span finishes) and enqueues them; if the
// queue is full the record is dropped and counted, never blocking the
// request path (spec §4.6 "Queue policy").
type Recorder struct {
	sink  Sink
	queue chan []byte

	wg sync.WaitGroup

	mu      sync.Mutex
	dropped uint64
	closed  bool
}

// Config controls queue sizing and worker concurrency.
type Config struct {
	// QueueSize bounds the number of pending records. Spec §4.6 default is
	// 10000.
	QueueSize int
	// Workers is the number of goroutines draining the queue. Spec §4.6
	// default is 1.
	Workers int
}

// DefaultConfig matches spec §4.6's defaults.
func DefaultConfig() Config {
	return Config{QueueSize: 10000, Workers: 1}
}

// New starts a Recorder backed by sink, draining via cfg.Workers
// goroutines.
func New(sink Sink, cfg Config) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	r := &Recorder{
		sink:  sink,
		queue: make(chan []byte, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		r.wg.Add(1)
		go r.drain()
	}
	return r
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for data := range r.queue {
		if err := r.sink.Send(data); err != nil {
			log.Error("recorder: sink send failed: %v", err)
		}
	}
}

// Record enqueues data without blocking; a full queue drops the record and
// logs at a rate-limited cadence via internal/log's error coalescing.
func (r *Recorder) Record(data []byte) {
	select {
	case r.queue <- data:
	default:
		r.mu.Lock()
		r.dropped++
		n := r.dropped
		r.mu.Unlock()
		log.Error("recorder: queue full, dropped span record (total dropped: %d)", n)
	}
}

// Dropped returns the number of records dropped because the queue was full.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting new records, drains the queue, and closes the sink.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.queue)
	r.wg.Wait()
	return r.sink.Close()
}
