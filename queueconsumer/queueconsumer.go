// Package queueconsumer is a supplemental feature grounded on
// baseplate/queue_consumer.py in original_source/: a worker-pool consumer
// that pulls messages off an mqueue.Queue (the same inter-process queue
// abstraction C7 defines) and hands each to a Handler, recording every
// handled message as a local span opened with baseplate.StartLocalSpan
// (spec §11). That span is a child of the span carried by the context
// passed to Run; when that context carries none, each message gets an
// unsampled root span with no observers attached.
package queueconsumer

import (
	"context"
	"sync"
	"time"

	"github.com/reddit/baseplate.go/baseplate"
	"github.com/reddit/baseplate.go/mqueue"
	"github.com/reddit/baseplate.go/tracing/ext"
)

// Handler processes one dequeued message. A returned error finishes the
// message's span with that error tagged, but does not stop the consumer.
type Handler func(ctx context.Context, message []byte) error

// Config controls queue draining and worker concurrency.
type Config struct {
	Queue          mqueue.Config
	Workers        int
	ReceiveTimeout time.Duration
	SpanName       string
}

// Consumer runs Workers goroutines pulling from one mqueue.Queue and
// invoking Handler for each message.
type Consumer struct {
	cfg     Config
	queue   mqueue.Queue
	bp      *baseplate.Baseplate
	handler Handler
}

// New opens cfg.Queue and returns a Consumer ready to Run.
func New(cfg Config, bp *baseplate.Baseplate, handler Handler) (*Consumer, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = time.Second
	}
	if cfg.SpanName == "" {
		cfg.SpanName = "queue.consume"
	}
	q, err := mqueue.Open(cfg.Queue)
	if err != nil {
		return nil, err
	}
	return &Consumer{cfg: cfg, queue: q, bp: bp, handler: handler}, nil
}

// Run starts cfg.Workers goroutines and blocks until ctx is canceled, then
// waits for every in-flight handler call to return before closing the
// queue and returning.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx)
		}()
	}
	wg.Wait()
	return c.queue.Close()
}

func (c *Consumer) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.queue.Receive(c.cfg.ReceiveTimeout)
		if err == mqueue.ErrTimedOut {
			continue
		}
		if err != nil {
			continue
		}

		spanCtx, span := c.bp.StartLocalSpan(ctx, c.cfg.SpanName, "queue")
		span.SetTag(ext.Component, "queue")
		span.SetTag(ext.SpanKind, ext.SpanKindConsumer)
		err = c.handler(spanCtx, msg)
		span.Finish(err)
	}
}
