// Package eventpublisher is a supplemental feature grounded on
// baseplate/sidecars/event_publisher.py in original_source/: a generic
// analogue of the span publisher (C8) for arbitrary application events
// (not spans) that a service wants delivered to a collector off its
// request path, reusing the same queue-drain/batch/retry shape but with a
// pluggable Encode function instead of a fixed Zipkin envelope, since
// event payloads vary by event type (spec §11, "Supplemented features").
package eventpublisher

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/mqueue"
)

// Encoder renders a batch of raw queued payloads into the request body a
// collector expects. Event payloads are opaque to this package; callers
// supply the encoding their collector understands (e.g. a newline-delimited
// or length-prefixed framing, unlike C8's fixed Zipkin JSON array).
type Encoder func(batch [][]byte) ([]byte, error)

// Config controls queue draining, batching, and delivery, mirroring
// publisher.Config but parameterized by ContentType and Encode.
type Config struct {
	Queue          mqueue.Config
	CollectorURL   string
	ContentType    string
	Encode         Encoder
	MaxBatchSize   int
	MaxBatchAge    time.Duration
	ReceiveTimeout time.Duration
	MaxElapsedTime time.Duration
}

// Publisher drains an event queue and ships batches to CollectorURL using
// Encode to frame each batch.
type Publisher struct {
	cfg    Config
	queue  mqueue.Queue
	client *http.Client
}

// New opens cfg.Queue and returns a Publisher ready to Run.
func New(cfg Config) (*Publisher, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 100
	}
	if cfg.MaxBatchAge <= 0 {
		cfg.MaxBatchAge = time.Second
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 200 * time.Millisecond
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "application/octet-stream"
	}
	if cfg.Encode == nil {
		cfg.Encode = concatEncoder
	}
	q, err := mqueue.Open(cfg.Queue)
	if err != nil {
		return nil, err
	}
	return &Publisher{cfg: cfg, queue: q, client: &http.Client{Timeout: 10 * time.Second}}, nil
}

// concatEncoder is the default Encoder: payloads concatenated with a
// newline separator, for collectors that accept newline-delimited events.
func concatEncoder(batch [][]byte) ([]byte, error) {
	var buf bytes.Buffer
	for _, msg := range batch {
		buf.Write(msg)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Run drains the queue until ctx is canceled, flushing any in-flight batch
// before returning.
func (p *Publisher) Run(ctx context.Context) error {
	batch := make([][]byte, 0, p.cfg.MaxBatchSize)
	deadline := time.Now().Add(p.cfg.MaxBatchAge)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.publishWithRetry(ctx, batch)
		batch = batch[:0]
		deadline = time.Now().Add(p.cfg.MaxBatchAge)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return p.queue.Close()
		default:
		}

		data, err := p.queue.Receive(p.cfg.ReceiveTimeout)
		switch {
		case err == mqueue.ErrTimedOut:
		case err != nil:
			log.Error("eventpublisher: receive failed: %v", err)
		default:
			batch = append(batch, data)
		}

		if len(batch) >= p.cfg.MaxBatchSize || (len(batch) > 0 && time.Now().After(deadline)) {
			flush()
		}
	}
}

func (p *Publisher) publishWithRetry(ctx context.Context, batch [][]byte) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.cfg.MaxElapsedTime
	err := backoff.Retry(func() error { return p.publish(batch) }, backoff.WithContext(bo, ctx))
	if err != nil {
		log.Error("eventpublisher: dropping batch of %d events: %v", len(batch), err)
	}
}

func (p *Publisher) publish(batch [][]byte) error {
	body, err := p.cfg.Encode(batch)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := p.client.Post(p.cfg.CollectorURL, p.cfg.ContentType, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return errStatus(resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(errStatus(resp.StatusCode))
	}
	return nil
}

type errStatus int

func (e errStatus) Error() string {
	return "eventpublisher: collector returned status " + http.StatusText(int(e))
}
