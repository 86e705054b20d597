// Package publisher is the span publisher sidecar (C8): it drains the
// inter-process queue (C7) that in-process recorders write to, accumulates
// messages into size- or age-bounded batches, and ships each batch to a
// Zipkin-compatible collector with retrying backoff. The batch-then-POST
// shape and its retry policy are grounded on the teacher's agent-writer
// payload flush loop; the retry classification (4xx fatal, 422 soft-drop,
// 5xx retry) comes from spec §4.8.
package publisher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/mqueue"
)

// Config controls queue draining, batching, and delivery.
type Config struct {
	Queue mqueue.Config

	// CollectorURL is the Zipkin-compatible HTTP endpoint batches are
	// POSTed to.
	CollectorURL string

	// MaxBatchSize bounds the number of messages accumulated before a
	// batch is flushed regardless of age.
	MaxBatchSize int
	// MaxBatchAge bounds how long a partial batch is held before being
	// flushed regardless of size.
	MaxBatchAge time.Duration
	// ReceiveTimeout bounds each individual queue receive, so the drain
	// loop can notice MaxBatchAge elapsing and ctx cancellation even while
	// the queue is empty.
	ReceiveTimeout time.Duration

	// MaxElapsedTime bounds the total time spent retrying one batch
	// before giving up and dropping it. Zero means retry forever.
	MaxElapsedTime time.Duration

	// MaxPublishRate caps how many batches per second this sidecar will
	// send to the collector, smoothing bursts that the batch-age/size
	// triggers alone would let through back to back. Zero means
	// unlimited.
	MaxPublishRate rate.Limit
}

// DefaultConfig matches spec §4.8's defaults.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:   100,
		MaxBatchAge:    1 * time.Second,
		ReceiveTimeout: 200 * time.Millisecond,
		MaxElapsedTime: 5 * time.Minute,
	}
}

// Publisher drains one mqueue.Queue and ships batches to CollectorURL.
type Publisher struct {
	cfg     Config
	queue   mqueue.Queue
	client  *http.Client
	limiter *rate.Limiter
}

// New opens cfg.Queue and returns a Publisher ready to Run.
func New(cfg Config) (*Publisher, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultConfig().MaxBatchSize
	}
	if cfg.MaxBatchAge <= 0 {
		cfg.MaxBatchAge = DefaultConfig().MaxBatchAge
	}
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = DefaultConfig().ReceiveTimeout
	}
	q, err := mqueue.Open(cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("publisher: opening queue: %w", err)
	}
	var limiter *rate.Limiter
	if cfg.MaxPublishRate > 0 {
		limiter = rate.NewLimiter(cfg.MaxPublishRate, 1)
	}
	return &Publisher{
		cfg:     cfg,
		queue:   q,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
	}, nil
}

// Run drains the queue until ctx is canceled, flushing whatever batch is
// in flight before returning. It is meant to run for the process lifetime
// of the sidecar binary (spec §4.8 "Sidecar process").
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
			// no message this tick; fall through to the age check below
		case err != nil:
			log.Error("publisher: receive failed: %v", err)
		default:
			batch = append(batch, data)
		}

		if len(batch) >= p.cfg.MaxBatchSize || (len(batch) > 0 && time.Now().After(deadline)) {
			flush()
		}
	}
}

// publishWithRetry POSTs batch, retrying on 5xx or network errors with
// exponential backoff (spec §4.8 "Retry policy"). A 4xx other than 422 is
// fatal and the batch is logged and dropped without retrying; a 422
// (unprocessable entity, meaning the collector rejected the payload shape)
// is a soft drop, also logged without retrying.
func (p *Publisher) publishWithRetry(ctx context.Context, batch [][]byte) {
	batchID := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.cfg.MaxElapsedTime

	op := func() error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		return p.publish(batchID, batch)
	}

	err := backoff.Retry(op, backoff.WithContext(bo, ctx))
	if err != nil {
		if _, fatal := err.(*fatalError); fatal {
			log.Error("publisher: dropping batch %s of %d after fatal error: %v", batchID, len(batch), err)
			return
		}
		log.Error("publisher: dropping batch %s of %d after exhausting retries: %v", batchID, len(batch), err)
	}
}

// fatalError wraps an error that backoff.Retry must not retry: a 4xx
// response (other than 422) or a 422 soft-drop.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func (p *Publisher) publish(batchID string, batch [][]byte) error {
	body := encodeBatch(batch)
	req, err := http.NewRequest(http.MethodPost, p.cfg.CollectorURL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Batch-Id", batchID)

	resp, err := p.client.Do(req)
	if err != nil {
		return err // network error: retryable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == 422:
		return backoff.Permanent(&fatalError{fmt.Errorf("collector rejected payload: 422")})
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return backoff.Permanent(&fatalError{fmt.Errorf("collector returned fatal status %d", resp.StatusCode)})
	default:
		return fmt.Errorf("collector returned status %d", resp.StatusCode) // 5xx: retryable
	}
}

// encodeBatch frames individually-serialized span records as a JSON array
// without re-parsing each one.
func encodeBatch(batch [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, msg := range batch {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(msg)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
