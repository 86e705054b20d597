package recorder

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/mqueue"
)

// NullSink discards every record. Used when tracing is configured but no
// collector endpoint is set (spec §4.6 "Null recorder").
type NullSink struct{}

// Send implements Sink.
func (NullSink) Send([]byte) error { return nil }

// Close implements Sink.
func (NullSink) Close() error { return nil }

// LoggingSink writes every record through internal/log, for local
// development when no collector is reachable (spec §4.6 "Logging
// recorder").
type LoggingSink struct{}

// Send implements Sink.
func (LoggingSink) Send(data []byte) error {
	log.Info("span record: %s", string(data))
	return nil
}

// Close implements Sink.
func (LoggingSink) Close() error { return nil }

// RemoteSink posts each record directly to a Zipkin-compatible collector
// over HTTP. It is the in-process alternative to the sidecar queue (C7),
// used by services that do not run the publisher sidecar.
type RemoteSink struct {
	URL    string
	Client *http.Client
}

// NewRemoteSink builds a RemoteSink with a bounded-timeout client.
func NewRemoteSink(url string) *RemoteSink {
	return &RemoteSink{
		URL:    url,
		Client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Send implements Sink.
func (s *RemoteSink) Send(data []byte) error {
	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("recorder: remote sink got status %d", resp.StatusCode)
	}
	return nil
}

// Close implements Sink.
func (s *RemoteSink) Close() error {
	s.Client.CloseIdleConnections()
	return nil
}

// SidecarSink writes each record onto the POSIX message queue (C7) that the
// publisher sidecar process drains, so that span serialization and
// publishing happen off the request path entirely (spec §4.7 "Put").
type SidecarSink struct {
	queue   mqueue.Queue
	timeout time.Duration
}

// NewSidecarSink opens (creating if needed) the named queue and returns a
// Sink backed by it.
func NewSidecarSink(cfg mqueue.Config, sendTimeout time.Duration) (*SidecarSink, error) {
	q, err := mqueue.Open(cfg)
	if err != nil {
		return nil, err
	}
	if sendTimeout <= 0 {
		sendTimeout = 100 * time.Millisecond
	}
	return &SidecarSink{queue: q, timeout: sendTimeout}, nil
}

// Send implements Sink. A full queue (ErrTimedOut) is returned to the
// caller; a Recorder's workers log it and go on. It is not included in
// Recorder.Dropped, which counts only records refused by the in-process
// channel.
func (s *SidecarSink) Send(data []byte) error {
	return s.queue.Send(data, s.timeout)
}

// Close implements Sink. It releases this process's handle without
// unlinking the queue; only the publisher sidecar unlinks.
func (s *SidecarSink) Close() error {
	return s.queue.Close()
}
