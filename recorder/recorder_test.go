package recorder_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/recorder"
)

type fakeSink struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (f *fakeSink) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestRecorderDeliversToSink(t *testing.T) {
	sink := &fakeSink{}
	rec := recorder.New(sink, recorder.Config{QueueSize: 10, Workers: 1})

	rec.Record([]byte("one"))
	rec.Record([]byte("two"))
	assert.NoError(t, rec.Close())

	assert.ElementsMatch(t, [][]byte{[]byte("one"), []byte("two")}, sink.Sent())
	assert.True(t, sink.closed)
}

func TestRecorderDropsOnFullQueue(t *testing.T) {
	blocked := make(chan struct{})
	sink := &blockingSink{release: blocked}
	rec := recorder.New(sink, recorder.Config{QueueSize: 1, Workers: 1})

	// First record is picked up by the worker and blocks on Send; fill the
	// one-slot queue, then overflow it.
	rec.Record([]byte("a"))
	time.Sleep(10 * time.Millisecond)
	rec.Record([]byte("b"))
	rec.Record([]byte("c"))

	assert.Equal(t, uint64(1), rec.Dropped())
	close(blocked)
	assert.NoError(t, rec.Close())
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Send(data []byte) error {
	<-s.release
	return nil
}

func (s *blockingSink) Close() error { return nil }

func TestNullAndLoggingSinksNeverError(t *testing.T) {
	assert.NoError(t, recorder.NullSink{}.Send([]byte("x")))
	assert.NoError(t, recorder.NullSink{}.Close())
	assert.NoError(t, recorder.LoggingSink{}.Send([]byte("x")))
	assert.NoError(t, recorder.LoggingSink{}.Close())
}
