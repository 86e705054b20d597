package eventpublisher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/eventpublisher"
	"github.com/reddit/baseplate.go/mqueue"
)

func TestPublisherUsesDefaultEncoderAndCustomContentType(t *testing.T) {
	var body []byte
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		body = buf
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := mqueue.Config{Name: "test-eventpub-encode", MaxMessages: 10, MaxMessageSize: 256}
	q, err := mqueue.Open(cfg)
	assert.NoError(t, err)
	assert.NoError(t, q.Send([]byte("event-one"), time.Second))
	assert.NoError(t, q.Send([]byte("event-two"), time.Second))
	assert.NoError(t, q.Close())

	pub, err := eventpublisher.New(eventpublisher.Config{
		Queue:          cfg,
		CollectorURL:   srv.URL,
		ContentType:    "application/x-ndjson",
		MaxBatchSize:   2,
		MaxBatchAge:    time.Hour,
		ReceiveTimeout: 50 * time.Millisecond,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, "event-one\nevent-two\n", string(body))
	assert.Equal(t, "application/x-ndjson", contentType)
}

func TestPublisherDropsOnFatal4xxWithoutRetrying(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := mqueue.Config{Name: "test-eventpub-4xx", MaxMessages: 10, MaxMessageSize: 256}
	q, err := mqueue.Open(cfg)
	assert.NoError(t, err)
	assert.NoError(t, q.Send([]byte("event"), time.Second))
	assert.NoError(t, q.Close())

	pub, err := eventpublisher.New(eventpublisher.Config{
		Queue:          cfg,
		CollectorURL:   srv.URL,
		MaxBatchSize:   1,
		MaxBatchAge:    10 * time.Millisecond,
		ReceiveTimeout: 10 * time.Millisecond,
		MaxElapsedTime: time.Second,
	})
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pub.Run(ctx)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
