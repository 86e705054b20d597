package mqueue_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/mqueue"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	cfg := mqueue.Config{Name: "test-roundtrip", MaxMessages: 4, MaxMessageSize: 64}
	q, err := mqueue.Open(cfg)
	assert.NoError(t, err)
	defer q.Unlink()

	assert.NoError(t, q.Send([]byte("hello"), time.Second))
	data, err := q.Receive(time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReceiveTimesOutWhenEmpty(t *testing.T) {
	cfg := mqueue.Config{Name: "test-empty", MaxMessages: 4, MaxMessageSize: 64}
	q, err := mqueue.Open(cfg)
	assert.NoError(t, err)
	defer q.Unlink()

	_, err = q.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, mqueue.ErrTimedOut)
}

func TestOpenRejectsInvalidParameters(t *testing.T) {
	_, err := mqueue.Open(mqueue.Config{})
	assert.ErrorIs(t, err, mqueue.ErrInvalidParameters)
}

func TestSendRejectsOversizedMessage(t *testing.T) {
	cfg := mqueue.Config{Name: "test-oversized", MaxMessages: 4, MaxMessageSize: 4}
	q, err := mqueue.Open(cfg)
	assert.NoError(t, err)
	defer q.Unlink()

	err = q.Send([]byte("too-long"), time.Second)
	assert.ErrorIs(t, err, mqueue.ErrMessageTooLarge)
}
