package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/config"
)

func TestDecodeTracingWithPercentSampleRate(t *testing.T) {
	raw := map[string]interface{}{
		"service_name": "svc",
		"sample_rate":  "10%",
		"queue_name":   "/baseplate-spans",
	}
	var tr config.Tracing
	assert.NoError(t, config.Decode(raw, &tr))
	assert.Equal(t, "svc", tr.ServiceName)
	assert.InDelta(t, 0.10, tr.SampleRate, 0.0001)
	assert.Equal(t, "/baseplate-spans", tr.QueueName)
}

func TestDecodeTracingWithFloatSampleRate(t *testing.T) {
	raw := map[string]interface{}{"sample_rate": 0.25}
	var tr config.Tracing
	assert.NoError(t, config.Decode(raw, &tr))
	assert.Equal(t, 0.25, tr.SampleRate)
}

func TestDecodePublisherDuration(t *testing.T) {
	raw := map[string]interface{}{
		"collector_url":   "http://localhost:9411",
		"max_batch_size":  "50",
		"max_batch_age":   "2s",
		"queue_max_messages": 1000,
	}
	var pub config.Publisher
	assert.NoError(t, config.Decode(raw, &pub))
	assert.Equal(t, 50, pub.MaxBatchSize)
	assert.Equal(t, 2*time.Second, pub.MaxBatchAge)
	assert.Equal(t, 1000, pub.MaxMessages)
}
