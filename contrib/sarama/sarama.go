// Package sarama wraps github.com/IBM/sarama producers so that trace
// context propagates across the broker via message headers and every
// publish is recorded as a span. On the consumer side it only parses the
// trace context out of a consumed message's headers (ExtractFromMessage);
// it opens no span for consumption. It is grounded on the
// teacher's contrib/Shopify/sarama package (the module has since moved to
// github.com/IBM/sarama upstream; the wrapper shape is unchanged).
package sarama

import (
	"context"

	"github.com/IBM/sarama"

	"github.com/reddit/baseplate.go/baseplate"
	"github.com/reddit/baseplate.go/tracing"
	"github.com/reddit/baseplate.go/tracing/ext"
)

// headerCarrier adapts a sarama.ProducerMessage's headers to
// tracing.Carrier for Inject, and a []sarama.RecordHeader slice for
// Extract.
type headerCarrier struct {
	headers *[]sarama.RecordHeader
}

// ForeachKey implements tracing.Carrier.
func (c headerCarrier) ForeachKey(handler func(key, val string) error) error {
	for _, h := range *c.headers {
		if err := handler(string(h.Key), string(h.Value)); err != nil {
			return err
		}
	}
	return nil
}

// Set implements tracing.Carrier.
func (c headerCarrier) Set(key, val string) {
	*c.headers = append(*c.headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(val)})
}

// WrapSyncProducer returns a SyncProducer whose SendMessage starts a client
// span named "kafka.produce" around the call and injects the active span's
// trace context into the message's headers before sending (spec §4.8
// "contrib/sarama").
func WrapSyncProducer(bp *baseplate.Baseplate, producer sarama.SyncProducer) *TracedProducer {
	return &TracedProducer{producer: producer, bp: bp}
}

// TracedProducer wraps a sarama.SyncProducer with span instrumentation.
type TracedProducer struct {
	producer sarama.SyncProducer
	bp       *baseplate.Baseplate
}

// SendMessage starts a client span, injects trace headers onto msg, sends
// it, and finishes the span with the send error if any.
func (p *TracedProducer) SendMessage(ctx context.Context, msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	_, span := p.bp.StartLocalSpan(ctx, "kafka.produce", "kafka")
	span.SetTag(ext.Component, "kafka")
	span.SetTag(ext.SpanKind, ext.SpanKindProducer)
	span.SetTag(ext.MessagingSystem, ext.MessagingSystemKafka)
	span.SetTag("kafka.topic", msg.Topic)
	tracing.Inject(span, headerCarrier{headers: &msg.Headers}, nil, false)

	partition, offset, err = p.producer.SendMessage(msg)
	if err == nil {
		span.SetTag(ext.MessagingKafkaPartition, partition)
	}
	span.Finish(err)
	return partition, offset, err
}

// Close closes the underlying producer.
func (p *TracedProducer) Close() error { return p.producer.Close() }

// ExtractFromMessage parses the trace context carried in a consumed
// message's headers, for a consumer to adopt as the parent of the span
// covering its processing of that message.
func ExtractFromMessage(msg *sarama.ConsumerMessage, trust tracing.TrustHandler) tracing.ExtractedContext {
	headers := make([]sarama.RecordHeader, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = *h
	}
	return tracing.Extract(headerCarrier{headers: &headers}, trust)
}
