// Package recordobserver is the tracing observer (C5): it attaches to a
// sampled server span, serializes each finished span to a Zipkin v1 record,
// and hands it to a recorder.Recorder. It is the bridge between the
// observer architecture (C2) and the recording/publishing pipeline (C6-C8),
// grounded on the teacher's tracer-to-writer handoff in the ddtrace
// package, generalized from Datadog's native format to this spec's Zipkin
// wire format.
package recordobserver

import (
	"github.com/reddit/baseplate.go/internal/log"
	"github.com/reddit/baseplate.go/recorder"
	"github.com/reddit/baseplate.go/tracing"
	"github.com/reddit/baseplate.go/tracing/zipkin"
)

var (
	_ tracing.StartObserver  = (*Observer)(nil)
	_ tracing.FinishObserver = (*Observer)(nil)
	_ tracing.ChildObserver  = (*Observer)(nil)
)

// Observer serializes its span to a zipkin.Record on finish and forwards it
// to rec. A fresh Observer is attached to every child span so the whole
// sampled subtree records independently (spec §4.5 "Per-span observer
// attachment").
type Observer struct {
	rec         *recorder.Recorder
	serviceName string
	ipv4        string
}

// New builds an Observer that records onto rec, tagging every record with
// serviceName and ipv4 as the reporting endpoint.
func New(rec *recorder.Recorder, serviceName, ipv4 string) *Observer {
	return &Observer{rec: rec, serviceName: serviceName, ipv4: ipv4}
}

// OnStart implements tracing.StartObserver. It exists so dispatch order is
// observable in tests; the recorder itself only needs OnFinish.
func (o *Observer) OnStart(span *tracing.Span) {}

// OnFinish implements tracing.FinishObserver: build the Zipkin record and
// enqueue it. Marshal errors are logged via internal/log and the record is
// dropped; they are not returned, since span Finish cannot fail.
func (o *Observer) OnFinish(span *tracing.Span, err error) {
	rec := zipkin.FromSpan(span, o.serviceName, o.ipv4)
	data, marshalErr := zipkin.Marshal(rec)
	if marshalErr != nil {
		log.Error("recordobserver: dropping span %d, marshal failed: %v", span.SpanID(), marshalErr)
		return
	}
	o.rec.Record(data)
}

// OnChildSpanCreated implements tracing.ChildObserver, attaching a fresh
// Observer sharing this one's recorder and endpoint to every child so the
// whole sampled subtree is recorded.
func (o *Observer) OnChildSpanCreated(parent, child *tracing.Span) tracing.Observer {
	return &Observer{rec: o.rec, serviceName: o.serviceName, ipv4: o.ipv4}
}
