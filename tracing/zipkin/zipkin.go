// Package zipkin encodes a finished tracing.Span into the Zipkin v1 JSON
// wire record described in spec §3.4 and §4.5. It is the payload shape the
// span recorder (C6) enqueues and the sidecar publisher (C8) ships onward;
// this package only knows how to build and marshal that record, grounded on
// the teacher's contrib carrier/tag idiom rather than any one RPC stack.
package zipkin

import (
	"encoding/json"
	"fmt"

	"github.com/reddit/baseplate.go/tracing"
	"github.com/reddit/baseplate.go/tracing/ext"
)

// Endpoint identifies the service and host that recorded an annotation.
type Endpoint struct {
	ServiceName string `json:"service_name"`
	IPv4        string `json:"ipv4,omitempty"`
	Port        int    `json:"port,omitempty"`
}

// Annotation is a single timestamped event on a span, e.g. "sr"/"ss" for a
// server span's receive/send boundary (spec §3.4).
type Annotation struct {
	TimestampUs int64    `json:"timestamp"`
	Value       string   `json:"value"`
	Endpoint    Endpoint `json:"host"`
}

// BinaryAnnotation is a span tag rendered onto the wire; every Span.Tags
// entry becomes one of these (spec §4.5 "Tag projection").
type BinaryAnnotation struct {
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
	Endpoint Endpoint    `json:"host"`
}

// Record is the Zipkin v1 span record serialized to the recorder queue.
type Record struct {
	TraceID           string             `json:"trace_id"`
	SpanID            string             `json:"id"`
	ParentID          string             `json:"parent_id,omitempty"`
	Name              string             `json:"name"`
	Start             int64              `json:"timestamp"`
	DurationUs        int64              `json:"duration"`
	Annotations       []Annotation       `json:"annotations,omitempty"`
	BinaryAnnotations []BinaryAnnotation `json:"binary_annotations,omitempty"`
}

// annotationValue returns the "sr"/"ss"/"cs"/"cr"/"lc" boundary value for a
// span kind, per spec §3.4.
func annotationValue(kind tracing.Kind, start bool) string {
	switch kind {
	case tracing.KindServer:
		if start {
			return "sr"
		}
		return "ss"
	case tracing.KindClient:
		if start {
			return "cs"
		}
		return "cr"
	default: // KindLocal
		return "lc"
	}
}

// FromSpan builds a Record from a finished span. serviceName and ipv4
// identify the endpoint recording the annotations; they come from
// Baseplate's process-wide configuration (spec §6.4).
func FromSpan(span *tracing.Span, serviceName, ipv4 string) Record {
	endpoint := Endpoint{ServiceName: serviceName, IPv4: ipv4}

	parentID := ""
	if pid, ok := span.ParentID(); ok {
		parentID = fmt.Sprintf("%d", uint64(pid))
	}

	rec := Record{
		TraceID:    fmt.Sprintf("%d", uint64(span.TraceID())),
		SpanID:     fmt.Sprintf("%d", uint64(span.SpanID())),
		ParentID:   parentID,
		Name:       span.Name(),
		Start:      span.StartTimeUs(),
		DurationUs: span.EndTimeUs() - span.StartTimeUs(),
		Annotations: []Annotation{
			{TimestampUs: span.StartTimeUs(), Value: annotationValue(span.Kind(), true), Endpoint: endpoint},
			{TimestampUs: span.EndTimeUs(), Value: annotationValue(span.Kind(), false), Endpoint: endpoint},
		},
	}

	if span.Kind() == tracing.KindLocal && span.ComponentName() != "" {
		rec.BinaryAnnotations = append(rec.BinaryAnnotations, BinaryAnnotation{
			Key: ext.Component, Value: span.ComponentName(), Endpoint: endpoint,
		})
	}
	for k, v := range span.Tags() {
		rec.BinaryAnnotations = append(rec.BinaryAnnotations, BinaryAnnotation{
			Key: k, Value: v, Endpoint: endpoint,
		})
	}
	return rec
}

// Marshal renders a Record as the JSON document the recorder queue and the
// sidecar publisher move as opaque bytes.
func Marshal(rec Record) ([]byte, error) {
	return json.Marshal(rec)
}
