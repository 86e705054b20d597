package tracing

import (
	"net/http"
	"strconv"
	"strings"
)

// Carrier abstracts the text-keyed transport a span context is propagated
// over — HTTP headers inbound/outbound, or a message broker's per-message
// metadata (see contrib/sarama). It mirrors the opentracing TextMapCarrier
// shape used throughout the teacher's contrib packages.
type Carrier interface {
	// ForeachKey calls handler for every key/value pair the carrier holds.
	ForeachKey(handler func(key, val string) error) error
	// Set stores a key/value pair, overwriting any previous value for key.
	Set(key, val string)
}

// HTTPHeadersCarrier adapts http.Header to Carrier.
type HTTPHeadersCarrier http.Header

// ForeachKey implements Carrier.
func (c HTTPHeadersCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, vs := range c {
		for _, v := range vs {
			if err := handler(k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Set implements Carrier.
func (c HTTPHeadersCarrier) Set(key, val string) {
	http.Header(c).Set(key, val)
}

// MapCarrier adapts a plain string map to Carrier, used by in-process
// tests and by brokers whose message metadata is already a flat map.
type MapCarrier map[string]string

// ForeachKey implements Carrier.
func (c MapCarrier) ForeachKey(handler func(key, val string) error) error {
	for k, v := range c {
		if err := handler(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Set implements Carrier.
func (c MapCarrier) Set(key, val string) { c[key] = val }

// header names recognized on extraction, short and B3-prefixed forms, per
// spec §4.1. Matching is case-insensitive; ForeachKey callers are expected
// to hand back header names as received, so comparisons are normalized to
// lower case here.
var (
	traceIDHeaders  = []string{"x-trace", "trace", "x-b3-traceid", "b3-traceid"}
	parentIDHeaders = []string{"x-parent", "parent", "x-b3-parentspanid", "b3-parentspanid"}
	spanIDHeaders   = []string{"x-span", "span", "x-b3-spanid", "b3-spanid"}
	sampledHeaders  = []string{"x-sampled", "sampled", "x-b3-sampled", "b3-sampled"}
	flagsHeaders    = []string{"x-flags", "flags", "x-b3-flags", "b3-flags"}
	edgeHeaders     = []string{"x-edge-request", "edge-request"}
)

// outbound header names; the teacher's contrib carriers always write the
// short form, and this module follows suit (spec §4.1 "Outbound injection").
const (
	outboundTraceHeader  = "Trace"
	outboundParentHeader = "Parent"
	outboundSpanHeader   = "Span"
	outboundEdgeHeader   = "Edge-Request"
)

// TrustHandler decides whether inbound trace headers should be adopted.
// The default accepts everything; a service at the edge can supply a
// stricter policy so that untrusted clients cannot inject arbitrary trace
// or span identifiers (spec §4.1 "Trust handler").
type TrustHandler interface {
	TrustHeaders(carrier Carrier) bool
}

// AlwaysTrustHeaders is the default TrustHandler: it trusts every inbound
// carrier.
type AlwaysTrustHeaders struct{}

// TrustHeaders implements TrustHandler.
func (AlwaysTrustHeaders) TrustHeaders(Carrier) bool { return true }

// NeverTrustHeaders rejects every inbound carrier, forcing a new root trace
// regardless of what was sent.
type NeverTrustHeaders struct{}

// TrustHeaders implements TrustHandler.
func (NeverTrustHeaders) TrustHeaders(Carrier) bool { return false }

// ExtractedContext is the result of parsing inbound trace headers.
type ExtractedContext struct {
	TraceID      TraceID
	ParentID     SpanID
	HasParentID  bool
	SpanID       SpanID
	Sampled      *bool
	Flags        Flags
	EdgeContext  []byte
	HasEdge      bool
	Adopted      bool
}

func lowerFind(values map[string]string, names []string) (string, bool) {
	for _, n := range names {
		if v, ok := values[n]; ok {
			return v, true
		}
	}
	return "", false
}

// Extract parses an inbound carrier into an ExtractedContext per spec
// §4.1. When trust is nil, AlwaysTrustHeaders is used. If trust rejects the
// carrier, or any of {trace_id, parent_span_id, span_id} is missing or
// unparseable, a new root trace is generated instead of adopting the
// inbound one.
func Extract(carrier Carrier, trust TrustHandler) ExtractedContext {
	if trust == nil {
		trust = AlwaysTrustHeaders{}
	}

	values := make(map[string]string)
	_ = carrier.ForeachKey(func(key, val string) error {
		values[strings.ToLower(key)] = val
		return nil
	})

	edgeRaw, hasEdge := lowerFind(values, edgeHeaders)

	if !trust.TrustHeaders(carrier) {
		return newRootContext(edgeRaw, hasEdge)
	}

	traceRaw, ok1 := lowerFind(values, traceIDHeaders)
	parentRaw, ok2 := lowerFind(values, parentIDHeaders)
	spanRaw, ok3 := lowerFind(values, spanIDHeaders)
	if !ok1 || !ok2 || !ok3 {
		return newRootContext(edgeRaw, hasEdge)
	}
	traceID, ok1 := ParseID(traceRaw)
	parentID, ok2 := ParseID(parentRaw)
	spanID, ok3 := ParseID(spanRaw)
	if !ok1 || !ok2 || !ok3 {
		return newRootContext(edgeRaw, hasEdge)
	}

	ec := ExtractedContext{
		TraceID:     TraceID(traceID),
		ParentID:    SpanID(parentID),
		HasParentID: true,
		SpanID:      SpanID(spanID),
		Adopted:     true,
		EdgeContext: []byte(edgeRaw),
		HasEdge:     hasEdge,
	}
	if sampledRaw, ok := lowerFind(values, sampledHeaders); ok {
		sampled := sampledRaw == "1"
		ec.Sampled = &sampled
	}
	if flagsRaw, ok := lowerFind(values, flagsHeaders); ok {
		if v, ok := ParseID(flagsRaw); ok {
			ec.Flags = Flags(v)
		}
	}
	return ec
}

// newRootContext starts a fresh trace. Per spec P2/scenario 2, a new root
// span's trace_id equals its own span_id — one random draw serves both —
// with no parent.
func newRootContext(edgeRaw string, hasEdge bool) ExtractedContext {
	id := NewSpanID()
	return ExtractedContext{
		TraceID:     TraceID(id),
		SpanID:      id,
		EdgeContext: []byte(edgeRaw),
		HasEdge:     hasEdge,
	}
}

// Inject writes the current span's identifiers onto an outbound carrier
// per spec §4.1 "Outbound injection": Trace, Parent (0 if the span has no
// parent), Span, and the edge-context bytes forwarded verbatim. Edge
// context is omitted only when it was never set; an explicitly empty value
// is still forwarded.
func Inject(span *Span, carrier Carrier, edgeContext []byte, hasEdge bool) {
	carrier.Set(outboundTraceHeader, strconv.FormatUint(uint64(span.TraceID()), 10))
	parentID, _ := span.ParentID()
	carrier.Set(outboundParentHeader, strconv.FormatUint(uint64(parentID), 10))
	carrier.Set(outboundSpanHeader, strconv.FormatUint(uint64(span.SpanID()), 10))
	if hasEdge {
		carrier.Set(outboundEdgeHeader, string(edgeContext))
	}
}
