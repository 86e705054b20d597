// Package requestcontext implements the request-scoped context (C3): a
// thin layer over context.Context that reserves one slot for the request's
// active span, a per-request attribute map, and the raw edge-context bytes
// forwarded from the edge, plus a stack-scoped override mechanism
// (ShadowAttribute) for attributes that must be temporarily replaced within
// a nested call and restored afterward. The key-type-per-value idiom
// mirrors how the teacher threads span/baggage state through
// context.Context rather than a bespoke request object.
package requestcontext

import (
	"context"
	"sync"

	"github.com/reddit/baseplate.go/tracing"
)

type spanKeyType struct{}
type attrsKeyType struct{}
type edgeKeyType struct{}

var (
	spanKey  spanKeyType
	attrsKey attrsKeyType
	edgeKey  edgeKeyType
)

// attrStore holds the request's attribute map plus, per key, a stack of
// shadowed (overridden) values so a nested call can temporarily replace an
// attribute and have it restored on return (spec §4.3 "shadow_context_attr").
type attrStore struct {
	mu      sync.Mutex
	values  map[string]interface{}
	shadows map[string][]interface{}
}

func newAttrStore() *attrStore {
	return &attrStore{values: make(map[string]interface{})}
}

// WithSpan returns a context with span installed as the active span. Only
// Baseplate's request-start protocol (C4) and MakeChild-based local-span
// helpers call this; application code retrieves the span with Span, it
// does not install one.
func WithSpan(ctx context.Context, span *tracing.Span) context.Context {
	return context.WithValue(ctx, spanKey, span)
}

// Span returns the request's active span and whether one has been
// installed. Its absence means the call is happening outside of any
// request (e.g. at process startup).
func Span(ctx context.Context) (*tracing.Span, bool) {
	span, ok := ctx.Value(spanKey).(*tracing.Span)
	return span, ok
}

// WithEdgeContext attaches the raw edge-context bytes forwarded from the
// upstream edge service, propagated verbatim end to end (spec §4.1, §4.3).
func WithEdgeContext(ctx context.Context, raw []byte) context.Context {
	return context.WithValue(ctx, edgeKey, raw)
}

// EdgeContext returns the raw edge-context bytes and whether any were set.
func EdgeContext(ctx context.Context) ([]byte, bool) {
	raw, ok := ctx.Value(edgeKey).([]byte)
	return raw, ok
}

// WithAttributes installs a fresh, empty attribute store on ctx. Baseplate's
// request-start protocol calls this once per request; nested calls share
// the same store via context propagation.
func WithAttributes(ctx context.Context) context.Context {
	return context.WithValue(ctx, attrsKey, newAttrStore())
}

func store(ctx context.Context) *attrStore {
	s, ok := ctx.Value(attrsKey).(*attrStore)
	if !ok {
		// No request-scoped store was installed; behave as an isolated,
		// throwaway store rather than panicking, so attribute helpers are
		// safe to call from code under test without full request setup.
		return newAttrStore()
	}
	return s
}

// SetAttribute sets a per-request attribute, visible to every later reader
// of this same context tree.
func SetAttribute(ctx context.Context, key string, value interface{}) {
	s := store(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Attribute returns a per-request attribute and whether it has been set.
func Attribute(ctx context.Context, key string) (interface{}, bool) {
	s := store(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// ShadowAttribute temporarily overrides key's value for the duration of a
// nested call, returning a restore function that must be deferred to pop
// the override back off once that call returns (spec §4.3
// "shadow_context_attr": stack-scoped, not request-scoped). Concurrent
// shadowing of the same key from sibling goroutines nests in call order,
// not necessarily push/pop order; callers shadowing a key shared across
// goroutines are responsible for their own synchronization.
func ShadowAttribute(ctx context.Context, key string, value interface{}) (restore func()) {
	s := store(ctx)
	s.mu.Lock()
	prev, hadPrev := s.values[key]
	if s.shadows == nil {
		s.shadows = make(map[string][]interface{})
	}
	if hadPrev {
		s.shadows[key] = append(s.shadows[key], prev)
	}
	s.values[key] = value
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		stack := s.shadows[key]
		if len(stack) == 0 {
			delete(s.values, key)
			return
		}
		s.values[key] = stack[len(stack)-1]
		s.shadows[key] = stack[:len(stack)-1]
	}
}
