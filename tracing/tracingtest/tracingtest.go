// Package tracingtest is a test harness for code that dispatches to
// tracing.Observer, grounded on the teacher's ddtrace/mocktracer package:
// a recording fake that lets tests assert on dispatch order (spec P3)
// without a real collector or recorder running.
package tracingtest

import (
	"sync"

	"github.com/reddit/baseplate.go/tracing"
)

// Event is one observer callback captured by a Recorder.
type Event struct {
	Kind    string // "start", "set_tag", "log", "finish", "child_created"
	SpanID  tracing.SpanID
	Key     string
	Value   interface{}
	Err     error
}

// Recorder implements every tracing.Observer slot and appends an Event for
// each callback it receives, in the order received, so tests can assert on
// per-span and cross-observer ordering.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var (
	_ tracing.StartObserver  = (*Recorder)(nil)
	_ tracing.TagObserver    = (*Recorder)(nil)
	_ tracing.LogObserver    = (*Recorder)(nil)
	_ tracing.FinishObserver = (*Recorder)(nil)
	_ tracing.ChildObserver  = (*Recorder)(nil)
)

// OnStart implements tracing.StartObserver.
func (r *Recorder) OnStart(span *tracing.Span) {
	r.append(Event{Kind: "start", SpanID: span.SpanID()})
}

// OnSetTag implements tracing.TagObserver.
func (r *Recorder) OnSetTag(span *tracing.Span, key string, value interface{}) {
	r.append(Event{Kind: "set_tag", SpanID: span.SpanID(), Key: key, Value: value})
}

// OnLog implements tracing.LogObserver.
func (r *Recorder) OnLog(span *tracing.Span, name string, payload interface{}) {
	r.append(Event{Kind: "log", SpanID: span.SpanID(), Key: name, Value: payload})
}

// OnFinish implements tracing.FinishObserver.
func (r *Recorder) OnFinish(span *tracing.Span, err error) {
	r.append(Event{Kind: "finish", SpanID: span.SpanID(), Err: err})
}

// OnChildSpanCreated implements tracing.ChildObserver. It attaches a fresh
// Recorder to the child so whole-subtree dispatch can be asserted on, and
// records the event on the parent's log.
func (r *Recorder) OnChildSpanCreated(parent, child *tracing.Span) tracing.Observer {
	r.append(Event{Kind: "child_created", SpanID: parent.SpanID(), Value: child.SpanID()})
	return &Recorder{}
}

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot copy of every callback received so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// NewServerSpan builds an unstarted server span with a fresh random trace,
// for use as a test root. Callers attach observers and call Start/Finish
// themselves to exercise the state machine under test.
func NewServerSpan(name string) *tracing.Span {
	return tracing.NewSpan(tracing.NewTraceID(), tracing.NewSpanID(), 0, false, name, tracing.KindServer, "")
}
