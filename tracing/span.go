package tracing

import (
	"fmt"
	"sync"
	"time"

	"github.com/reddit/baseplate.go/internal/log"
)

// Kind distinguishes the three span variants sharing one shape (spec §3.2).
type Kind int

const (
	// KindServer is the root of the in-process span tree, representing an
	// inbound request.
	KindServer Kind = iota
	// KindLocal is an in-process sub-operation.
	KindLocal
	// KindClient represents an outbound call from this service.
	KindClient
)

// state is a span's position in its lifecycle.
type state int

const (
	stateUnstarted state = iota
	stateRunning
	stateFinished
)

// LogEntry is one entry in a span's ordered log.
type LogEntry struct {
	TimestampUs int64
	Name        string
	Payload     interface{}
}

// Span represents one unit of timed work: a server span (the root of a
// request), a local span (an in-process sub-operation), or a client span
// (an outbound call). See spec §3.2.
type Span struct {
	mu sync.Mutex

	traceID  TraceID
	spanID   SpanID
	parentID SpanID
	hasParentID bool
	name     string
	kind     Kind
	componentName string

	sampled    *bool
	flags      Flags

	startUs int64
	endUs   int64

	tags map[string]interface{}
	logs []LogEntry

	observers []Observer

	state state

	openChildren int
	parent       *Span
}

// NewSpan constructs a span with explicit identity. It is used by the
// baseplate registry (C4) to build the server span from an extracted or
// freshly generated trace context, and by test harnesses that need to
// build spans outside of a full request lifecycle. sampled is nil until
// SetSampled is called; hasParentID false means this is a root span.
func NewSpan(traceID TraceID, spanID, parentID SpanID, hasParentID bool, name string, kind Kind, componentName string) *Span {
	return &Span{
		traceID:       traceID,
		spanID:        spanID,
		parentID:      parentID,
		hasParentID:   hasParentID,
		name:          name,
		kind:          kind,
		componentName: componentName,
	}
}

// TraceID returns the span's trace id.
func (s *Span) TraceID() TraceID { return s.traceID }

// SpanID returns the span's id.
func (s *Span) SpanID() SpanID { return s.spanID }

// ParentID returns the parent span's id and whether one exists. A root span
// has no parent.
func (s *Span) ParentID() (SpanID, bool) { return s.parentID, s.hasParentID }

// Name returns the span's operation name.
func (s *Span) Name() string { return s.name }

// Kind returns whether this is a server, local, or client span.
func (s *Span) Kind() Kind { return s.kind }

// ComponentName returns the component tag set on a local span, if any.
func (s *Span) ComponentName() string { return s.componentName }

// Sampled returns the trace's sampling decision and whether it has been
// made yet. It is undetermined only on a just-created root span before the
// tracer decides (spec §3.1).
func (s *Span) Sampled() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampled == nil {
		return false, false
	}
	return *s.sampled, true
}

// SetSampled fixes the sampling decision. It is a programming error to call
// this after the span has started; the tracer calls it exactly once, before
// Start, when constructing a root span (spec §4.5).
func (s *Span) SetSampled(sampled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampled = &sampled
}

// Flags returns the span's propagation flags.
func (s *Span) Flags() Flags { return s.flags }

// StartTimeUs returns the span's start time in microseconds since the Unix
// epoch. It is zero before Start is called.
func (s *Span) StartTimeUs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startUs
}

// EndTimeUs returns the span's end time in microseconds since the Unix
// epoch. It is zero before Finish is called.
func (s *Span) EndTimeUs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endUs
}

// Tag returns the current value of a tag and whether it has been set.
func (s *Span) Tag(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tags[key]
	return v, ok
}

// Tags returns a snapshot copy of every tag set on the span.
func (s *Span) Tags() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.tags))
	for k, v := range s.tags {
		out[k] = v
	}
	return out
}

// Logs returns a snapshot copy of the span's ordered log entries.
func (s *Span) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.logs))
	copy(out, s.logs)
	return out
}

// AddObserver attaches o to the span. It must be called before Start; it is
// how tracer/recorder observers (C5) and Baseplate's root-span observer
// factories (C4) hook into a freshly built span.
func (s *Span) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateUnstarted {
		log.Error("tracing: AddObserver called on a span that already started")
		return
	}
	s.observers = append(s.observers, o)
}

// Start transitions the span to running and notifies every observer's
// OnStart in registration order. It must be called exactly once.
func (s *Span) Start() {
	s.mu.Lock()
	if s.state != stateUnstarted {
		s.mu.Unlock()
		log.Error("tracing: Start called twice on span %d", s.spanID)
		return
	}
	s.state = stateRunning
	s.startUs = nowUs()
	s.mu.Unlock()

	dispatchStart(s)
}

// SetTag coerces v to a wire-safe primitive and records it, notifying every
// observer's OnSetTag. It is a no-op once the span has finished.
func (s *Span) SetTag(key string, v interface{}) {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		log.Error("tracing: SetTag(%q) called on a span that is not running", key)
		return
	}
	coerced := coerceTag(v)
	if s.tags == nil {
		s.tags = make(map[string]interface{})
	}
	s.tags[key] = coerced
	s.mu.Unlock()

	dispatchSetTag(s, key, coerced)
}

// Log appends an ordered log entry and notifies every observer's OnLog. It
// is a no-op once the span has finished.
func (s *Span) Log(name string, payload interface{}) {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		log.Error("tracing: Log(%q) called on a span that is not running", name)
		return
	}
	entry := LogEntry{TimestampUs: nowUs(), Name: name, Payload: payload}
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	dispatchLog(s, name, payload)
}

// MakeChild allocates a fresh child span inheriting this span's trace id,
// sampling decision, and flags, and notifies this span's observers'
// OnChildSpanCreated so that a sampled subtree is instrumented uniformly
// (spec §4.2, §4.5). local distinguishes a local (in-process) child from a
// client (outbound) child; componentName is recorded on local children.
func (s *Span) MakeChild(name string, local bool, componentName string) *Span {
	s.mu.Lock()
	sampled := s.sampled
	flags := s.flags
	traceID := s.traceID
	parentID := s.spanID
	s.openChildren++
	s.mu.Unlock()

	kind := KindClient
	if local {
		kind = KindLocal
	}
	child := &Span{
		traceID:       traceID,
		spanID:        NewSpanID(),
		parentID:      parentID,
		hasParentID:   true,
		name:          name,
		kind:          kind,
		componentName: componentName,
		sampled:       sampled,
		flags:         flags,
		parent:        s,
	}

	dispatchChildCreated(s, child)
	return child
}

// Finish transitions the span to finished and notifies every observer's
// OnFinish in reverse registration order. It must be called exactly once.
// If the span still has unfinished children, that is logged as an
// out-of-order release but does not prevent the span from finishing (spec
// §4.2 design notes: out-of-order release is an error, not a crash).
func (s *Span) Finish(err error) {
	s.mu.Lock()
	if s.state == stateFinished {
		s.mu.Unlock()
		log.Error("tracing: Finish called twice on span %d", s.spanID)
		return
	}
	if s.state == stateUnstarted {
		s.mu.Unlock()
		log.Error("tracing: Finish called before Start on span %d", s.spanID)
		return
	}
	if s.openChildren > 0 {
		log.Error("tracing: span %d finished with %d unfinished children (out-of-order release)", s.spanID, s.openChildren)
	}
	s.state = stateFinished
	s.endUs = nowUs()
	parent := s.parent
	s.mu.Unlock()

	if err != nil {
		s.SetTagRunning("error", true)
	}
	dispatchFinish(s, err)

	if parent != nil {
		parent.mu.Lock()
		parent.openChildren--
		parent.mu.Unlock()
	}
}

// SetTagRunning sets a tag bypassing the running-state check, used
// internally by Finish to tag "error" on a span that has already flipped
// to finished in the caller's view but before observers are notified.
func (s *Span) SetTagRunning(key string, v interface{}) {
	s.mu.Lock()
	if s.tags == nil {
		s.tags = make(map[string]interface{})
	}
	s.tags[key] = coerceTag(v)
	s.mu.Unlock()
	dispatchSetTag(s, key, v)
}

// coerceTag converts a tag value to the primitives the wire format allows:
// bool passes through, numbers become their decimal string form, anything
// else is coerced with fmt.Sprintf("%v") (spec §4.2).
func coerceTag(v interface{}) interface{} {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t)
	case float32, float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func nowUs() int64 {
	return time.Now().UTC().UnixNano() / int64(time.Microsecond)
}
