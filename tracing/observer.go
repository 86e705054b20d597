package tracing

import "github.com/reddit/baseplate.go/internal/log"

// Observer is attached to a span to receive lifecycle callbacks. It carries
// no required methods: a concrete observer implements whichever subset of
// StartObserver, TagObserver, LogObserver, FinishObserver, and
// ChildObserver it needs, and dispatch silently skips the slots it does not
// implement. This mirrors the teacher's polymorphic ddtrace.Span wiring,
// adapted to Go's interface-assertion idiom instead of a class hierarchy.
type Observer interface{}

// StartObserver is notified once, when its span starts.
type StartObserver interface {
	OnStart(span *Span)
}

// TagObserver is notified on every SetTag call while the span is running.
type TagObserver interface {
	OnSetTag(span *Span, key string, value interface{})
}

// LogObserver is notified on every Log call while the span is running.
type LogObserver interface {
	OnLog(span *Span, name string, payload interface{})
}

// FinishObserver is notified once, when its span finishes. err is the
// in-flight error, if any, that the span is being finished with.
type FinishObserver interface {
	OnFinish(span *Span, err error)
}

// ChildObserver is notified whenever its span creates a child. It may
// return a fresh Observer to attach to the child; returning nil attaches
// nothing. This is how a sampled trace's observers propagate to an entire
// subtree from a single attachment at the root (spec §4.5).
type ChildObserver interface {
	OnChildSpanCreated(parent, child *Span) Observer
}

// dispatchStart invokes OnStart on every observer in registration order.
// A panicking observer is recovered, logged, and does not stop the rest
// from being notified (spec §4.2, §7 "Observer callback error").
func dispatchStart(span *Span) {
	for _, o := range span.observers {
		callObserver(func() {
			if so, ok := o.(StartObserver); ok {
				so.OnStart(span)
			}
		})
	}
}

func dispatchSetTag(span *Span, key string, value interface{}) {
	for _, o := range span.observers {
		callObserver(func() {
			if to, ok := o.(TagObserver); ok {
				to.OnSetTag(span, key, value)
			}
		})
	}
}

func dispatchLog(span *Span, name string, payload interface{}) {
	for _, o := range span.observers {
		callObserver(func() {
			if lo, ok := o.(LogObserver); ok {
				lo.OnLog(span, name, payload)
			}
		})
	}
}

// dispatchFinish invokes OnFinish in reverse registration order so that
// inner observers (e.g. a component timer) are notified, and can flush,
// before outer ones (e.g. a metrics batch) tear down.
func dispatchFinish(span *Span, err error) {
	for i := len(span.observers) - 1; i >= 0; i-- {
		o := span.observers[i]
		callObserver(func() {
			if fo, ok := o.(FinishObserver); ok {
				fo.OnFinish(span, err)
			}
		})
	}
}

// dispatchChildCreated invokes OnChildSpanCreated on every observer of the
// parent and attaches whatever it returns to the child.
func dispatchChildCreated(parent, child *Span) {
	for _, o := range parent.observers {
		var next Observer
		callObserver(func() {
			co, ok := o.(ChildObserver)
			if !ok {
				return
			}
			next = co.OnChildSpanCreated(parent, child)
		})
		if next != nil {
			child.observers = append(child.observers, next)
		}
	}
}

func callObserver(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tracing: observer callback panicked: %v", r)
		}
	}()
	f()
}
