// Package baseplate is the process-wide registry (C4): it owns the
// sampler, trust handler, and service identity, and runs the request-start
// and request-end protocol that turns an inbound carrier into a fully
// instrumented, request-scoped context.Context. Registering root-span
// observer factories here is how cross-cutting instrumentation (tracing,
// metrics, edge-context propagation) attaches uniformly to every request
// without each handler wiring it by hand — mirroring the teacher's global
// tracer registration, generalized to an explicit, non-global *Baseplate
// instance per spec §4.4's "no package-level mutable state" design note.
package baseplate

import (
	"context"

	"github.com/reddit/baseplate.go/requestcontext"
	"github.com/reddit/baseplate.go/tracing"
)

// ObserverFactory builds a fresh tracing.Observer for a new server span. It
// is called once per request, not shared across requests, so stateful
// observers (e.g. a per-request timer) are safe.
type ObserverFactory func(ctx context.Context, span *tracing.Span) tracing.Observer

// AttributeFactory installs request-scoped attributes onto ctx before the
// handler runs, using whatever the carrier or extracted context supplied.
type AttributeFactory func(ctx context.Context, ec tracing.ExtractedContext) context.Context

// Baseplate holds the process-wide instrumentation configuration and runs
// the request lifecycle protocol against it. The zero value is not usable;
// construct with New.
type Baseplate struct {
	serviceName string
	ipv4        string
	sampler     tracing.Sampler
	trust       tracing.TrustHandler

	observerFactories  []ObserverFactory
	attributeFactories []AttributeFactory
}

// Config supplies New's fixed, process-wide settings.
type Config struct {
	ServiceName string
	IPv4        string
	SampleRate  float64
	Trust       tracing.TrustHandler
}

// New builds a Baseplate registry. Trust defaults to
// tracing.AlwaysTrustHeaders if cfg.Trust is nil.
func New(cfg Config) *Baseplate {
	trust := cfg.Trust
	if trust == nil {
		trust = tracing.AlwaysTrustHeaders{}
	}
	return &Baseplate{
		serviceName: cfg.ServiceName,
		ipv4:        cfg.IPv4,
		sampler:     tracing.Sampler{SampleRate: cfg.SampleRate},
		trust:       trust,
	}
}

// RegisterObserverFactory adds a factory invoked for every new server span.
// Order of registration is the order observers are attached, which is the
// order tracing.Observer dispatches OnStart/OnSetTag/OnLog/OnChildCreated
// in, and the reverse order OnFinish dispatches in (spec §4.2, §4.4).
func (b *Baseplate) RegisterObserverFactory(f ObserverFactory) {
	b.observerFactories = append(b.observerFactories, f)
}

// RegisterAttributeFactory adds a factory invoked once per request, after
// the span is attached but before the handler runs.
func (b *Baseplate) RegisterAttributeFactory(f AttributeFactory) {
	b.attributeFactories = append(b.attributeFactories, f)
}

// StartRequest implements spec §4.4's request-start protocol: extract the
// inbound trace context from carrier, decide sampling if the inbound
// context left it undetermined, build and start the server span, attach
// every registered observer, run every registered attribute factory, and
// return a context.Context carrying all of it plus the original edge bytes.
// The returned span must be finished by calling EndRequest exactly once.
func (b *Baseplate) StartRequest(ctx context.Context, carrier tracing.Carrier, name string) (context.Context, *tracing.Span) {
	ec := tracing.Extract(carrier, b.trust)

	sampled := b.sampler.Decide(ec.Sampled, ec.Flags)

	span := tracing.NewSpan(ec.TraceID, ec.SpanID, ec.ParentID, ec.HasParentID, name, tracing.KindServer, "")
	span.SetSampled(sampled)

	for _, f := range b.observerFactories {
		span.AddObserver(f(ctx, span))
	}
	span.Start()

	ctx = requestcontext.WithSpan(ctx, span)
	ctx = requestcontext.WithAttributes(ctx)
	if ec.HasEdge {
		ctx = requestcontext.WithEdgeContext(ctx, ec.EdgeContext)
	}
	for _, f := range b.attributeFactories {
		ctx = f(ctx, ec)
	}
	return ctx, span
}

// EndRequest implements spec §4.4's request-end protocol: finish the
// request's active span, tagging it with err if the handler failed. It is
// a silent no-op if ctx carries no active span.
func (b *Baseplate) EndRequest(ctx context.Context, err error) {
	span, ok := requestcontext.Span(ctx)
	if !ok {
		return
	}
	span.Finish(err)
}

// StartLocalSpan creates and starts a local (in-process) child of the
// request's active span, attaching every observer that its parent's
// OnChildSpanCreated chain produced. It returns a context derived from ctx
// with the child installed as the active span, and the child span itself; the
// caller must call child.Finish when the sub-operation completes.
func (b *Baseplate) StartLocalSpan(ctx context.Context, name, componentName string) (context.Context, *tracing.Span) {
	parent, ok := requestcontext.Span(ctx)
	if !ok {
		// No request in flight; behave as if this were its own root so
		// callers outside of a request (e.g. background jobs) still get a
		// usable span instead of a nil pointer.
		span := tracing.NewSpan(tracing.NewTraceID(), tracing.NewSpanID(), 0, false, name, tracing.KindLocal, componentName)
		span.SetSampled(false)
		span.Start()
		return requestcontext.WithSpan(ctx, span), span
	}
	child := parent.MakeChild(name, true, componentName)
	child.Start()
	return requestcontext.WithSpan(ctx, child), child
}

// ServiceName returns the process's configured service name, used by
// observers and contrib wrappers that need it for endpoint tagging.
func (b *Baseplate) ServiceName() string { return b.serviceName }

// IPv4 returns the process's configured reporting address.
func (b *Baseplate) IPv4() string { return b.ipv4 }
