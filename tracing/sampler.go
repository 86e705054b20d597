package tracing

import "math/rand"

// Sampler makes the once-per-trace sampling decision described in spec
// §4.5. It is evaluated exactly once, at server-span creation time, by
// Baseplate's request-start protocol (C4); the decision then propagates
// unchanged to every descendant span via Span.MakeChild.
type Sampler struct {
	// SampleRate is the fraction, in [0,1], of otherwise-undetermined
	// requests that are sampled. Defaults to 0 (nothing sampled) on the
	// zero value; baseplate/config applies the spec's 0.1 default.
	SampleRate float64

	// Rand is used to draw the sampling coin flip. Defaults to the
	// package-level math/rand source when nil, overridable in tests for
	// determinism.
	Rand *rand.Rand
}

// Decide returns the sampling decision for a new root span given its
// flags and whatever the inbound headers supplied. A debug flag always
// forces sampling; an inbound decision is always honored unchanged;
// otherwise the sampler draws against SampleRate (spec P5).
func (s *Sampler) Decide(inbound *bool, flags Flags) bool {
	if flags.Debug() {
		return true
	}
	if inbound != nil {
		return *inbound
	}
	return s.float64() < s.SampleRate
}

func (s *Sampler) float64() float64 {
	if s.Rand != nil {
		return s.Rand.Float64()
	}
	return rand.Float64()
}
