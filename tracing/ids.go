package tracing

import (
	"crypto/rand"
	"encoding/binary"
	"strconv"
	"sync/atomic"
)

// TraceID identifies every span that belongs to one trace. It is generated
// once, at the root of the trace, and propagated unchanged to every
// descendant, in-process or over the wire.
type TraceID uint64

// SpanID uniquely identifies one span within its trace.
type SpanID uint64

// Flags is a bitfield carried alongside a trace. Bit 0 forces sampling
// through every downstream hop regardless of the configured sample rate.
type Flags uint64

// FlagDebug forces sampling when set.
const FlagDebug Flags = 1 << 0

// Debug reports whether the debug bit is set.
func (f Flags) Debug() bool { return f&FlagDebug != 0 }

// newID returns a fresh random 64-bit identifier. Zero is a legal trace/span
// id produced by this generator only in the astronomically unlikely case of
// an all-zero random draw; callers never special-case it.
func newID() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform's entropy source is
		// broken; there's nothing useful this package can do except
		// produce a deterministic fallback rather than panic the
		// request path.
		return uint64(fallbackCounter.add())
	}
	return binary.BigEndian.Uint64(b[:])
}

// NewTraceID generates a fresh trace id for a root span.
func NewTraceID() TraceID { return TraceID(newID()) }

// NewSpanID generates a fresh span id.
func NewSpanID() SpanID { return SpanID(newID()) }

// ParseID parses a base-10 unsigned 64-bit integer as found in propagation
// headers. It never accepts hex, matching the wire format in spec §3.4/§6.1.
func ParseID(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// fallbackCounter backstops newID if crypto/rand is unavailable; it never
// repeats within a process lifetime.
var fallbackCounter atomicCounter

type atomicCounter struct {
	v uint64
}

func (c *atomicCounter) add() uint64 {
	return atomic.AddUint64(&c.v, 1)
}
