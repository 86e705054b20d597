package tracing_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/tracing"
)

func TestExtractAdoptsCompleteInboundHeaders(t *testing.T) {
	carrier := tracing.MapCarrier{
		"trace":  "111",
		"parent": "222",
		"span":   "333",
		"sampled": "1",
	}
	ec := tracing.Extract(carrier, nil)

	assert.True(t, ec.Adopted)
	assert.Equal(t, tracing.TraceID(111), ec.TraceID)
	assert.Equal(t, tracing.SpanID(222), ec.ParentID)
	assert.True(t, ec.HasParentID)
	assert.Equal(t, tracing.SpanID(333), ec.SpanID)
	if assert.NotNil(t, ec.Sampled) {
		assert.True(t, *ec.Sampled)
	}
}

func TestExtractAcceptsB3Headers(t *testing.T) {
	carrier := tracing.MapCarrier{
		"x-b3-traceid":      "111",
		"x-b3-parentspanid": "222",
		"x-b3-spanid":       "333",
	}
	ec := tracing.Extract(carrier, nil)
	assert.True(t, ec.Adopted)
	assert.Equal(t, tracing.TraceID(111), ec.TraceID)
}

func TestExtractFallsBackToNewRootWhenIncomplete(t *testing.T) {
	carrier := tracing.MapCarrier{"trace": "111"} // missing parent and span
	ec := tracing.Extract(carrier, nil)

	assert.False(t, ec.Adopted)
	assert.False(t, ec.HasParentID)
	assert.Equal(t, tracing.TraceID(ec.SpanID), ec.TraceID)
	assert.NotZero(t, ec.SpanID)
}

func TestExtractFallsBackWhenUntrusted(t *testing.T) {
	carrier := tracing.MapCarrier{
		"trace": "111", "parent": "222", "span": "333",
	}
	ec := tracing.Extract(carrier, tracing.NeverTrustHeaders{})
	assert.False(t, ec.Adopted)
}

func TestExtractPreservesEdgeContextRegardlessOfTrust(t *testing.T) {
	carrier := tracing.MapCarrier{"edge-request": "opaque-bytes"}
	ec := tracing.Extract(carrier, tracing.NeverTrustHeaders{})
	assert.True(t, ec.HasEdge)
	assert.Equal(t, "opaque-bytes", string(ec.EdgeContext))
}

func TestInjectWritesCurrentSpanIdentity(t *testing.T) {
	span := tracing.NewSpan(tracing.TraceID(10), tracing.SpanID(20), tracing.SpanID(5), true, "op", tracing.KindClient, "")
	carrier := tracing.MapCarrier{}
	tracing.Inject(span, carrier, nil, false)

	assert.Equal(t, "10", carrier["Trace"])
	assert.Equal(t, "5", carrier["Parent"])
	assert.Equal(t, "20", carrier["Span"])
	_, hasEdge := carrier["Edge-Request"]
	assert.False(t, hasEdge)
}

func TestInjectWritesEdgeContextWhenPresent(t *testing.T) {
	span := tracing.NewSpan(tracing.TraceID(1), tracing.SpanID(1), 0, false, "op", tracing.KindServer, "")
	carrier := tracing.MapCarrier{}
	tracing.Inject(span, carrier, []byte("edge"), true)
	assert.Equal(t, "edge", carrier["Edge-Request"])
}

func TestParseID(t *testing.T) {
	v, ok := tracing.ParseID(strconv.FormatUint(12345, 10))
	assert.True(t, ok)
	assert.Equal(t, uint64(12345), v)

	_, ok = tracing.ParseID("not-a-number")
	assert.False(t, ok)
}
