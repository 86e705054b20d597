package zipkin_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/tracing"
	"github.com/reddit/baseplate.go/tracing/zipkin"
)

func TestFromSpanServerAnnotations(t *testing.T) {
	span := tracing.NewSpan(tracing.TraceID(1), tracing.SpanID(1), 0, false, "test.op", tracing.KindServer, "")
	span.Start()
	span.SetTag("custom", "value")
	span.Finish(nil)

	rec := zipkin.FromSpan(span, "svc", "10.0.0.1")
	assert.Equal(t, "1", rec.TraceID)
	assert.Equal(t, "1", rec.SpanID)
	assert.Equal(t, "", rec.ParentID)
	if assert.Len(t, rec.Annotations, 2) {
		assert.Equal(t, "sr", rec.Annotations[0].Value)
		assert.Equal(t, "ss", rec.Annotations[1].Value)
	}

	var found bool
	for _, ba := range rec.BinaryAnnotations {
		if ba.Key == "custom" {
			found = true
			assert.Equal(t, "value", ba.Value)
		}
	}
	assert.True(t, found)
}

func TestFromSpanLocalGetsComponentAnnotation(t *testing.T) {
	span := tracing.NewSpan(tracing.TraceID(1), tracing.SpanID(2), tracing.SpanID(1), true, "local.op", tracing.KindLocal, "mycomp")
	span.Start()
	span.Finish(nil)

	rec := zipkin.FromSpan(span, "svc", "")
	assert.Equal(t, "1", rec.ParentID)
	if assert.Equal(t, "lc", rec.Annotations[0].Value) {
		var found bool
		for _, ba := range rec.BinaryAnnotations {
			if ba.Key == "component" {
				found = true
			}
		}
		assert.True(t, found)
	}
}

func TestMarshalProducesValidJSON(t *testing.T) {
	span := tracing.NewSpan(tracing.TraceID(1), tracing.SpanID(1), 0, false, "op", tracing.KindServer, "")
	span.Start()
	span.Finish(nil)
	rec := zipkin.FromSpan(span, "svc", "")

	data, err := zipkin.Marshal(rec)
	assert.NoError(t, err)

	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "op", out["name"])
}
