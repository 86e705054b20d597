package requestcontext_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reddit/baseplate.go/requestcontext"
)

func TestAttributeRoundTrip(t *testing.T) {
	ctx := requestcontext.WithAttributes(context.Background())
	requestcontext.SetAttribute(ctx, "k", "v")

	v, ok := requestcontext.Attribute(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	_, ok = requestcontext.Attribute(ctx, "missing")
	assert.False(t, ok)
}

func TestShadowAttributeRestoresPreviousValue(t *testing.T) {
	ctx := requestcontext.WithAttributes(context.Background())
	requestcontext.SetAttribute(ctx, "k", "outer")

	restore := requestcontext.ShadowAttribute(ctx, "k", "inner")
	v, _ := requestcontext.Attribute(ctx, "k")
	assert.Equal(t, "inner", v)

	restore()
	v, _ = requestcontext.Attribute(ctx, "k")
	assert.Equal(t, "outer", v)
}

func TestShadowAttributeWithNoPriorValueDeletesOnRestore(t *testing.T) {
	ctx := requestcontext.WithAttributes(context.Background())

	restore := requestcontext.ShadowAttribute(ctx, "k", "inner")
	_, ok := requestcontext.Attribute(ctx, "k")
	assert.True(t, ok)

	restore()
	_, ok = requestcontext.Attribute(ctx, "k")
	assert.False(t, ok)
}

func TestNestedShadowsPopInOrder(t *testing.T) {
	ctx := requestcontext.WithAttributes(context.Background())
	requestcontext.SetAttribute(ctx, "k", "base")

	restore1 := requestcontext.ShadowAttribute(ctx, "k", "mid")
	restore2 := requestcontext.ShadowAttribute(ctx, "k", "top")

	v, _ := requestcontext.Attribute(ctx, "k")
	assert.Equal(t, "top", v)

	restore2()
	v, _ = requestcontext.Attribute(ctx, "k")
	assert.Equal(t, "mid", v)

	restore1()
	v, _ = requestcontext.Attribute(ctx, "k")
	assert.Equal(t, "base", v)
}

func TestEdgeContextRoundTrip(t *testing.T) {
	ctx := requestcontext.WithEdgeContext(context.Background(), []byte("edge"))
	raw, ok := requestcontext.EdgeContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "edge", string(raw))
}
