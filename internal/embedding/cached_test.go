package embedding

import (
	"context"
	"testing"
)

// countingEmbedder records calls and lets tests change the provider name, the
// way a fallback trip does.
type countingEmbedder struct {
	name  string
	calls int
}

func (e *countingEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return []float32{1, 0}, nil
}

func (e *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e *countingEmbedder) Dimensions() int { return 2 }
func (e *countingEmbedder) Name() string    { return e.name }
func (e *countingEmbedder) Close() error    { return nil }

func TestCachedEmbedder_EvictsOldest(t *testing.T) {
	inner := &countingEmbedder{name: "test"}
	c := NewCachedEmbedder(inner, 1)
	ctx := context.Background()

	for _, text := range []string{"a", "b", "a"} {
		if _, err := c.Embed(ctx, text); err != nil {
			t.Fatal(err)
		}
	}
	if inner.calls != 3 {
		t.Errorf("capacity 1 should have evicted a before its reuse, got %d calls", inner.calls)
	}
}

func TestCachedEmbedder_KeysByProviderName(t *testing.T) {
	inner := &countingEmbedder{name: "remote:test"}
	c := NewCachedEmbedder(inner, 100)
	ctx := context.Background()

	if _, err := c.Embed(ctx, "same text"); err != nil {
		t.Fatal(err)
	}

	// A provider change must invalidate earlier entries, since their
	// vectors may have a different dimension.
	inner.name = "local-hash"
	if _, err := c.Embed(ctx, "same text"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected a cache miss after the provider changed, got %d calls", inner.calls)
	}
}
