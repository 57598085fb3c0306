package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CachedEmbedder wraps an Embedder with an LRU cache so repeated chunks and
// questions are embedded once. Cache keys include the active provider name,
// so vectors cached before a fallback trip are never served after it.
type CachedEmbedder struct {
	inner Embedder

	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
}

type cachedVector struct {
	key    string
	vector []float32
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &CachedEmbedder{
		inner:    inner,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// key derives the cache key from the provider active right now. A fallback
// trip changes the inner embedder's name and with it every key.
func (c *CachedEmbedder) key(text string) string {
	return c.inner.Name() + "\x00" + text
}

func (c *CachedEmbedder) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedVector).vector, true
}

func (c *CachedEmbedder) store(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cachedVector).vector = vec
		return
	}
	c.entries[key] = c.order.PushFront(&cachedVector{key: key, vector: vec})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedVector).key)
	}
}

// Embed returns the cached embedding when present, delegating otherwise.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.lookup(c.key(text)); ok {
		return vec, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	// Re-key after the call: the provider may have fallen back during it.
	c.store(c.key(text), vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.lookup(c.key(text)); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	embedded, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range embedded {
		c.store(c.key(missing[j]), vec)
		out[missingIdx[j]] = vec
	}
	return out, nil
}

// FallbackTriggered reports the inner embedder's fallback state when it has one.
func (c *CachedEmbedder) FallbackTriggered() bool {
	if f, ok := c.inner.(interface{ FallbackTriggered() bool }); ok {
		return f.FallbackTriggered()
	}
	return false
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// Name returns the inner embedder's provider identifier.
func (c *CachedEmbedder) Name() string { return c.inner.Name() }

// Close closes the inner embedder.
func (c *CachedEmbedder) Close() error { return c.inner.Close() }
