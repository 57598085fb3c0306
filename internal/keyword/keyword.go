// Package keyword provides an in-memory lexical chunk index used as the
// retrieval fallback when no query embedding is available.
package keyword

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// Result is a single lexical search hit.
type Result struct {
	Chunk models.DocumentChunk
	Score float64
}

// ChunkIndex is a memory-only Bleve index over chunk content. It lives for
// one request alongside the vector index and serves lexical match queries.
type ChunkIndex struct {
	index  bleve.Index
	mu     sync.RWMutex
	chunks map[string]models.DocumentChunk
}

// bleveChunk is the shape handed to Bleve; only content is searched.
type bleveChunk struct {
	Content string `json:"content"`
}

// NewChunkIndex creates an empty memory-only index.
func NewChunkIndex() (*ChunkIndex, error) {
	im := bleve.NewIndexMapping()
	chunkMapping := bleve.NewDocumentMapping()
	contentMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so question words
	// match document words exactly.
	contentMapping.Analyzer = standard.Name
	chunkMapping.AddFieldMappingsAt("content", contentMapping)
	im.DefaultMapping = chunkMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}
	return &ChunkIndex{
		index:  index,
		chunks: make(map[string]models.DocumentChunk),
	}, nil
}

// Add indexes chunks in one batch.
func (c *ChunkIndex) Add(ctx context.Context, chunks []models.DocumentChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.index.NewBatch()
	for _, chunk := range chunks {
		if err := batch.Index(chunk.ID, bleveChunk{Content: chunk.Content}); err != nil {
			return fmt.Errorf("index chunk %s: %w", chunk.ID, err)
		}
		c.chunks[chunk.ID] = chunk
	}
	if err := c.index.Batch(batch); err != nil {
		return fmt.Errorf("commit lexical batch: %w", err)
	}
	return nil
}

// Search runs a match query over chunk content and returns up to limit hits,
// score descending.
func (c *ChunkIndex) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	q := bleve.NewMatchQuery(query)
	q.SetField("content")
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	out := make([]Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		chunk, ok := c.chunks[hit.ID]
		if !ok {
			continue
		}
		out = append(out, Result{Chunk: chunk, Score: hit.Score})
	}
	return out, nil
}

// Size returns the number of indexed chunks.
func (c *ChunkIndex) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Close closes the underlying index.
func (c *ChunkIndex) Close() error {
	return c.index.Close()
}
