// Package chunker splits extracted text into overlapping, boundary-aware chunks.
package chunker

import (
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// boundaryWindowDivisor bounds how far back from the size limit the chunker
// searches for a sentence boundary (chunkSize / divisor runes).
const boundaryWindowDivisor = 5

// Chunker splits text into chunks of roughly chunkSize runes, with consecutive
// chunks sharing overlap runes of context. Splits prefer sentence and paragraph
// boundaries; a fixed-size window is the fallback when no boundary is found
// within the search budget.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given size and overlap, both in runes.
// An overlap at or above the chunk size is clamped so every chunk makes progress.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into DocumentChunks. Invariants: chunk offsets cover the
// source text with no gaps, overlap regions are the only duplicated text, every
// chunk is at most chunkSize+overlap runes, and identical input yields identical
// boundaries and IDs. Text no longer than chunkSize yields exactly one chunk.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.chunkSize {
		return []*models.DocumentChunk{{
			ID:         chunkID(docID, 0),
			DocumentID: docID,
			ChunkIndex: 0,
			Content:    text,
			StartChar:  0,
			EndChar:    len(runes),
			PrevIndex:  -1,
			NextIndex:  -1,
		}}
	}

	var chunks []*models.DocumentChunk
	pos := 0
	for pos < len(runes) {
		end := pos + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.splitPoint(runes, pos, end)
		}
		contentStart := pos
		if len(chunks) > 0 {
			contentStart = pos - c.overlap
			if contentStart < 0 {
				contentStart = 0
			}
		}
		idx := len(chunks)
		chunks = append(chunks, &models.DocumentChunk{
			ID:         chunkID(docID, idx),
			DocumentID: docID,
			ChunkIndex: idx,
			Content:    string(runes[contentStart:end]),
			StartChar:  contentStart,
			EndChar:    end,
			PrevIndex:  idx - 1,
			NextIndex:  -1,
		})
		pos = end
	}
	for i := 0; i < len(chunks)-1; i++ {
		chunks[i].NextIndex = i + 1
	}
	if len(chunks) > 0 {
		chunks[0].PrevIndex = -1
	}
	return chunks
}

// splitPoint returns the end offset for a chunk whose hard limit is at limit.
// It searches backwards within the boundary window for the end of a sentence or
// a paragraph break and falls back to the hard limit when none is found.
func (c *Chunker) splitPoint(runes []rune, start, limit int) int {
	window := c.chunkSize / boundaryWindowDivisor
	floor := limit - window
	if floor <= start {
		floor = start + 1
	}
	for i := limit - 1; i >= floor; i-- {
		if !isBoundary(runes, i) {
			continue
		}
		end := i + 1
		// Pull trailing whitespace into this chunk so the next one starts on content.
		for end < limit && isSpace(runes[end]) {
			end++
		}
		return end
	}
	return limit
}

// isBoundary reports whether position i ends a sentence or paragraph: a
// terminator followed by whitespace or end of text, or a newline.
func isBoundary(runes []rune, i int) bool {
	switch runes[i] {
	case '\n':
		return true
	case '.', '!', '?':
		return i+1 >= len(runes) || isSpace(runes[i+1])
	default:
		return false
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// chunkID derives a stable chunk ID so re-chunking identical bytes is idempotent.
func chunkID(docID string, index int) string {
	return fmt.Sprintf("%s_%d", docID, index)
}
