package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// MemoryIndex is an in-memory vector index using brute-force inner product
// search. It is the fallback when the SQLite backend is unavailable and the
// workhorse in tests.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add appends entries, preserving insertion order.
func (m *MemoryIndex) Add(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != m.dimensions {
			return &DimensionError{Got: len(e.Vector), Want: m.dimensions}
		}
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		e.Vector = vec
		m.entries = append(m.entries, e)
	}
	return nil
}

// Search returns the top-k entries by inner product (cosine similarity for
// normalized vectors), score descending, ties broken by insertion order.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, &DimensionError{Got: len(query), Want: m.dimensions}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, len(m.entries))
	for i, e := range m.entries {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * e.Vector[j])
		}
		scores[i] = scored{pos: i, score: dot}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	result := make([]Hit, k)
	for i := 0; i < k; i++ {
		result[i] = Hit{Chunk: m.entries[scores[i].pos].Chunk, Score: scores[i].score}
	}
	return result, nil
}

// Reset removes all entries, keeping the dimension.
func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	return nil
}

// Save persists the index to path. Directory is created if needed. Format:
// dimension (4), n (4), then per entry: chunkLen (4), chunk JSON, vector
// (dimension*4 bytes), all little-endian.
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		chunkBytes, err := json.Marshal(e.Chunk)
		if err != nil {
			return fmt.Errorf("encode chunk: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(chunkBytes))); err != nil {
			return fmt.Errorf("write chunk len: %w", err)
		}
		if _, err := f.Write(chunkBytes); err != nil {
			return fmt.Errorf("write chunk: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return &DimensionError{Got: int(dim), Want: m.dimensions}
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]Entry, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var chunkLen uint32
		if err := binary.Read(f, binary.LittleEndian, &chunkLen); err != nil {
			return fmt.Errorf("read chunk len: %w", err)
		}
		chunkBytes := make([]byte, chunkLen)
		if _, err := io.ReadFull(f, chunkBytes); err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		var chunk models.DocumentChunk
		if err := json.Unmarshal(chunkBytes, &chunk); err != nil {
			return fmt.Errorf("decode chunk: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		entries = append(entries, Entry{Chunk: chunk, Vector: bytesToFloat32Slice(buf)})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	return nil
}

// Size returns the number of entries in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the index dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error { return nil }

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
