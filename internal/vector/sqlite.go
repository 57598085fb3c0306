package vector

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	chunk_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	start_char INTEGER NOT NULL,
	end_char INTEGER NOT NULL,
	prev_index INTEGER NOT NULL,
	next_index INTEGER NOT NULL,
	vector BLOB NOT NULL
);
`

// SQLiteIndex stores chunk embeddings in SQLite, vectors as little-endian
// float32 BLOBs. Similarity is computed in Go over a sequential scan, which is
// fine at request-scoped corpus sizes; the payoff of SQLite is durability when
// a persist path is configured. Without CGO the driver errors on open and the
// factory falls back to the memory index.
type SQLiteIndex struct {
	db         *sql.DB
	dimensions int
	mu         sync.RWMutex
}

// NewSQLiteIndex opens (or creates) a SQLite-backed index at path. An empty
// path uses an in-process database. A stored dimension differing from the
// requested one invalidates the persisted entries, since vectors from
// different embedding providers must never mix.
func NewSQLiteIndex(path string, dimensions int) (*SQLiteIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if path == ":memory:" {
		// With this driver every pooled connection opens its own empty
		// in-memory database. Pin the pool to a single connection so
		// concurrent searches all see the same data.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	idx := &SQLiteIndex{db: db, dimensions: dimensions}
	if err := idx.reconcileDimensions(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// reconcileDimensions drops persisted entries whose dimension no longer matches.
func (s *SQLiteIndex) reconcileDimensions() error {
	var stored int
	err := s.db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dimensions'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("read index meta: %w", err)
	case stored != s.dimensions:
		if _, err := s.db.Exec(`DELETE FROM entries`); err != nil {
			return fmt.Errorf("invalidate entries: %w", err)
		}
	}
	_, err = s.db.Exec(
		`INSERT INTO index_meta (key, value) VALUES ('dimensions', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.dimensions,
	)
	if err != nil {
		return fmt.Errorf("write index meta: %w", err)
	}
	return nil
}

// Add inserts entries in order inside one transaction.
func (s *SQLiteIndex) Add(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != s.dimensions {
			return &DimensionError{Got: len(e.Vector), Want: s.dimensions}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (chunk_id, document_id, chunk_index, content, start_char, end_char, prev_index, next_index, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, e := range entries {
		c := e.Chunk
		_, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.StartChar, c.EndChar,
			c.PrevIndex, c.NextIndex, float32SliceToBytes(e.Vector))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert entry %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add: %w", err)
	}
	return nil
}

// Search scans all entries in insertion order and returns the top-k by inner
// product, score descending, ties broken by insertion order.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != s.dimensions {
		return nil, &DimensionError{Got: len(query), Want: s.dimensions}
	}
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, chunk_index, content, start_char, end_char, prev_index, next_index, vector
		FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var blob []byte
		c := &h.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content,
			&c.StartChar, &c.EndChar, &c.PrevIndex, &c.NextIndex, &blob); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != s.dimensions {
			return nil, &DimensionError{Got: len(vec), Want: s.dimensions}
		}
		var dot float64
		for j := 0; j < s.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		h.Score = dot
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Reset removes all entries.
func (s *SQLiteIndex) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("reset entries: %w", err)
	}
	return nil
}

// Save is a no-op: a file-backed database is durable on write.
func (s *SQLiteIndex) Save(path string) error { return nil }

// Load is a no-op: persisted entries are visible from open.
func (s *SQLiteIndex) Load(path string) error { return nil }

// Size returns the number of entries.
func (s *SQLiteIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Dimensions returns the index dimension.
func (s *SQLiteIndex) Dimensions() int { return s.dimensions }

// Close closes the database.
func (s *SQLiteIndex) Close() error { return s.db.Close() }
