package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/vector"
)

// SQLiteCache implements EntryCache using SQLite.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens or creates the cache database at dbPath and initializes
// the schema. Parent directories are created if they do not exist.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpora (
		fingerprint TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS corpus_entries (
		fingerprint TEXT NOT NULL,
		seq INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		start_char INTEGER NOT NULL,
		end_char INTEGER NOT NULL,
		prev_index INTEGER NOT NULL,
		next_index INTEGER NOT NULL,
		vector BLOB NOT NULL,
		PRIMARY KEY (fingerprint, seq),
		FOREIGN KEY (fingerprint) REFERENCES corpora(fingerprint) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveEntries replaces the cached entries for a fingerprint in one transaction.
func (s *SQLiteCache) SaveEntries(ctx context.Context, fp, provider string, entries []vector.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_entries WHERE fingerprint = ?`, fp); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpora (fingerprint, provider, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET provider = excluded.provider, created_at = excluded.created_at`,
		fp, provider, time.Now()); err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert corpus: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO corpus_entries (fingerprint, seq, chunk_id, document_id, chunk_index, content, start_char, end_char, prev_index, next_index, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range entries {
		c := e.Chunk
		if _, err := stmt.ExecContext(ctx, fp, i, c.ID, c.DocumentID, c.ChunkIndex,
			c.Content, c.StartChar, c.EndChar, c.PrevIndex, c.NextIndex,
			encodeVector(e.Vector)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert entry %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadEntries returns the cached entries for a fingerprint in original order.
func (s *SQLiteCache) LoadEntries(ctx context.Context, fp string) (string, []vector.Entry, bool, error) {
	var provider string
	err := s.db.QueryRowContext(ctx,
		`SELECT provider FROM corpora WHERE fingerprint = ?`, fp).Scan(&provider)
	if err == sql.ErrNoRows {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("read corpus: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, chunk_index, content, start_char, end_char, prev_index, next_index, vector
		FROM corpus_entries WHERE fingerprint = ? ORDER BY seq`, fp)
	if err != nil {
		return "", nil, false, fmt.Errorf("read entries: %w", err)
	}
	defer rows.Close()

	var entries []vector.Entry
	for rows.Next() {
		var e vector.Entry
		var blob []byte
		c := &e.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content,
			&c.StartChar, &c.EndChar, &c.PrevIndex, &c.NextIndex, &blob); err != nil {
			return "", nil, false, fmt.Errorf("scan entry: %w", err)
		}
		e.Vector = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return "", nil, false, fmt.Errorf("read entries: %w", err)
	}
	return provider, entries, true, nil
}

// Close closes the database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func encodeVector(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func decodeVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
