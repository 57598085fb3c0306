package vector

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
)

func newSQLiteOrSkip(t *testing.T, path string, dims int) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLiteIndex(path, dims)
	if errors.Is(err, ErrBackendUnavailable) {
		t.Skip("sqlite backend unavailable in this build")
	}
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestSQLiteIndex_AddSearch(t *testing.T) {
	idx := newSQLiteOrSkip(t, "", 3)
	defer idx.Close()
	ctx := context.Background()

	entries := []Entry{
		chunkEntry("a", []float32{1, 0, 0}),
		chunkEntry("b", []float32{0, 1, 0}),
		chunkEntry("c", []float32{0.7, 0.7, 0}),
	}
	if err := idx.Add(ctx, entries); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ID != "b" {
		t.Errorf("top hit should be b, got %s", hits[0].Chunk.ID)
	}
	if hits[0].Chunk.Content != "content of b" {
		t.Errorf("chunk content lost in round-trip: %q", hits[0].Chunk.Content)
	}
}

func TestSQLiteIndex_ConcurrentSearches(t *testing.T) {
	idx := newSQLiteOrSkip(t, "", 3)
	defer idx.Close()
	ctx := context.Background()

	if err := idx.Add(ctx, []Entry{
		chunkEntry("a", []float32{1, 0, 0}),
		chunkEntry("b", []float32{0, 1, 0}),
	}); err != nil {
		t.Fatal(err)
	}

	// Parallel searches must all see the added entries, even when the
	// connection pool would otherwise hand out more than one connection.
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := idx.Search(ctx, []float32{0, 1, 0}, 1)
			if err != nil {
				errs <- err
				return
			}
			if len(hits) != 1 || hits[0].Chunk.ID != "b" {
				errs <- errors.New("search saw an inconsistent index")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSQLiteIndex_TieBreakInsertionOrder(t *testing.T) {
	idx := newSQLiteOrSkip(t, "", 2)
	defer idx.Close()
	ctx := context.Background()

	_ = idx.Add(ctx, []Entry{
		chunkEntry("first", []float32{1, 0}),
		chunkEntry("second", []float32{1, 0}),
	})
	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Chunk.ID != "first" || hits[1].Chunk.ID != "second" {
		t.Errorf("tie not broken by insertion order: %s, %s", hits[0].Chunk.ID, hits[1].Chunk.ID)
	}
}

func TestSQLiteIndex_DimensionMismatch(t *testing.T) {
	idx := newSQLiteOrSkip(t, "", 3)
	defer idx.Close()

	err := idx.Add(context.Background(), []Entry{chunkEntry("x", []float32{1, 0})})
	var derr *DimensionError
	if !errors.As(err, &derr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
}

func TestSQLiteIndex_PersistAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	idx := newSQLiteOrSkip(t, path, 2)
	_ = idx.Add(ctx, []Entry{chunkEntry("a", []float32{1, 0})})
	idx.Close()

	reopened := newSQLiteOrSkip(t, path, 2)
	defer reopened.Close()
	if reopened.Size() != 1 {
		t.Errorf("expected persisted entry, got size %d", reopened.Size())
	}
}

func TestSQLiteIndex_DimensionChangeInvalidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	idx := newSQLiteOrSkip(t, path, 2)
	_ = idx.Add(ctx, []Entry{chunkEntry("a", []float32{1, 0})})
	idx.Close()

	reopened := newSQLiteOrSkip(t, path, 3)
	defer reopened.Close()
	if reopened.Size() != 0 {
		t.Errorf("dimension change should invalidate persisted entries, got size %d", reopened.Size())
	}
}

func TestSQLiteIndex_Reset(t *testing.T) {
	idx := newSQLiteOrSkip(t, "", 2)
	defer idx.Close()
	ctx := context.Background()

	_ = idx.Add(ctx, []Entry{chunkEntry("a", []float32{1, 0})})
	if err := idx.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 0 {
		t.Errorf("expected empty index after reset, got %d", idx.Size())
	}
}
