package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
)

func newCacheOrSkip(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		// CGO-less builds have no working sqlite driver.
		t.Skipf("sqlite unavailable: %v", err)
	}
	return cache
}

func sampleEntries() []vector.Entry {
	return []vector.Entry{
		{
			Chunk: models.DocumentChunk{
				ID: "d_0", DocumentID: "d", ChunkIndex: 0,
				Content: "first chunk", StartChar: 0, EndChar: 11,
				PrevIndex: -1, NextIndex: 1,
			},
			Vector: []float32{0.1, 0.2, 0.3},
		},
		{
			Chunk: models.DocumentChunk{
				ID: "d_1", DocumentID: "d", ChunkIndex: 1,
				Content: "second chunk", StartChar: 9, EndChar: 21,
				PrevIndex: 0, NextIndex: -1,
			},
			Vector: []float32{0.4, 0.5, 0.6},
		},
	}
}

func TestSQLiteCache_SaveLoad(t *testing.T) {
	cache := newCacheOrSkip(t)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.SaveEntries(ctx, "fp1", "remote:test", sampleEntries()); err != nil {
		t.Fatal(err)
	}

	provider, entries, ok, err := cache.LoadEntries(ctx, "fp1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if provider != "remote:test" {
		t.Errorf("provider=%q", provider)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Chunk.Content != "first chunk" || entries[1].Chunk.NextIndex != -1 {
		t.Errorf("chunk metadata lost: %+v", entries)
	}
	if entries[1].Vector[2] != 0.6 {
		t.Errorf("vector lost precision: %v", entries[1].Vector)
	}
}

func TestSQLiteCache_Miss(t *testing.T) {
	cache := newCacheOrSkip(t)
	defer cache.Close()

	_, _, ok, err := cache.LoadEntries(context.Background(), "absent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestSQLiteCache_SaveReplaces(t *testing.T) {
	cache := newCacheOrSkip(t)
	defer cache.Close()
	ctx := context.Background()

	if err := cache.SaveEntries(ctx, "fp1", "remote:test", sampleEntries()); err != nil {
		t.Fatal(err)
	}
	if err := cache.SaveEntries(ctx, "fp1", "local-hash", sampleEntries()[:1]); err != nil {
		t.Fatal(err)
	}

	provider, entries, ok, err := cache.LoadEntries(ctx, "fp1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if provider != "local-hash" {
		t.Errorf("provider=%q", provider)
	}
	if len(entries) != 1 {
		t.Errorf("expected replaced entry set of 1, got %d", len(entries))
	}
}
