// Package storage caches embedded corpora in SQLite, keyed by corpus
// fingerprint, so a repeated request over the same documents skips
// re-extraction and re-embedding.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/vector"
)

// EntryCache persists the embedded entries of a corpus.
type EntryCache interface {
	// SaveEntries replaces the cached entries for a fingerprint.
	SaveEntries(ctx context.Context, fp, provider string, entries []vector.Entry) error
	// LoadEntries returns the cached entries, their provider, and whether the
	// fingerprint was present.
	LoadEntries(ctx context.Context, fp string) (provider string, entries []vector.Entry, ok bool, err error)
	Close() error
}
