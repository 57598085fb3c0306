package chunker

import (
	"strings"
	"testing"
)

func sampleText() string {
	return strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
}

func TestChunk_SingleChunkWhenTextFits(t *testing.T) {
	c := NewChunker(1000, 200)
	text := "A short document that fits in one chunk."

	chunks := c.Chunk("doc:abc", text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.Content != text {
		t.Errorf("content mangled: %q", ch.Content)
	}
	if ch.StartChar != 0 || ch.EndChar != len([]rune(text)) {
		t.Errorf("offsets: start=%d end=%d", ch.StartChar, ch.EndChar)
	}
	if ch.PrevIndex != -1 || ch.NextIndex != -1 {
		t.Errorf("neighbor links: prev=%d next=%d", ch.PrevIndex, ch.NextIndex)
	}
}

func TestChunk_EmptyText(t *testing.T) {
	c := NewChunker(100, 20)
	if chunks := c.Chunk("doc:abc", ""); chunks != nil {
		t.Errorf("expected nil for empty text, got %d chunks", len(chunks))
	}
}

func TestChunk_OffsetsMatchContent(t *testing.T) {
	c := NewChunker(100, 20)
	text := sampleText()
	runes := []rune(text)

	chunks := c.Chunk("doc:abc", text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if got := string(runes[ch.StartChar:ch.EndChar]); got != ch.Content {
			t.Fatalf("chunk %d content does not match its offsets", ch.ChunkIndex)
		}
	}
}

func TestChunk_CoversSourceWithoutGaps(t *testing.T) {
	overlap := 20
	c := NewChunker(100, overlap)
	text := sampleText()
	runes := []rune(text)

	chunks := c.Chunk("doc:abc", text)
	if chunks[0].StartChar != 0 {
		t.Errorf("first chunk starts at %d", chunks[0].StartChar)
	}
	if last := chunks[len(chunks)-1]; last.EndChar != len(runes) {
		t.Errorf("last chunk ends at %d, text has %d runes", last.EndChar, len(runes))
	}
	for i := 1; i < len(chunks); i++ {
		want := chunks[i-1].EndChar - overlap
		if want < 0 {
			want = 0
		}
		if chunks[i].StartChar != want {
			t.Errorf("chunk %d starts at %d, want %d", i, chunks[i].StartChar, want)
		}
	}
}

func TestChunk_Reconstruction(t *testing.T) {
	c := NewChunker(100, 20)
	text := sampleText()

	chunks := c.Chunk("doc:abc", text)
	var rebuilt []rune
	prevEnd := 0
	for _, ch := range chunks {
		content := []rune(ch.Content)
		skip := prevEnd - ch.StartChar // the shared overlap region
		rebuilt = append(rebuilt, content[skip:]...)
		prevEnd = ch.EndChar
	}
	if string(rebuilt) != text {
		t.Error("dropping overlap prefixes does not reconstruct the source text")
	}
}

func TestChunk_LengthBound(t *testing.T) {
	chunkSize, overlap := 100, 20
	c := NewChunker(chunkSize, overlap)

	chunks := c.Chunk("doc:abc", sampleText())
	for _, ch := range chunks {
		if n := len([]rune(ch.Content)); n > chunkSize+overlap {
			t.Errorf("chunk %d has %d runes, limit %d", ch.ChunkIndex, n, chunkSize+overlap)
		}
	}
}

func TestChunk_SharedOverlapText(t *testing.T) {
	overlap := 20
	c := NewChunker(100, overlap)
	text := sampleText()

	chunks := c.Chunk("doc:abc", text)
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		shared := chunks[i-1].EndChar - chunks[i].StartChar
		if shared <= 0 {
			t.Fatalf("chunks %d and %d share no text", i-1, i)
		}
		if string(prev[len(prev)-shared:]) != string(cur[:shared]) {
			t.Errorf("overlap between chunks %d and %d does not match", i-1, i)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker(100, 20)
	text := sampleText()

	first := c.Chunk("doc:abc", text)
	second := c.Chunk("doc:abc", text)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID differs: %q vs %q", i, first[i].ID, second[i].ID)
		}
		if first[i].StartChar != second[i].StartChar || first[i].EndChar != second[i].EndChar {
			t.Errorf("chunk %d boundaries differ", i)
		}
	}
	if first[0].ID != "doc:abc_0" {
		t.Errorf("chunk ID format: got %q", first[0].ID)
	}
}

func TestChunk_NeighborLinks(t *testing.T) {
	c := NewChunker(100, 20)
	chunks := c.Chunk("doc:abc", sampleText())

	for i, ch := range chunks {
		wantPrev, wantNext := i-1, i+1
		if i == 0 {
			wantPrev = -1
		}
		if i == len(chunks)-1 {
			wantNext = -1
		}
		if ch.PrevIndex != wantPrev || ch.NextIndex != wantNext {
			t.Errorf("chunk %d links: prev=%d next=%d, want prev=%d next=%d",
				i, ch.PrevIndex, ch.NextIndex, wantPrev, wantNext)
		}
	}
}

func TestChunk_PrefersSentenceBoundaries(t *testing.T) {
	c := NewChunker(100, 0)
	text := sampleText()
	runes := []rune(text)

	chunks := c.Chunk("doc:abc", text)
	for _, ch := range chunks[:len(chunks)-1] {
		// Each sentence in the sample ends with ". " well within the
		// boundary window, so no chunk should end mid-word.
		last := runes[ch.EndChar-1]
		if last != ' ' && last != '.' {
			t.Errorf("chunk %d ends mid-sentence at %q", ch.ChunkIndex, string(last))
		}
	}
}

func TestNewChunker_ClampsOverlap(t *testing.T) {
	c := NewChunker(50, 500)
	chunks := c.Chunk("doc:abc", sampleText())
	if len(chunks) < 2 {
		t.Fatal("expected multiple chunks")
	}
	// Clamped overlap still lets every chunk advance.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].EndChar <= chunks[i-1].EndChar {
			t.Fatalf("chunk %d made no progress", i)
		}
	}
}
