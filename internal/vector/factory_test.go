package vector

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_MemoryBackend(t *testing.T) {
	idx, err := New(BackendMemory, 4, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if _, ok := idx.(*MemoryIndex); !ok {
		t.Errorf("expected MemoryIndex, got %T", idx)
	}
}

func TestNew_SQLiteFallsBackToMemory(t *testing.T) {
	// Succeeds either way: SQLite when the driver works, memory otherwise.
	idx, err := New(BackendSQLite, 4, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if idx.Dimensions() != 4 {
		t.Errorf("Dimensions=%d", idx.Dimensions())
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New("faiss", 4, "", zap.NewNop()); err == nil {
		t.Error("expected error for unknown backend")
	}
}
