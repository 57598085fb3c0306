package vector

import (
	"fmt"

	"go.uber.org/zap"
)

// Backend identifiers accepted in configuration.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// New creates the configured index backend, falling back from SQLite to the
// in-memory index when SQLite is unavailable (for example in a CGO-less
// build). The fallback is logged but otherwise transparent to callers.
func New(backend string, dimensions int, persistPath string, logger *zap.Logger) (Index, error) {
	switch backend {
	case BackendSQLite, "":
		idx, err := NewSQLiteIndex(persistPath, dimensions)
		if err == nil {
			return idx, nil
		}
		logger.Warn("sqlite vector index unavailable, using memory index", zap.Error(err))
		return NewMemoryIndex(dimensions)
	case BackendMemory:
		return NewMemoryIndex(dimensions)
	default:
		return nil, fmt.Errorf("unknown vector index backend: %q", backend)
	}
}
