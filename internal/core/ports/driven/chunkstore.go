package driven

import (
	"context"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
)

// ChunkStore persists chunk sets keyed by a stable document key.
// Chunking is deterministic, so a stored chunk set can be reused
// instead of re-chunking the same document.
type ChunkStore interface {
	// SaveChunkedDocument stores a chunk set (idempotent upsert).
	SaveChunkedDocument(ctx context.Context, doc *domain.ChunkedDocument) error

	// GetChunkedDocument retrieves the chunk set for a document key.
	// Returns domain.ErrNotFound if none exists.
	GetChunkedDocument(ctx context.Context, documentKey string) (*domain.ChunkedDocument, error)
}
