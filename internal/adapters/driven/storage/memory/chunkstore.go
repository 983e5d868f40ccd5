package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/scengen-cli/internal/core/domain"
	"github.com/custodia-labs/scengen-cli/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu   sync.RWMutex
	docs map[string]domain.ChunkedDocument
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		docs: make(map[string]domain.ChunkedDocument),
	}
}

// SaveChunkedDocument stores a chunk set keyed by document key.
func (s *ChunkStore) SaveChunkedDocument(_ context.Context, doc *domain.ChunkedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.DocumentKey] = *doc
	return nil
}

// GetChunkedDocument retrieves the chunk set for a document key.
func (s *ChunkStore) GetChunkedDocument(_ context.Context, documentKey string) (*domain.ChunkedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}
