package qdrant

import (
	"context"
	"fmt"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

// Searcher is the text-in similarity search: embed the query, then run a
// nearest-neighbour lookup.
type Searcher struct {
	embedder ports.Embedder
	store    ports.VectorStore
	topK     int
}

func NewSearcher(embedder ports.Embedder, store ports.VectorStore, topK int) *Searcher {
	if topK <= 0 {
		topK = 4
	}
	return &Searcher{embedder: embedder, store: store, topK: topK}
}

func (s *Searcher) Search(ctx context.Context, query string) ([]domain.Chunk, error) {
	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	chunks, err := s.store.Search(ctx, vector, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	return chunks, nil
}
