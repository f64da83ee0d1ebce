package ports

import (
	"context"
	"io"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

// ChunkRetriever is the retrieval layer surface: a strategy dispatcher.
type ChunkRetriever interface {
	Execute(ctx context.Context, strategy domain.Strategy, query string, phrasings []string) ([]domain.Chunk, error)
}

// QueryService answers questions end-to-end: rewrite, retrieve, generate.
type QueryService interface {
	Answer(ctx context.Context, question string, strategy domain.Strategy, phrasings []string) (*domain.Answer, error)
}

// SourceIngestor registers a source and schedules its ingestion.
type SourceIngestor interface {
	Enqueue(ctx context.Context, location string) (*domain.Source, error)
	Upload(ctx context.Context, filename string, body io.Reader) (*domain.Source, error)
}

// SourceReader is the read model for ingestion source state.
type SourceReader interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
}

// SourceProcessor runs ingestion for a queued source.
type SourceProcessor interface {
	ProcessByID(ctx context.Context, sourceID string) (*domain.IngestReport, error)
}

// QueryRouter recommends a model for a query.
type QueryRouter interface {
	Route(ctx context.Context, query string) domain.RouteDecision
	Models() []domain.ModelInfo
}
