package ports

import (
	"context"
	"io"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

// ChunkSearcher is the similarity-search primitive. It may fail and must be
// idempotent from the caller's point of view.
type ChunkSearcher interface {
	Search(ctx context.Context, query string) ([]domain.Chunk, error)
}

// TextGenerator maps a prompt to generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunk vectors and runs nearest-neighbour search.
type VectorStore interface {
	IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Chunk, error)
}

// QueryImprover rewrites a user query into alternative phrasings.
type QueryImprover interface {
	Improve(ctx context.Context, query string) ([]string, error)
}

// QueryDecomposer splits a complex query into simpler sub-queries.
type QueryDecomposer interface {
	Decompose(ctx context.Context, query string) ([]string, error)
}

// HypotheticalWriter produces a synthetic answer document used as a search key.
type HypotheticalWriter interface {
	WriteHypothetical(ctx context.Context, query string) (string, error)
}

// AnswerGenerator creates the final user-facing answer from retrieved chunks.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.Chunk) (string, error)
}

// DocumentLoader turns a source location into raw documents.
type DocumentLoader interface {
	Load(ctx context.Context, location string) ([]domain.LoadedDocument, error)
}

// TextExtractor pulls plain text out of one document format.
type TextExtractor interface {
	Extract(ctx context.Context, name string, data []byte) (string, error)
}

// ObjectStorage keeps uploaded source files until the worker ingests them.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// SourceRepository persists ingestion source state.
type SourceRepository interface {
	Create(ctx context.Context, src *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report domain.IngestReport) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishSourceQueued(ctx context.Context, sourceID string) error
	SubscribeSourceQueued(ctx context.Context, handler func(context.Context, string) error) error
}
