package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/config"
	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

type ingestFake struct {
	err       error
	locations []string
	uploaded  string
}

func (f *ingestFake) Enqueue(_ context.Context, location string) (*domain.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locations = append(f.locations, location)
	now := time.Now().UTC()
	return &domain.Source{ID: "src-1", Location: location, Status: domain.SourceQueued, CreatedAt: now, UpdatedAt: now}, nil
}

func (f *ingestFake) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Source, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	f.uploaded = string(raw)
	return f.Enqueue(ctx, "file://src-1_"+filename)
}

type queryFake struct {
	err      error
	strategy domain.Strategy
}

func (f *queryFake) Answer(_ context.Context, question string, strategy domain.Strategy, phrasings []string) (*domain.Answer, error) {
	f.strategy = strategy
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{
		Text:      "answer to " + question,
		Strategy:  strategy,
		Phrasings: phrasings,
		Sources:   []domain.Chunk{{Content: "ctx", Score: 0.9}},
	}, nil
}

type retrieverFake struct {
	err       error
	chunks    []domain.Chunk
	strategy  domain.Strategy
	phrasings []string
}

func (f *retrieverFake) Execute(_ context.Context, strategy domain.Strategy, _ string, phrasings []string) ([]domain.Chunk, error) {
	f.strategy = strategy
	f.phrasings = phrasings
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

type sourcesFake struct {
	err error
}

func (f sourcesFake) GetByID(_ context.Context, id string) (*domain.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Source{ID: id, Location: "https://example.com", Status: domain.SourceReady, TotalChunks: 3, UploadedChunks: 3}, nil
}

type routerFake struct{}

func (routerFake) Route(_ context.Context, query string) domain.RouteDecision {
	return domain.RouteDecision{Query: query, Model: domain.ModelInfo{Name: "claude-3-opus"}, Method: domain.RouteMethodKeyword}
}

func (routerFake) Models() []domain.ModelInfo {
	return []domain.ModelInfo{{Name: "gpt-3.5-turbo"}, {Name: "claude-3-opus"}}
}

type testDeps struct {
	ingest    *ingestFake
	query     *queryFake
	retriever *retrieverFake
	sources   sourcesFake
}

func newTestDeps() *testDeps {
	return &testDeps{
		ingest:    &ingestFake{},
		query:     &queryFake{},
		retriever: &retrieverFake{},
	}
}

func (d *testDeps) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, d.ingest, d.query, d.retriever, d.sources, routerFake{}).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestDeps().handler(cfg)
}
