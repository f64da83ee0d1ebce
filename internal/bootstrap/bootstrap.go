package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/config"
	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
	"github.com/kirillkom/multi-strategy-rag/internal/core/retrieval"
	"github.com/kirillkom/multi-strategy-rag/internal/core/usecase"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/extractor/html"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/loader"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/vector/qdrant"
)

// Retrieval is the query side: it needs only the LLM and the vector store,
// so the MCP server can run without postgres or nats.
type Retrieval struct {
	Retriever ports.ChunkRetriever
	QueryUC   ports.QueryService
	RouterUC  ports.QueryRouter

	embedder ports.Embedder
	vectorDB ports.VectorStore
}

type App struct {
	Config config.Config
	*Retrieval

	Queue     ports.MessageQueue
	Sources   ports.SourceReader
	IngestUC  ports.SourceIngestor
	ProcessUC ports.SourceProcessor

	closeFn func()
}

// NewRetrieval wires the strategy layer. searchObserver, if set, receives
// every search attempt and failure in addition to the log observer.
func NewRetrieval(cfg config.Config, searchObserver resilience.Observer) (*Retrieval, error) {
	llmExecutor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 500 * time.Millisecond,
		RetryMaxBackoff:     5 * time.Second,
		RetryMultiplier:     2,
		BreakerEnabled:      true,
	})
	genClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Temperature:        cfg.OllamaTemperature,
		Timeout:            cfg.OllamaTimeout,
		ResilienceExecutor: llmExecutor,
	})
	generator := ollama.NewGenerator(genClient)
	rewriter := ollama.NewQueryRewriter(genClient)

	embedder := newEmbedder(cfg)
	vectorDB := qdrant.NewWithAPIKey(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantAPIKey)
	searcher := newSearcher(cfg, embedder, vectorDB, searchObserver)

	retriever := retrieval.NewRetriever(searcher, rewriter, rewriter, retrieval.Config{
		RRFK:        cfg.RAGFusionRRFK,
		Parallel:    cfg.RetrievalParallel,
		MaxParallel: cfg.RetrievalMaxParallel,
	})

	defaultStrategy, err := domain.ParseStrategy(cfg.RAGDefaultStrategy)
	if err != nil {
		return nil, fmt.Errorf("parse RAG_DEFAULT_STRATEGY: %w", err)
	}
	queryUC := usecase.NewQueryUseCase(retriever, rewriter, generator, usecase.QueryOptions{
		DefaultStrategy: defaultStrategy,
		RerankTopN:      cfg.RAGRerankTopN,
	})

	catalog, err := config.LoadModelCatalog(cfg.ModelCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load model catalog: %w", err)
	}
	var routeGenerator ports.TextGenerator
	if cfg.RouterUseLLM {
		routeGenerator = generator
	}
	routerUC, err := usecase.NewRouterUseCase(routeGenerator, catalog, cfg.RouterDefaultModel)
	if err != nil {
		return nil, fmt.Errorf("init router: %w", err)
	}

	return &Retrieval{
		Retriever: retriever,
		QueryUC:   queryUC,
		RouterUC:  routerUC,
		embedder:  embedder,
		vectorDB:  vectorDB,
	}, nil
}

// Hooks let each binary attach its own metrics without bootstrap importing them.
type Hooks struct {
	SearchObserver resilience.Observer
	OnQueueLag     func(time.Duration)
}

func New(ctx context.Context, cfg config.Config, hooks Hooks) (*App, error) {
	rt, err := NewRetrieval(cfg, hooks.SearchObserver)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewSourceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		Logger:             slog.Default(),
		OnLag:              hooks.OnQueueLag,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	sourceLoader := loader.New(storage, loader.Extractors{
		Text:        plaintext.NewExtractor(),
		HTML:        html.NewExtractor(),
		PDF:         pdf.NewExtractor(),
		Spreadsheet: spreadsheet.NewExtractor(),
	})
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	ingestUC := usecase.NewIngestUseCase(repo, storage, queue, sourceLoader, chunker, rt.embedder, rt.vectorDB, usecase.IngestOptions{
		BatchSize:  cfg.IngestBatchSize,
		Executor:   resilience.NewExecutor(searchRetryConfig(cfg)),
		Classifier: resilience.RetryTemporary,
	})

	return &App{
		Config:    cfg,
		Retrieval: rt,

		Queue:     queue,
		Sources:   repo,
		IngestUC:  ingestUC,
		ProcessUC: ingestUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// newEmbedder builds an embedder without its own retries: embeddings are
// only called from the search and ingest-batch executors, which own retry.
func newEmbedder(cfg config.Config) *ollama.Embedder {
	client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout: cfg.OllamaTimeout,
	})
	return ollama.NewEmbedder(client)
}

func newSearcher(cfg config.Config, embedder ports.Embedder, store ports.VectorStore, searchObserver resilience.Observer) *retrieval.RetryingSearcher {
	observers := retrieval.Observers{retrieval.LogObserver{}}
	if searchObserver != nil {
		observers = append(observers, searchObserver)
	}
	executor := resilience.NewExecutor(searchRetryConfig(cfg), resilience.WithObserver(observers))
	return retrieval.NewRetryingSearcher(qdrant.NewSearcher(embedder, store, cfg.RAGTopK), executor, resilience.RetryTemporary)
}

func searchRetryConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.SearchMaxAttempts
	rc.RetryInitialBackoff = cfg.SearchBaseDelay
	rc.RetryMaxBackoff = cfg.SearchMaxDelay
	rc.BreakerEnabled = cfg.SearchBreakerEnabled
	return rc
}
