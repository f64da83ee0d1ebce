package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/resilience"
)

const (
	defaultBatchSize = 10
	uploadOperation  = "ingest.upload_batch"
)

type IngestOptions struct {
	BatchSize int
	Executor  *resilience.Executor
	// Classifier decides which batch failures are retried; nil retries all.
	Classifier resilience.ErrorClassifier
}

// IngestUseCase registers sources, queues them, and on the worker side loads,
// splits, embeds and uploads them in retried batches. A failed batch is
// counted, not fatal.
type IngestUseCase struct {
	repo     ports.SourceRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	loader   ports.DocumentLoader
	chunker  ports.Chunker
	embedder ports.Embedder
	store    ports.VectorStore

	batchSize  int
	executor   *resilience.Executor
	classifier resilience.ErrorClassifier
}

func NewIngestUseCase(
	repo ports.SourceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	loader ports.DocumentLoader,
	chunker ports.Chunker,
	embedder ports.Embedder,
	store ports.VectorStore,
	opts IngestOptions,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Executor == nil {
		opts.Executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if opts.Classifier == nil {
		opts.Classifier = resilience.RetryAll
	}
	return &IngestUseCase{
		repo:       repo,
		storage:    storage,
		queue:      queue,
		loader:     loader,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		batchSize:  opts.BatchSize,
		executor:   opts.Executor,
		classifier: opts.Classifier,
	}
}

func (uc *IngestUseCase) Enqueue(ctx context.Context, location string) (*domain.Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "enqueue source", errors.New("location is required"))
	}

	now := time.Now().UTC()
	src := &domain.Source{
		ID:        uuid.NewString(),
		Location:  location,
		Status:    domain.SourceQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	if err := uc.queue.PublishSourceQueued(ctx, src.ID); err != nil {
		if markErr := uc.repo.UpdateStatus(ctx, src.ID, domain.SourceFailed, err.Error()); markErr != nil {
			slog.Error("source_mark_failed_error", "source_id", src.ID, "error", markErr)
		}
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return src, nil
}

// Upload stores the file and enqueues it as a file:// source.
func (uc *IngestUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Source, error) {
	if uc.storage == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload source", errors.New("file uploads are not enabled"))
	}
	key := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, key, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	return uc.Enqueue(ctx, "file://"+key)
}

func (uc *IngestUseCase) ProcessByID(ctx context.Context, sourceID string) (*domain.IngestReport, error) {
	if err := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.process(ctx, sourceID)
	if report != nil {
		if saveErr := uc.repo.SaveReport(ctx, sourceID, *report); saveErr != nil {
			slog.Error("ingest_report_save_failed", "source_id", sourceID, "error", saveErr)
		}
	}
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceFailed, err.Error()); failErr != nil {
			return report, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return report, err
	}

	message := ""
	if report.FailedBatches > 0 {
		message = fmt.Sprintf("%d of %d batches failed", report.FailedBatches, batchCount(report.TotalChunks, uc.batchSize))
	}
	if err := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceReady, message); err != nil {
		return report, fmt.Errorf("set status=ready: %w", err)
	}
	return report, nil
}

func (uc *IngestUseCase) process(ctx context.Context, sourceID string) (*domain.IngestReport, error) {
	src, err := uc.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("fetch source by id: %w", err)
	}

	docs, err := uc.loader.Load(ctx, src.Location)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}

	chunks := uc.split(src.ID, docs)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "split source", errors.New("source produced zero chunks"))
	}

	report := &domain.IngestReport{SourceID: src.ID, TotalChunks: len(chunks)}
	total := batchCount(len(chunks), uc.batchSize)
	for start, n := 0, 1; start < len(chunks); start, n = start+uc.batchSize, n+1 {
		end := min(start+uc.batchSize, len(chunks))
		batch := chunks[start:end]

		if err := uc.uploadBatch(ctx, batch); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.FailedBatches++
			slog.Warn("ingest_batch_failed",
				"source_id", src.ID,
				"batch", n,
				"batches", total,
				"chunks", len(batch),
				"error", err,
			)
			continue
		}
		report.UploadedChunks += len(batch)
		slog.Debug("ingest_batch_uploaded", "source_id", src.ID, "batch", n, "batches", total)
	}

	if report.UploadedChunks == 0 {
		return report, domain.WrapError(domain.ErrTemporary, "upload chunks", fmt.Errorf("all %d batches failed", total))
	}
	return report, nil
}

func (uc *IngestUseCase) split(sourceID string, docs []domain.LoadedDocument) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		for _, piece := range uc.chunker.Split(doc.Text) {
			chunks = append(chunks, domain.Chunk{
				Content:    piece,
				DocumentID: sourceID,
				Source:     doc.Source,
				ChunkIndex: len(chunks),
			})
		}
	}
	return chunks
}

func (uc *IngestUseCase) uploadBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}
	return uc.executor.Execute(ctx, uploadOperation, func(callCtx context.Context) error {
		vectors, err := uc.embedder.Embed(callCtx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch))
		}
		if err := uc.store.IndexChunks(callCtx, batch, vectors); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}
		return nil
	}, uc.classifier)
}

func batchCount(chunks, size int) int {
	if size <= 0 {
		return 0
	}
	return (chunks + size - 1) / size
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "source.txt"
	}
	return base
}
