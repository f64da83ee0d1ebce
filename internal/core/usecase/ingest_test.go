package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/resilience"
)

type sourceRepoFake struct {
	sources  map[string]*domain.Source
	statuses []domain.SourceStatus
	messages []string
	report   *domain.IngestReport
	err      error
}

func newSourceRepoFake(sources ...*domain.Source) *sourceRepoFake {
	f := &sourceRepoFake{sources: map[string]*domain.Source{}}
	for _, src := range sources {
		f.sources[src.ID] = src
	}
	return f
}

func (f *sourceRepoFake) Create(_ context.Context, src *domain.Source) error {
	if f.err != nil {
		return f.err
	}
	copySrc := *src
	f.sources[src.ID] = &copySrc
	return nil
}

func (f *sourceRepoFake) GetByID(_ context.Context, id string) (*domain.Source, error) {
	src, ok := f.sources[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrSourceNotFound, "get source", errors.New(id))
	}
	return src, nil
}

func (f *sourceRepoFake) UpdateStatus(_ context.Context, _ string, status domain.SourceStatus, errMessage string) error {
	f.statuses = append(f.statuses, status)
	f.messages = append(f.messages, errMessage)
	return nil
}

func (f *sourceRepoFake) SaveReport(_ context.Context, _ string, report domain.IngestReport) error {
	f.report = &report
	return nil
}

type storageFake struct {
	savedKey  string
	savedBody string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type queueFake struct {
	sourceID string
	err      error
}

func (f *queueFake) PublishSourceQueued(_ context.Context, sourceID string) error {
	if f.err != nil {
		return f.err
	}
	f.sourceID = sourceID
	return nil
}

func (f *queueFake) SubscribeSourceQueued(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type loaderFake struct {
	docs []domain.LoadedDocument
	err  error
}

func (f *loaderFake) Load(context.Context, string) ([]domain.LoadedDocument, error) {
	return f.docs, f.err
}

// lineChunker splits on newlines so tests control the chunk count.
type lineChunker struct{}

func (lineChunker) Split(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

type batchEmbedderFake struct {
	failFirstBatchAlways bool
	calls                int
}

func (f *batchEmbedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failFirstBatchAlways && texts[0] == "c0" {
		return nil, errors.New("embedding service unavailable")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *batchEmbedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

type vectorStoreFake struct {
	indexed []domain.Chunk
}

func (f *vectorStoreFake) IndexChunks(_ context.Context, chunks []domain.Chunk, _ [][]float32) error {
	f.indexed = append(f.indexed, chunks...)
	return nil
}

func (f *vectorStoreFake) Search(context.Context, []float32, int) ([]domain.Chunk, error) {
	return nil, nil
}

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	})
}

func lines(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "c" + string(rune('0'+i))
	}
	return strings.Join(parts, "\n")
}

func TestEnqueueCreatesQueuedSourceAndPublishes(t *testing.T) {
	repo := newSourceRepoFake()
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, nil, queue, nil, lineChunker{}, nil, nil, IngestOptions{})

	src, err := uc.Enqueue(context.Background(), " https://docs.example.com/guide ")
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if src.ID == "" || src.Status != domain.SourceQueued || src.Location != "https://docs.example.com/guide" {
		t.Fatalf("unexpected source: %+v", src)
	}
	if queue.sourceID != src.ID {
		t.Fatalf("expected queued id %s, got %s", src.ID, queue.sourceID)
	}
}

func TestEnqueueRejectsEmptyLocation(t *testing.T) {
	uc := NewIngestUseCase(newSourceRepoFake(), nil, &queueFake{}, nil, lineChunker{}, nil, nil, IngestOptions{})
	if _, err := uc.Enqueue(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestEnqueueQueueErrorMarksSourceFailed(t *testing.T) {
	repo := newSourceRepoFake()
	uc := NewIngestUseCase(repo, nil, &queueFake{err: errors.New("queue down")}, nil, lineChunker{}, nil, nil, IngestOptions{})

	_, err := uc.Enqueue(context.Background(), "notes.md")
	if err == nil || !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
	if len(repo.statuses) != 1 || repo.statuses[0] != domain.SourceFailed {
		t.Fatalf("expected failed status, got %v", repo.statuses)
	}
}

func TestUploadSavesSanitizedFileAndEnqueues(t *testing.T) {
	repo := newSourceRepoFake()
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, storage, queue, nil, lineChunker{}, nil, nil, IngestOptions{})

	src, err := uc.Upload(context.Background(), "report 1.txt", bytes.NewBufferString("hello"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasSuffix(storage.savedKey, "_report_1.txt") || storage.savedBody != "hello" {
		t.Fatalf("unexpected storage write: key=%s body=%s", storage.savedKey, storage.savedBody)
	}
	if src.Location != "file://"+storage.savedKey {
		t.Fatalf("expected file location, got %s", src.Location)
	}
}

func TestProcessByIDUploadsInBatches(t *testing.T) {
	repo := newSourceRepoFake(&domain.Source{ID: "src-1", Location: "notes.md"})
	loader := &loaderFake{docs: []domain.LoadedDocument{{Source: "notes.md", Text: lines(5)}}}
	embedder := &batchEmbedderFake{}
	store := &vectorStoreFake{}
	uc := NewIngestUseCase(repo, nil, nil, loader, lineChunker{}, embedder, store, IngestOptions{BatchSize: 2, Executor: fastExecutor()})

	report, err := uc.ProcessByID(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if report.TotalChunks != 5 || report.UploadedChunks != 5 || report.FailedBatches != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if embedder.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", embedder.calls)
	}
	if store.indexed[4].ChunkIndex != 4 || store.indexed[4].DocumentID != "src-1" || store.indexed[4].Source != "notes.md" {
		t.Fatalf("unexpected chunk metadata: %+v", store.indexed[4])
	}
	want := []domain.SourceStatus{domain.SourceProcessing, domain.SourceReady}
	if len(repo.statuses) != 2 || repo.statuses[0] != want[0] || repo.statuses[1] != want[1] {
		t.Fatalf("unexpected statuses: %v", repo.statuses)
	}
	if repo.report == nil || repo.report.UploadedChunks != 5 {
		t.Fatalf("expected saved report, got %+v", repo.report)
	}
}

func TestProcessByIDCountsFailedBatchAndContinues(t *testing.T) {
	repo := newSourceRepoFake(&domain.Source{ID: "src-1", Location: "notes.md"})
	loader := &loaderFake{docs: []domain.LoadedDocument{{Source: "notes.md", Text: lines(4)}}}
	embedder := &batchEmbedderFake{failFirstBatchAlways: true}
	uc := NewIngestUseCase(repo, nil, nil, loader, lineChunker{}, embedder, &vectorStoreFake{}, IngestOptions{BatchSize: 2, Executor: fastExecutor()})

	report, err := uc.ProcessByID(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if report.UploadedChunks != 2 || report.FailedBatches != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if embedder.calls != 4 {
		t.Fatalf("expected 3 attempts for the failing batch plus 1, got %d", embedder.calls)
	}
	if last := repo.messages[len(repo.messages)-1]; last != "1 of 2 batches failed" {
		t.Fatalf("expected partial failure note, got %q", last)
	}
}

func TestProcessByIDDoesNotRetryPermanentBatchFailure(t *testing.T) {
	repo := newSourceRepoFake(&domain.Source{ID: "src-1", Location: "notes.md"})
	loader := &loaderFake{docs: []domain.LoadedDocument{{Source: "notes.md", Text: lines(4)}}}
	embedder := &batchEmbedderFake{failFirstBatchAlways: true}
	uc := NewIngestUseCase(repo, nil, nil, loader, lineChunker{}, embedder, &vectorStoreFake{}, IngestOptions{
		BatchSize:  2,
		Executor:   fastExecutor(),
		Classifier: resilience.RetryTemporary,
	})

	report, err := uc.ProcessByID(context.Background(), "src-1")
	if err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if report.FailedBatches != 1 || report.UploadedChunks != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected one call per batch, got %d", embedder.calls)
	}
}

func TestProcessByIDMarksFailedWhenNothingUploaded(t *testing.T) {
	repo := newSourceRepoFake(&domain.Source{ID: "src-1", Location: "notes.md"})
	loader := &loaderFake{docs: []domain.LoadedDocument{{Text: "c0"}}}
	uc := NewIngestUseCase(repo, nil, nil, loader, lineChunker{}, &batchEmbedderFake{failFirstBatchAlways: true}, &vectorStoreFake{}, IngestOptions{Executor: fastExecutor()})

	_, err := uc.ProcessByID(context.Background(), "src-1")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if repo.statuses[len(repo.statuses)-1] != domain.SourceFailed {
		t.Fatalf("expected failed status, got %v", repo.statuses)
	}
}

func TestProcessByIDFailsOnEmptySource(t *testing.T) {
	repo := newSourceRepoFake(&domain.Source{ID: "src-1", Location: "empty.md"})
	uc := NewIngestUseCase(repo, nil, nil, &loaderFake{}, lineChunker{}, &batchEmbedderFake{}, &vectorStoreFake{}, IngestOptions{})

	_, err := uc.ProcessByID(context.Background(), "src-1")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if repo.report != nil {
		t.Fatalf("expected no report for empty source")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report 1.txt":   "report_1.txt",
		"../../etc/pass": "pass",
		"отчёт.pdf":      "_____.pdf",
		"":               "source.txt",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
