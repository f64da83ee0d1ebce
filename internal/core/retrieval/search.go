package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
	"github.com/kirillkom/multi-strategy-rag/internal/infrastructure/resilience"
)

const searchOperation = "vector.search"

// Searcher is the search primitive as seen by strategies. It never fails: an
// empty result means "no results or search unavailable".
type Searcher interface {
	Search(ctx context.Context, query string) []domain.Chunk
}

// RetryingSearcher wraps a failing ChunkSearcher with bounded retry and
// exponential backoff, downgrading exhausted retries to an empty result.
type RetryingSearcher struct {
	inner      ports.ChunkSearcher
	executor   *resilience.Executor
	classifier resilience.ErrorClassifier
}

// NewRetryingSearcher retries failures the classifier marks retryable; a nil
// classifier retries everything except cancellation.
func NewRetryingSearcher(inner ports.ChunkSearcher, executor *resilience.Executor, classifier resilience.ErrorClassifier) *RetryingSearcher {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig(), resilience.WithObserver(LogObserver{}))
	}
	if classifier == nil {
		classifier = resilience.RetryAll
	}
	return &RetryingSearcher{
		inner:      inner,
		executor:   executor,
		classifier: classifier,
	}
}

func (s *RetryingSearcher) Search(ctx context.Context, query string) []domain.Chunk {
	var out []domain.Chunk
	err := s.executor.Execute(ctx, searchOperation, func(callCtx context.Context) error {
		chunks, err := s.inner.Search(callCtx, query)
		if err != nil {
			return err
		}
		out = chunks
		return nil
	}, s.classifier)
	if err != nil {
		slog.Warn("search_unavailable",
			"query", query,
			"circuit_open", resilience.IsCircuitOpen(err),
			"error", err,
		)
		return nil
	}
	return out
}

// LogObserver reports search attempts and failures through slog.
type LogObserver struct{}

func (LogObserver) OnAttempt(operation string, attempt int) {
	slog.Debug("search_attempt", "operation", operation, "attempt", attempt)
}

func (LogObserver) OnFailure(operation string, attempt int, err error, retryIn time.Duration) {
	slog.Warn("search_failed",
		"operation", operation,
		"attempt", attempt,
		"retry_in_ms", retryIn.Milliseconds(),
		"error", err,
	)
}

// Observers fans a single notification out to several observers.
type Observers []resilience.Observer

func (o Observers) OnAttempt(operation string, attempt int) {
	for _, observer := range o {
		observer.OnAttempt(operation, attempt)
	}
}

func (o Observers) OnFailure(operation string, attempt int, err error, retryIn time.Duration) {
	for _, observer := range o {
		observer.OnFailure(operation, attempt, err, retryIn)
	}
}
