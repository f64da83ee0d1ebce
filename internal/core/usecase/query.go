package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

type QueryOptions struct {
	DefaultStrategy domain.Strategy
	RerankTopN      int
}

// QueryUseCase answers a question end-to-end: rewrite when the strategy needs
// phrasings, retrieve, optionally rerank, then generate.
type QueryUseCase struct {
	retriever ports.ChunkRetriever
	improver  ports.QueryImprover
	generator ports.AnswerGenerator
	opts      QueryOptions
}

func NewQueryUseCase(
	retriever ports.ChunkRetriever,
	improver ports.QueryImprover,
	generator ports.AnswerGenerator,
	opts QueryOptions,
) *QueryUseCase {
	if !opts.DefaultStrategy.Valid() {
		opts.DefaultStrategy = domain.StrategyHyDE
	}
	return &QueryUseCase{
		retriever: retriever,
		improver:  improver,
		generator: generator,
		opts:      opts,
	}
}

func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question string,
	strategy domain.Strategy,
	phrasings []string,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}
	if strategy == "" {
		strategy = uc.opts.DefaultStrategy
	}
	if !strategy.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("unknown strategy %q", strategy))
	}

	if strategy.RequiresPhrasings() && !hasText(phrasings) {
		phrasings = uc.improve(ctx, question)
	}

	chunks, err := uc.retriever.Execute(ctx, strategy, question, phrasings)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}

	answer := &domain.Answer{
		Strategy:  strategy,
		Phrasings: phrasings,
		Sources:   chunks,
	}
	if len(chunks) == 0 {
		answer.Text = domain.NoResultsAnswer
		answer.NoContext = true
		answer.Sources = []domain.Chunk{}
		return answer, nil
	}

	if uc.opts.RerankTopN > 0 {
		chunks = rerankChunks(question, chunks, uc.opts.RerankTopN)
		answer.Sources = chunks
	}

	text, err := uc.generator.GenerateAnswer(ctx, question, chunks)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	answer.Text = text
	return answer, nil
}

// improve never fails the request: without an improver, or when it errors,
// the question itself is the only phrasing.
func (uc *QueryUseCase) improve(ctx context.Context, question string) []string {
	if uc.improver == nil {
		return []string{question}
	}
	improved, err := uc.improver.Improve(ctx, question)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("query_improve_failed", "error", err)
		}
		return []string{question}
	}
	if !hasText(improved) {
		return []string{question}
	}
	return improved
}

func hasText(items []string) bool {
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			return true
		}
	}
	return false
}
