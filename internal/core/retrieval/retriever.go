package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

type Config struct {
	// RRFK is the Reciprocal Rank Fusion smoothing constant.
	RRFK int
	// Parallel issues the per-phrasing searches concurrently.
	Parallel bool
	// MaxParallel caps concurrent searches in parallel mode.
	MaxParallel int
}

// Retriever runs one of the four retrieval strategies over a Searcher.
// It holds no per-call state.
type Retriever struct {
	searcher   Searcher
	decomposer ports.QueryDecomposer
	writer     ports.HypotheticalWriter
	cfg        Config
}

func NewRetriever(
	searcher Searcher,
	decomposer ports.QueryDecomposer,
	writer ports.HypotheticalWriter,
	cfg Config,
) *Retriever {
	if cfg.RRFK <= 0 {
		cfg.RRFK = defaultRRFK
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	return &Retriever{
		searcher:   searcher,
		decomposer: decomposer,
		writer:     writer,
		cfg:        cfg,
	}
}

// Execute validates the request and routes it to the strategy implementation.
func (r *Retriever) Execute(
	ctx context.Context,
	strategy domain.Strategy,
	query string,
	phrasings []string,
) ([]domain.Chunk, error) {
	if !strategy.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("unknown strategy %q", strategy))
	}
	phrasings = cleanPhrasings(phrasings)
	if strategy.RequiresPhrasings() && len(phrasings) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("strategy %s requires phrasings", strategy))
	}
	if !strategy.RequiresPhrasings() && strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("strategy %s requires a query", strategy))
	}

	switch strategy {
	case domain.StrategyFanout:
		return r.Fanout(ctx, phrasings), nil
	case domain.StrategyRankFusion:
		return r.RankFusion(ctx, phrasings), nil
	case domain.StrategyDecomposition:
		return r.Decomposition(ctx, query)
	default:
		return r.HyDE(ctx, query)
	}
}

// Fanout searches every phrasing and merges results, keeping the first
// occurrence of each content.
func (r *Retriever) Fanout(ctx context.Context, phrasings []string) []domain.Chunk {
	return dedupeByContent(r.searchAll(ctx, phrasings))
}

// RankFusion merges per-phrasing rankings with Reciprocal Rank Fusion.
func (r *Retriever) RankFusion(ctx context.Context, phrasings []string) []domain.Chunk {
	return fuseRRF(r.searchAll(ctx, phrasings), r.cfg.RRFK)
}

// Decomposition splits the query into sub-queries and merges their results
// exactly like Fanout. Decomposer failures propagate.
func (r *Retriever) Decomposition(ctx context.Context, query string) ([]domain.Chunk, error) {
	if r.decomposer == nil {
		return nil, fmt.Errorf("decomposition: no decomposer configured")
	}
	subQueries, err := r.decomposer.Decompose(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("decompose query: %w", err)
	}
	subQueries = cleanPhrasings(subQueries)
	slog.Debug("query_decomposed", "query", query, "sub_queries", len(subQueries))
	return r.Fanout(ctx, subQueries), nil
}

// HyDE searches once, using a generated hypothetical answer as the search key.
func (r *Retriever) HyDE(ctx context.Context, query string) ([]domain.Chunk, error) {
	if r.writer == nil {
		return nil, fmt.Errorf("hyde: no hypothetical writer configured")
	}
	hypothetical, err := r.writer.WriteHypothetical(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("write hypothetical document: %w", err)
	}
	return r.searcher.Search(ctx, hypothetical), nil
}

// searchAll returns one result list per phrasing, indexed by phrasing position
// regardless of completion order.
func (r *Retriever) searchAll(ctx context.Context, phrasings []string) [][]domain.Chunk {
	results := make([][]domain.Chunk, len(phrasings))
	if !r.cfg.Parallel || len(phrasings) < 2 {
		for i, phrasing := range phrasings {
			results[i] = r.searcher.Search(ctx, phrasing)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(r.cfg.MaxParallel)
	for i, phrasing := range phrasings {
		g.Go(func() error {
			results[i] = r.searcher.Search(ctx, phrasing)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func cleanPhrasings(phrasings []string) []string {
	out := make([]string, 0, len(phrasings))
	for _, p := range phrasings {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
