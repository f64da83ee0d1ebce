package domain

import (
	"fmt"
	"strings"
)

type Strategy string

const (
	StrategyFanout        Strategy = "fanout"
	StrategyRankFusion    Strategy = "rank_fusion"
	StrategyDecomposition Strategy = "decomposition"
	StrategyHyDE          Strategy = "hyde"
)

type StrategyInfo struct {
	Strategy    Strategy `json:"strategy"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

var strategyCatalog = []StrategyInfo{
	{StrategyFanout, "Parallel Query (FANOUT)", "Searches every phrasing and keeps unique chunks in first-seen order."},
	{StrategyRankFusion, "Rank Fusion", "Combines per-phrasing rankings with Reciprocal Rank Fusion."},
	{StrategyDecomposition, "Query Decomposition", "Splits a complex question into sub-queries and merges their results."},
	{StrategyHyDE, "Hypothetical Document Embedding (HyDE)", "Searches with a generated hypothetical answer instead of the raw query."},
}

func AllStrategies() []StrategyInfo {
	out := make([]StrategyInfo, len(strategyCatalog))
	copy(out, strategyCatalog)
	return out
}

// RequiresPhrasings reports whether the strategy consumes caller-supplied phrasings.
func (s Strategy) RequiresPhrasings() bool {
	return s == StrategyFanout || s == StrategyRankFusion
}

func (s Strategy) Valid() bool {
	switch s {
	case StrategyFanout, StrategyRankFusion, StrategyDecomposition, StrategyHyDE:
		return true
	default:
		return false
	}
}

// ParseStrategy accepts strategy names (case-insensitive, "-" or "_") and the
// numeric menu choices 1-4.
func ParseStrategy(raw string) (Strategy, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "-", "_")
	switch v {
	case "1", "fanout", "parallel", "parallel_query":
		return StrategyFanout, nil
	case "2", "rank_fusion", "rrf", "fusion":
		return StrategyRankFusion, nil
	case "3", "decomposition", "decompose":
		return StrategyDecomposition, nil
	case "4", "hyde":
		return StrategyHyDE, nil
	}
	return "", WrapError(ErrInvalidInput, "parse strategy", fmt.Errorf("unknown strategy %q", raw))
}
