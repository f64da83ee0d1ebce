package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

// rerankChunks reorders the first topN merged chunks by a blend of their
// normalized retrieval score, query token overlap and a source-name hit.
// Chunks past topN keep their order.
func rerankChunks(question string, merged []domain.Chunk, topN int) []domain.Chunk {
	if len(merged) == 0 {
		return merged
	}
	if topN <= 0 || topN > len(merged) {
		topN = len(merged)
	}

	head := make([]domain.Chunk, topN)
	copy(head, merged[:topN])
	queryTokens := toTokenSet(question)

	minScore := head[0].Score
	maxScore := head[0].Score
	for _, chunk := range head[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}

	rangeScore := maxScore - minScore
	normalize := func(v float64) float64 {
		if rangeScore <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / rangeScore
	}

	for i := range head {
		normalized := normalize(head[i].Score)
		overlap := tokenOverlap(queryTokens, toTokenSet(head[i].Content))
		sourceBoost := sourceTokenHit(queryTokens, head[i].Source)
		head[i].Score = 0.60*normalized + 0.30*overlap + 0.10*sourceBoost
	}

	sort.SliceStable(head, func(i, j int) bool {
		return head[i].Score > head[j].Score
	})

	if topN == len(merged) {
		return head
	}

	out := make([]domain.Chunk, 0, len(merged))
	out = append(out, head...)
	out = append(out, merged[topN:]...)
	return out
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func sourceTokenHit(query map[string]struct{}, source string) float64 {
	if len(query) == 0 || source == "" {
		return 0
	}
	source = strings.ToLower(source)
	for token := range query {
		if len([]rune(token)) < 3 {
			continue
		}
		if strings.Contains(source, token) {
			return 1
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}
