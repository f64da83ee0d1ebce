package retrieval

import (
	"sort"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

const defaultRRFK = 60

// dedupeByContent concatenates result lists in order and keeps the first
// chunk seen for each content.
func dedupeByContent(lists [][]domain.Chunk) []domain.Chunk {
	total := 0
	for _, list := range lists {
		total += len(list)
	}
	seen := make(map[string]struct{}, total)
	out := make([]domain.Chunk, 0, total)
	for _, list := range lists {
		for _, chunk := range list {
			if _, ok := seen[chunk.Content]; ok {
				continue
			}
			seen[chunk.Content] = struct{}{}
			out = append(out, chunk)
		}
	}
	return out
}

type fusedChunk struct {
	chunk domain.Chunk
	score float64
	order int
}

// fuseRRF applies Reciprocal Rank Fusion with 0-indexed ranks:
// score(chunk) = sum over lists of 1/(rank+k).
func fuseRRF(lists [][]domain.Chunk, k int) []domain.Chunk {
	if k <= 0 {
		k = defaultRRFK
	}

	acc := make(map[string]*fusedChunk)
	order := 0
	for _, list := range lists {
		for rank, chunk := range list {
			candidate, ok := acc[chunk.Content]
			if !ok {
				candidate = &fusedChunk{chunk: chunk, order: order}
				acc[chunk.Content] = candidate
				order++
			}
			candidate.score += 1.0 / float64(rank+k)
		}
	}

	fused := make([]*fusedChunk, 0, len(acc))
	for _, c := range acc {
		fused = append(fused, c)
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})

	out := make([]domain.Chunk, 0, len(fused))
	for _, c := range fused {
		chunk := c.chunk
		chunk.Score = c.score
		out = append(out, chunk)
	}
	return out
}
