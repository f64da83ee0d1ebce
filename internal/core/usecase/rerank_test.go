package usecase

import (
	"testing"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

func TestRerankChunksChangesOrder(t *testing.T) {
	merged := []domain.Chunk{
		{DocumentID: "doc-1", Source: "generic.txt", Content: "unrelated text", Score: 0.96},
		{DocumentID: "doc-2", Source: "risk_report.txt", Content: "risk report summary", Score: 0.95},
		{DocumentID: "doc-3", Source: "other.txt", Content: "misc", Score: 0.5},
	}

	reranked := rerankChunks("risk report", merged, 3)
	if len(reranked) != 3 {
		t.Fatalf("expected 3 reranked chunks, got %d", len(reranked))
	}
	if reranked[0].DocumentID != "doc-2" {
		t.Fatalf("expected doc-2 first after rerank, got %s", reranked[0].DocumentID)
	}
	if merged[0].DocumentID != "doc-1" || merged[0].Score != 0.96 {
		t.Fatalf("input must not be mutated: %+v", merged[0])
	}
}

func TestRerankChunksKeepsTailOrder(t *testing.T) {
	merged := []domain.Chunk{
		{Content: "a", Score: 0.9},
		{Content: "b", Score: 0.8},
		{Content: "c", Score: 0.7},
		{Content: "d", Score: 0.6},
	}
	reranked := rerankChunks("d", merged, 2)
	if reranked[2].Content != "c" || reranked[3].Content != "d" {
		t.Fatalf("expected tail untouched, got %+v", reranked)
	}
}

func TestRerankChunksHandlesEmptyInput(t *testing.T) {
	if out := rerankChunks("risk", nil, 10); len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}
