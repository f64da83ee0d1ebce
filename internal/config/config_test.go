package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	for _, key := range []string{
		"CHUNK_SIZE", "CHUNK_OVERLAP", "INGEST_BATCH_SIZE", "RAG_TOP_K", "RAG_DEFAULT_STRATEGY",
		"RAG_FUSION_RRF_K", "RAG_RERANK_TOP_N", "SEARCH_MAX_ATTEMPTS", "SEARCH_BASE_DELAY",
		"SEARCH_MAX_DELAY", "SEARCH_BREAKER_ENABLED", "RETRIEVAL_PARALLEL", "RETRIEVAL_MAX_PARALLEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 || cfg.IngestBatchSize != 10 {
		t.Fatalf("unexpected ingest defaults: %d/%d/%d", cfg.ChunkSize, cfg.ChunkOverlap, cfg.IngestBatchSize)
	}
	if cfg.RAGTopK != 4 || cfg.RAGDefaultStrategy != "hyde" || cfg.RAGFusionRRFK != 60 || cfg.RAGRerankTopN != 0 {
		t.Fatalf("unexpected rag defaults: %+v", cfg)
	}
	if cfg.SearchMaxAttempts != 3 || cfg.SearchBaseDelay != 2*time.Second || cfg.SearchMaxDelay != 30*time.Second {
		t.Fatalf("unexpected search retry defaults: %d %s %s", cfg.SearchMaxAttempts, cfg.SearchBaseDelay, cfg.SearchMaxDelay)
	}
	if cfg.SearchBreakerEnabled || cfg.RetrievalParallel || cfg.RetrievalMaxParallel != 4 {
		t.Fatalf("unexpected concurrency defaults: %+v", cfg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_DEFAULT_STRATEGY", "rank_fusion")
	t.Setenv("RAG_FUSION_RRF_K", "75")
	t.Setenv("SEARCH_BASE_DELAY", "250ms")
	t.Setenv("SEARCH_MAX_DELAY", "5")
	t.Setenv("RETRIEVAL_PARALLEL", "true")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RAG_TOP_K", "not-a-number")

	cfg := Load()
	if cfg.RAGDefaultStrategy != "rank_fusion" || cfg.RAGFusionRRFK != 75 {
		t.Fatalf("unexpected rag overrides: %+v", cfg)
	}
	if cfg.SearchBaseDelay != 250*time.Millisecond || cfg.SearchMaxDelay != 5*time.Second {
		t.Fatalf("unexpected delays: %s %s", cfg.SearchBaseDelay, cfg.SearchMaxDelay)
	}
	if !cfg.RetrievalParallel || cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.RAGTopK != 4 {
		t.Fatalf("expected invalid int to fall back to 4, got %d", cfg.RAGTopK)
	}
}

func TestLoadModelCatalogDefaults(t *testing.T) {
	models, err := LoadModelCatalog("")
	if err != nil {
		t.Fatalf("LoadModelCatalog() error = %v", err)
	}
	if len(models) != 6 || models[0].Name != "gpt-4" || models[5].Name != "llama-3.1-8b" {
		t.Fatalf("unexpected default catalog: %+v", models)
	}
}

func TestLoadModelCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	body := `models:
  - name: " qwen2.5-coder "
    cost: low
    knowledge: good
    description: Local coder
    keywords: [refactor, tests]
  - name: deepseek-r1
    cost: medium
    knowledge: excellent
    description: Reasoning
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	models, err := LoadModelCatalog(path)
	if err != nil {
		t.Fatalf("LoadModelCatalog() error = %v", err)
	}
	if len(models) != 2 || models[0].Name != "qwen2.5-coder" || len(models[0].Keywords) != 2 {
		t.Fatalf("unexpected catalog: %+v", models)
	}
}

func TestLoadModelCatalogRejectsDuplicatesAndEmpty(t *testing.T) {
	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.yaml")
	_ = os.WriteFile(dup, []byte("models:\n  - name: a\n  - name: A\n"), 0o600)
	if _, err := LoadModelCatalog(dup); err == nil {
		t.Fatalf("expected duplicate error")
	}
	empty := filepath.Join(dir, "empty.yaml")
	_ = os.WriteFile(empty, []byte("models: []\n"), 0o600)
	if _, err := LoadModelCatalog(empty); err == nil {
		t.Fatalf("expected empty catalog error")
	}
}
