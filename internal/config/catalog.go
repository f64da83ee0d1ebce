package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

type modelCatalogFile struct {
	Models []domain.ModelInfo `yaml:"models"`
}

// DefaultModelCatalog is used when MODEL_CATALOG_PATH is unset.
func DefaultModelCatalog() []domain.ModelInfo {
	return []domain.ModelInfo{
		{
			Name:        "gpt-4",
			Cost:        "high",
			Knowledge:   "excellent",
			Description: "Best for complex coding tasks, debugging, and detailed explanations",
			Keywords:    []string{"debug", "debugging", "optimize", "optimization", "architecture", "enterprise", "complex"},
		},
		{
			Name:        "gpt-3.5-turbo",
			Cost:        "medium",
			Knowledge:   "good",
			Description: "Good for general coding tasks and explanations",
			Keywords:    []string{"explain", "example", "how", "function"},
		},
		{
			Name:        "claude-3-opus",
			Cost:        "high",
			Knowledge:   "excellent",
			Description: "Excellent for complex reasoning and coding tasks",
			Keywords:    []string{"reasoning", "analyze", "analysis", "design", "tradeoffs"},
		},
		{
			Name:        "claude-3-sonnet",
			Cost:        "medium",
			Knowledge:   "good",
			Description: "Good balance of cost and performance for coding",
			Keywords:    []string{"refactor", "review", "balance"},
		},
		{
			Name:        "gemini-pro",
			Cost:        "low",
			Knowledge:   "good",
			Description: "Cost-effective option for coding tasks",
			Keywords:    []string{"budget", "affordable", "cost"},
		},
		{
			Name:        "llama-3.1-8b",
			Cost:        "very_low",
			Knowledge:   "basic",
			Description: "Basic coding assistance, good for simple tasks",
			Keywords:    []string{"simple", "basic", "cheap", "quick", "hello world"},
		},
	}
}

// LoadModelCatalog reads a YAML catalog of the form
//
//	models:
//	  - name: gpt-4
//	    cost: high
//	    knowledge: excellent
//	    description: ...
//	    keywords: [debug, architecture]
//
// An empty path returns DefaultModelCatalog.
func LoadModelCatalog(path string) ([]domain.ModelInfo, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultModelCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var file modelCatalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, fmt.Errorf("model catalog %s has no models", path)
	}
	seen := make(map[string]struct{}, len(file.Models))
	for i, m := range file.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("model catalog entry %d has no name", i)
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			return nil, fmt.Errorf("model catalog has duplicate model %q", name)
		}
		seen[strings.ToLower(name)] = struct{}{}
		file.Models[i].Name = name
	}
	return file.Models, nil
}
