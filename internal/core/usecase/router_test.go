package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

type textGeneratorFake struct {
	out    string
	err    error
	prompt string
}

func (f *textGeneratorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func testCatalog() []domain.ModelInfo {
	return []domain.ModelInfo{
		{Name: "gpt-4", Cost: "high", Keywords: []string{"debug", "architecture"}},
		{Name: "gpt-4o", Cost: "high"},
		{Name: "gpt-3.5-turbo", Cost: "medium", Keywords: []string{"explain"}},
		{Name: "llama-3.1-8b", Cost: "very_low", Keywords: []string{"simple", "cheap", "hello world"}},
	}
}

func newRouter(t *testing.T, gen *textGeneratorFake) *RouterUseCase {
	t.Helper()
	var uc *RouterUseCase
	var err error
	if gen == nil {
		uc, err = NewRouterUseCase(nil, testCatalog(), "gpt-3.5-turbo")
	} else {
		uc, err = NewRouterUseCase(gen, testCatalog(), "gpt-3.5-turbo")
	}
	if err != nil {
		t.Fatalf("NewRouterUseCase() error = %v", err)
	}
	return uc
}

func TestRouteUsesLLMChoice(t *testing.T) {
	gen := &textGeneratorFake{out: "  GPT-4o \n"}
	decision := newRouter(t, gen).Route(context.Background(), "design a distributed cache")

	if decision.Method != domain.RouteMethodLLM || decision.Model.Name != "gpt-4o" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
	if !strings.Contains(gen.prompt, "llama-3.1-8b:") || !strings.Contains(gen.prompt, "design a distributed cache") {
		t.Fatalf("prompt misses catalog or query: %s", gen.prompt)
	}
}

func TestRouteFallsBackToKeywordsOnUnparseableAnswer(t *testing.T) {
	gen := &textGeneratorFake{out: "I would pick something cheap"}
	decision := newRouter(t, gen).Route(context.Background(), "help me debug this architecture")

	if decision.Method != domain.RouteMethodKeyword || decision.Model.Name != "gpt-4" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestRouteFallsBackWithErrorWhenLLMFails(t *testing.T) {
	gen := &textGeneratorFake{err: errors.New("llm down")}
	decision := newRouter(t, gen).Route(context.Background(), "print hello world")

	if decision.Method != domain.RouteMethodKeyword || decision.Model.Name != "llama-3.1-8b" || decision.Error != "llm down" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestRouteWithoutKeywordHitUsesDefault(t *testing.T) {
	decision := newRouter(t, nil).Route(context.Background(), "quantum chromodynamics")
	if decision.Method != domain.RouteMethodDefault || decision.Model.Name != "gpt-3.5-turbo" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestRouteEmptyQuery(t *testing.T) {
	decision := newRouter(t, nil).Route(context.Background(), " ")
	if decision.Method != domain.RouteMethodDefault || decision.Error == "" {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestNewRouterUseCaseValidatesCatalog(t *testing.T) {
	if _, err := NewRouterUseCase(nil, nil, "x"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty catalog, got %v", err)
	}
	if _, err := NewRouterUseCase(nil, testCatalog(), "missing"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown default, got %v", err)
	}
}

func TestModelsReturnsCopy(t *testing.T) {
	uc := newRouter(t, nil)
	models := uc.Models()
	models[0].Name = "mutated"
	if uc.Models()[0].Name != "gpt-4" {
		t.Fatalf("catalog must not be mutated through Models()")
	}
}
