package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

// RouterUseCase recommends a model for a query. The LLM is asked first; a
// failed call or an answer naming no catalog model falls back to keyword
// matching, and no keyword hit falls back to the default model.
type RouterUseCase struct {
	generator    ports.TextGenerator
	catalog      []domain.ModelInfo
	defaultModel domain.ModelInfo
}

func NewRouterUseCase(generator ports.TextGenerator, catalog []domain.ModelInfo, defaultModel string) (*RouterUseCase, error) {
	if len(catalog) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new router", errors.New("model catalog is empty"))
	}
	def, ok := findModel(catalog, defaultModel)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "new router", fmt.Errorf("default model %q is not in the catalog", defaultModel))
	}
	return &RouterUseCase{
		generator:    generator,
		catalog:      catalog,
		defaultModel: def,
	}, nil
}

func (uc *RouterUseCase) Models() []domain.ModelInfo {
	out := make([]domain.ModelInfo, len(uc.catalog))
	copy(out, uc.catalog)
	return out
}

func (uc *RouterUseCase) Route(ctx context.Context, query string) domain.RouteDecision {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.RouteDecision{
			Model:  uc.defaultModel,
			Method: domain.RouteMethodDefault,
			Error:  "query is required",
		}
	}
	if uc.generator == nil {
		return uc.routeByKeywords(query)
	}

	raw, err := uc.generator.Generate(ctx, buildRoutePrompt(uc.catalog, query))
	if err != nil {
		slog.Warn("route_llm_failed", "error", err)
		decision := uc.routeByKeywords(query)
		decision.Error = err.Error()
		return decision
	}

	outcome := uc.parseChoice(raw)
	if outcome.Kind == domain.ParseFallback {
		slog.Debug("route_llm_unparsed", "response", outcome.Text)
		return uc.routeByKeywords(query)
	}
	model, _ := findModel(uc.catalog, outcome.Items[0])
	return domain.RouteDecision{Query: query, Model: model, Method: domain.RouteMethodLLM}
}

// parseChoice finds a catalog model name in the response. Longer names are
// matched first so "gpt-4o" is not read as "gpt-4".
func (uc *RouterUseCase) parseChoice(raw string) domain.ParseOutcome {
	text := strings.ToLower(strings.TrimSpace(raw))
	names := make([]string, 0, len(uc.catalog))
	for _, m := range uc.catalog {
		names = append(names, m.Name)
	}
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		if name != "" && strings.Contains(text, strings.ToLower(name)) {
			return domain.Structured([]string{name})
		}
	}
	return domain.Fallback(raw)
}

func (uc *RouterUseCase) routeByKeywords(query string) domain.RouteDecision {
	tokens := toTokenSet(query)
	lowered := strings.ToLower(query)

	best, bestScore := -1, 0
	for i, m := range uc.catalog {
		score := 0
		for _, kw := range m.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, ok := tokens[kw]; ok || (strings.Contains(kw, " ") && strings.Contains(lowered, kw)) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return domain.RouteDecision{Query: query, Model: uc.defaultModel, Method: domain.RouteMethodDefault}
	}
	return domain.RouteDecision{Query: query, Model: uc.catalog[best], Method: domain.RouteMethodKeyword}
}

func findModel(catalog []domain.ModelInfo, name string) (domain.ModelInfo, bool) {
	for _, m := range catalog {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return domain.ModelInfo{}, false
}

func buildRoutePrompt(catalog []domain.ModelInfo, query string) string {
	var b strings.Builder
	b.WriteString("You are an expert at routing coding queries to the most appropriate LLM model.\n\nAvailable Models:\n")
	for _, m := range catalog {
		fmt.Fprintf(&b, "\n%s:\n- Cost: %s\n- Knowledge: %s\n- Description: %s\n", m.Name, m.Cost, m.Knowledge, m.Description)
	}
	b.WriteString(`
Routing Guidelines:
1. For complex debugging, optimization, architecture, or enterprise tasks prefer the high-knowledge models
2. For general coding tasks and explanations prefer the balanced models
3. For cost-sensitive simple tasks prefer the low-cost models
4. Consider the query complexity and any cost preferences mentioned

Respond with ONLY the model name that is best suited for the query.

User Query: `)
	b.WriteString(query)
	b.WriteString("\n\nRecommended Model:")
	return b.String()
}
