package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

const (
	maxImprovedQueries = 3
	maxSubQueries      = 5
)

// listMarker matches a bullet or "1." / "2)" numbering, not leading digits of the item itself.
var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

// QueryRewriter produces alternative search keys for a user query:
// improved phrasings, decomposed sub-queries and hypothetical documents.
type QueryRewriter struct {
	client *Client
}

func NewQueryRewriter(client *Client) *QueryRewriter {
	return &QueryRewriter{client: client}
}

func (r *QueryRewriter) Improve(ctx context.Context, query string) ([]string, error) {
	raw, err := r.client.generateJSON(ctx, buildImprovePrompt(query))
	if err != nil {
		return nil, fmt.Errorf("improve query: %w", err)
	}
	items := itemsFromOutcome(parseListOutcome(raw, "queries"))
	items = dropQuery(items, query)
	if len(items) == 0 {
		return []string{query}, nil
	}
	return limit(items, maxImprovedQueries), nil
}

func (r *QueryRewriter) Decompose(ctx context.Context, query string) ([]string, error) {
	raw, err := r.client.generateJSON(ctx, buildDecompositionPrompt(query))
	if err != nil {
		return nil, fmt.Errorf("decompose query: %w", err)
	}
	items := itemsFromOutcome(parseListOutcome(raw, "sub_queries"))
	if len(items) == 0 {
		return []string{query}, nil
	}
	return limit(items, maxSubQueries), nil
}

func (r *QueryRewriter) WriteHypothetical(ctx context.Context, query string) (string, error) {
	text, err := r.client.generateText(ctx, buildHypotheticalPrompt(query))
	if err != nil {
		return "", fmt.Errorf("write hypothetical document: %w", err)
	}
	if text == "" {
		return query, nil
	}
	return text, nil
}

// parseListOutcome reads {"<key>": [...]} or a bare JSON array of strings.
// Anything else is returned as Fallback text.
func parseListOutcome(raw, key string) domain.ParseOutcome {
	trimmed := strings.TrimSpace(raw)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSONObject(trimmed)), &obj); err == nil {
		var items []string
		if field, ok := obj[key]; ok && json.Unmarshal(field, &items) == nil {
			return domain.Structured(items)
		}
	}

	var items []string
	if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
		return domain.Structured(items)
	}

	return domain.Fallback(raw)
}

func itemsFromOutcome(outcome domain.ParseOutcome) []string {
	switch outcome.Kind {
	case domain.ParseStructured:
		out := make([]string, 0, len(outcome.Items))
		for _, item := range outcome.Items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	case domain.ParseFallback:
		slog.Debug("llm_list_fallback", "chars", len(outcome.Text))
		return cleanItems(strings.Split(outcome.Text, "\n"))
	default:
		return nil
	}
}

func cleanItems(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "\":") {
			continue
		}
		line = listMarker.ReplaceAllString(line, "")
		line = strings.Trim(line, "\"'`,[] ")
		if line == "" || line == "{" || line == "}" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func dropQuery(items []string, query string) []string {
	out := items[:0]
	for _, item := range items {
		if !strings.EqualFold(item, strings.TrimSpace(query)) {
			out = append(out, item)
		}
	}
	return out
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
