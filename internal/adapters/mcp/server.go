package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
	"github.com/kirillkom/multi-strategy-rag/internal/core/ports"
)

type Deps struct {
	Retriever ports.ChunkRetriever
	QueryUC   ports.QueryService
	// RouterUC is optional; the route_query tool is registered only when set.
	RouterUC        ports.QueryRouter
	DefaultStrategy string
}

func NewServer(name, version string, deps Deps) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Retrieval server: search a document collection with fanout, rank_fusion, decomposition or hyde strategies."),
	)
	h := newHandlers(deps)

	s.AddTool(retrieveTool(), h.retrieve)
	s.AddTool(answerTool(), h.answer)
	if deps.RouterUC != nil {
		s.AddTool(routeTool(), h.route)
	}
	return s
}

func strategyOption() mcp.ToolOption {
	return mcp.WithString("strategy",
		mcp.Description("Retrieval strategy: fanout, rank_fusion, decomposition or hyde (1-4 also accepted)."),
	)
}

func phrasingsOption() mcp.ToolOption {
	return mcp.WithArray("phrasings",
		mcp.Description("Alternative phrasings of the query; used by fanout and rank_fusion."),
		mcp.WithStringItems(),
	)
}

func retrieveTool() mcp.Tool {
	return mcp.NewTool("retrieve",
		mcp.WithDescription("Return the document chunks the chosen strategy retrieves for a query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query.")),
		strategyOption(),
		phrasingsOption(),
	)
}

func answerTool() mcp.Tool {
	return mcp.NewTool("answer",
		mcp.WithDescription("Answer a question from retrieved context."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer.")),
		strategyOption(),
		phrasingsOption(),
	)
}

func routeTool() mcp.Tool {
	return mcp.NewTool("route_query",
		mcp.WithDescription("Recommend the most suitable language model for a query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query to route.")),
	)
}

type handlers struct {
	deps            Deps
	defaultStrategy domain.Strategy
}

func newHandlers(deps Deps) *handlers {
	def, err := domain.ParseStrategy(deps.DefaultStrategy)
	if err != nil {
		def = domain.StrategyHyDE
	}
	return &handlers{deps: deps, defaultStrategy: def}
}

func (h *handlers) strategy(req mcp.CallToolRequest) (domain.Strategy, error) {
	raw := req.GetString("strategy", "")
	if strings.TrimSpace(raw) == "" {
		return h.defaultStrategy, nil
	}
	return domain.ParseStrategy(raw)
}

func (h *handlers) retrieve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategy, err := h.strategy(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	chunks, err := h.deps.Retriever.Execute(ctx, strategy, query, req.GetStringSlice("phrasings", nil))
	if err != nil {
		slog.Error("mcp_retrieve_failed", "strategy", strategy, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("retrieve failed: %v", err)), nil
	}
	if len(chunks) == 0 {
		return mcp.NewToolResultText("No relevant chunks found."), nil
	}
	return mcp.NewToolResultText(formatChunks(chunks)), nil
}

func (h *handlers) answer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	strategy, err := h.strategy(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := h.deps.QueryUC.Answer(ctx, question, strategy, req.GetStringSlice("phrasings", nil))
	if err != nil {
		slog.Error("mcp_answer_failed", "strategy", strategy, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func (h *handlers) route(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decision := h.deps.RouterUC.Route(ctx, query)
	payload, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func formatChunks(chunks []domain.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] score=%.4f", i+1, c.Score)
		if c.Source != "" {
			fmt.Fprintf(&b, " source=%s", c.Source)
		}
		b.WriteString("\n")
		b.WriteString(c.Content)
	}
	return b.String()
}
