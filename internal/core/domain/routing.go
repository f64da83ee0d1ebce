package domain

type ModelInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Cost        string   `json:"cost" yaml:"cost"`
	Knowledge   string   `json:"knowledge" yaml:"knowledge"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords"`
}

type RouteDecision struct {
	Query  string    `json:"query"`
	Model  ModelInfo `json:"model"`
	Method string    `json:"routing_method"`
	Error  string    `json:"error,omitempty"`
}

const (
	RouteMethodLLM     = "llm"
	RouteMethodKeyword = "keyword"
	RouteMethodDefault = "default"
)
