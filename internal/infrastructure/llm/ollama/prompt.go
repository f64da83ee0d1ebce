package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

func buildImprovePrompt(query string) string {
	return fmt.Sprintf(`You improve search queries for a documentation assistant.
Write 3 new queries related to the user query. Add context and anticipate what the user is looking for.
Do not repeat the user query.

Example:
user query: "what is a fs module"
{"queries": ["What is module system in Node.js?", "What is the fs module in Node.js and how do I use it?", "What are the common methods in the fs module of Node.js?"]}

Return strict JSON object {"queries": [string, string, string]}. No markdown, no extra keys.

User query: %s
`, query)
}

func buildDecompositionPrompt(query string) string {
	return fmt.Sprintf(`You break down complex queries into simpler sub-queries for document retrieval.
Decompose the query into 3-5 focused sub-queries, each addressing a different aspect and simpler than the original.

Example:
user query: "Compare the performance and security features of React vs Vue, and which one is better for enterprise applications?"
{"sub_queries": ["What are the performance characteristics of React?", "What are the security features of React?", "What are the performance characteristics of Vue?", "What are the security features of Vue?", "React vs Vue comparison for enterprise applications"]}

Return strict JSON object {"sub_queries": [string, ...]}. No markdown, no extra keys.

User query: %s
`, query)
}

func buildHypotheticalPrompt(query string) string {
	return fmt.Sprintf(`Imagine you are an expert writing a detailed explanation on the topic: '%s'
Your response should be comprehensive and include all key points that would be found in the top search result.
`, query)
}

func buildAnswerPrompt(question string, chunks []domain.Chunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] source=%s score=%.4f\n%s\n\n",
			idx+1,
			chunk.Source,
			chunk.Score,
			chunk.Content,
		))
	}

	return fmt.Sprintf(`Answer the user question from the documentation context below.
Answer in the same language as the question and be comprehensive and well structured.
If the context is insufficient, say it directly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}
