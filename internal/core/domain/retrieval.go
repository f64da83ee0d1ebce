package domain

// Chunk is a unit of retrieved text. Content is the identity used for
// deduplication and rank fusion; the remaining fields are provenance only.
type Chunk struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	DocumentID string  `json:"document_id,omitempty"`
	Source     string  `json:"source,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
}

type Answer struct {
	Text      string   `json:"text"`
	Strategy  Strategy `json:"strategy"`
	Phrasings []string `json:"phrasings,omitempty"`
	Sources   []Chunk  `json:"sources"`
	NoContext bool     `json:"no_context"`
}

// NoResultsAnswer is returned instead of an LLM answer when retrieval yields nothing.
const NoResultsAnswer = `No relevant documents found for your query. This could be due to:

1. Connection issues with the vector database
2. The query not matching any documents in the database
3. The vector database being empty or not properly indexed

Please try again or check your connection.`
