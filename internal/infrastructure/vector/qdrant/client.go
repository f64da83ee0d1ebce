package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/multi-strategy-rag/internal/core/domain"
)

// pointNamespace makes point IDs deterministic per (document, chunk index) so
// re-ingesting a source overwrites its points instead of duplicating them.
var pointNamespace = uuid.MustParse("6f1c3a52-4f0e-4d8e-9a57-2b1f0c6d9e11")

type Client struct {
	baseURL    string
	collection string
	apiKey     string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return NewWithAPIKey(baseURL, collection, "")
}

func NewWithAPIKey(baseURL, collection, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) IndexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	return wrapTemporaryIfNeeded("qdrant upsert", c.indexChunks(ctx, chunks, vectors))
}

func (c *Client) indexChunks(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     pointID(chunk),
			Vector: vectors[i],
			Payload: map[string]any{
				"doc_id":      chunk.DocumentID,
				"source":      chunk.Source,
				"chunk_index": chunk.ChunkIndex,
				"text":        chunk.Content,
			},
		})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": points}, "upsert")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError("upsert", resp)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.Chunk, error) {
	chunks, err := c.search(ctx, queryVector, limit)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("qdrant search", err)
	}
	return chunks, nil
}

func (c *Client) search(ctx context.Context, queryVector []float32, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = 4
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPost, url, reqBody, "search")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, statusError("search", resp)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Chunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Chunk{
			Content:    getStringPayload(r.Payload, "text"),
			Score:      r.Score,
			DocumentID: getStringPayload(r.Payload, "doc_id"),
			Source:     getStringPayload(r.Payload, "source"),
			ChunkIndex: getIntPayload(r.Payload, "chunk_index"),
		})
	}
	return out, nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPut, url, reqBody, "ensure collection")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if already exists (depends on version/config).
	if resp.StatusCode == http.StatusConflict {
		c.markCollectionEnsured(vectorSize)
		return nil
	}
	if resp.StatusCode >= 300 {
		return statusError("ensure collection", resp)
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, operation string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s body: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	return resp, nil
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &StatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}

func pointID(chunk domain.Chunk) string {
	key := fmt.Sprintf("%s:%d", chunk.DocumentID, chunk.ChunkIndex)
	if chunk.DocumentID == "" {
		key = chunk.Source + "|" + chunk.Content
	}
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
