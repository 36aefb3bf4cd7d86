// Package qdrant implements biblio.VectorIndex on the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nevindra/biblio"
)

const (
	// DefaultCollection is the point collection name.
	DefaultCollection = "book_chunks"

	// vectorSize matches the embedding provider's output dimensions.
	vectorSize = 1024

	// upsertBatchSize is the number of points written per request.
	upsertBatchSize = 100

	defaultTimeout = 15 * time.Second
)

// Option configures an Index.
type Option func(*Index)

// WithCollection overrides the collection name (default "book_chunks").
func WithCollection(name string) Option {
	return func(x *Index) { x.collection = name }
}

// WithAPIKey sets the api-key header sent on every request.
func WithAPIKey(key string) Option {
	return func(x *Index) { x.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client. The default has a 15s
// timeout; index calls are bounded and should not hang on a dead server.
func WithHTTPClient(c *http.Client) Option {
	return func(x *Index) { x.client = c }
}

// Index is a minimal REST client to Qdrant. It stores one point per
// book chunk with keyword-indexed book_id, tags, and authors payload
// fields so deletes and searches can filter server-side.
type Index struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

var _ biblio.VectorIndex = (*Index)(nil)

// New creates an Index for the Qdrant server at baseURL
// (e.g. "http://localhost:6333").
func New(baseURL string, opts ...Option) *Index {
	x := &Index{
		baseURL:    baseURL,
		collection: DefaultCollection,
		client:     &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// EnsureCollection creates the collection (1024-dim cosine vectors) and
// its payload indexes if the collection does not exist yet. Safe to call
// on every run.
func (x *Index) EnsureCollection(ctx context.Context) error {
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodGet, x.collectionURL("/exists"), nil, &exists); err != nil {
		return fmt.Errorf("qdrant: check collection: %w", err)
	}
	if exists.Result.Exists {
		return nil
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	if err := x.do(ctx, http.MethodPut, x.collectionURL(""), create, nil); err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}

	for _, field := range []string{"book_id", "tags", "authors"} {
		idx := map[string]any{
			"field_name":   field,
			"field_schema": "keyword",
		}
		if err := x.do(ctx, http.MethodPut, x.collectionURL("/index"), idx, nil); err != nil {
			return fmt.Errorf("qdrant: index %s: %w", field, err)
		}
	}
	return nil
}

// DeleteBook removes every point whose book_id payload matches.
func (x *Index) DeleteBook(ctx context.Context, bookID string) error {
	req := map[string]any{
		"filter": map[string]any{
			"must": []any{matchCondition("book_id", bookID)},
		},
	}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/delete"), req, nil); err != nil {
		return fmt.Errorf("qdrant: delete book %s: %w", bookID, err)
	}
	return nil
}

// Upsert writes points in batches of 100, waiting for each batch to be
// persisted before sending the next.
func (x *Index) Upsert(ctx context.Context, points []biblio.ChunkPoint) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))

		batch := make([]map[string]any, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, map[string]any{
				"id":     p.ID,
				"vector": p.Vector,
				"payload": map[string]any{
					"book_id":       p.BookID,
					"reference":     p.Reference,
					"title":         p.Title,
					"chapter_idx":   p.ChapterIdx,
					"chapter_title": p.ChapterTitle,
					"chunk_index":   p.ChunkIndex,
					"chunk_text":    p.ChunkText,
					"authors":       p.Authors,
					"tags":          p.Tags,
				},
			})
		}

		req := map[string]any{"points": batch}
		if err := x.do(ctx, http.MethodPut, x.collectionURL("/points?wait=true"), req, nil); err != nil {
			return fmt.Errorf("qdrant: upsert points: %w", err)
		}
	}
	return nil
}

// Search returns the closest points to vector. Every tag must match;
// author matches when non-empty.
func (x *Index) Search(ctx context.Context, vector []float32, tags []string, author string, limit int) ([]biblio.SemanticHit, error) {
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}

	var must []any
	for _, t := range tags {
		must = append(must, matchCondition("tags", t))
	}
	if author != "" {
		must = append(must, matchCondition("authors", author))
	}
	if len(must) > 0 {
		req["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := x.do(ctx, http.MethodPost, x.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	hits := make([]biblio.SemanticHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := biblio.SemanticHit{Score: r.Score}
		if v, ok := r.Payload["reference"].(string); ok {
			hit.Reference = v
		}
		if v, ok := r.Payload["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := r.Payload["chunk_text"].(string); ok {
			hit.ChunkText = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func matchCondition(key, value string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func (x *Index) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.baseURL, x.collection, suffix)
}

// do sends one JSON request. Non-2xx responses become *biblio.ErrHTTP.
func (x *Index) do(ctx context.Context, method, url string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &biblio.ErrHTTP{Status: resp.StatusCode, Body: string(b)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
