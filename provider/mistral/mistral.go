// Package mistral implements biblio.Provider and biblio.EmbeddingProvider
// on the Mistral API (chat completions and embeddings).
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nevindra/biblio"
)

const (
	// DefaultBaseURL is the Mistral API base. The /chat/completions and
	// /embeddings paths are appended automatically.
	DefaultBaseURL = "https://api.mistral.ai/v1"

	// DefaultChatModel is the generation model.
	DefaultChatModel = "mistral-small-latest"

	// DefaultEmbedModel produces 1024-dimension vectors.
	DefaultEmbedModel = "mistral-embed"

	embedDimensions = 1024

	// embedBatchSize is the maximum number of inputs per embeddings
	// request accepted by the API.
	embedBatchSize = 16
)

// Option configures a Provider or an Embedding.
type Option func(*config)

type config struct {
	baseURL string
	model   string
	client  *http.Client
}

// WithBaseURL overrides the API base URL (e.g. a proxy or test server).
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *config) { c.model = m }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.client = hc }
}

func buildConfig(model string, opts []Option) config {
	c := config{
		baseURL: DefaultBaseURL,
		model:   model,
		client:  &http.Client{},
	}
	for _, o := range opts {
		o(&c)
	}
	return c
}

// --- Chat provider ---

// Provider implements biblio.Provider on the Mistral chat completions API.
type Provider struct {
	apiKey string
	cfg    config
}

var _ biblio.Provider = (*Provider)(nil)

// New creates a Mistral chat provider.
func New(apiKey string, opts ...Option) *Provider {
	return &Provider{apiKey: apiKey, cfg: buildConfig(DefaultChatModel, opts)}
}

// Name returns "mistral".
func (p *Provider) Name() string { return "mistral" }

// --- Wire types ---

type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message Message `json:"message"`
}

type EmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type EmbedResponse struct {
	Data []EmbedData `json:"data"`
}

type EmbedData struct {
	Embedding []float32 `json:"embedding"`
}

// Chat sends the conversation and returns the first choice's content.
func (p *Provider) Chat(ctx context.Context, messages []biblio.ChatMessage) (string, error) {
	msgs := make([]Message, len(messages))
	for i, m := range messages {
		msgs[i] = Message{Role: m.Role, Content: m.Content}
	}

	var chatResp ChatResponse
	err := postJSON(ctx, p.cfg.client, p.cfg.baseURL+"/chat/completions", p.apiKey,
		ChatRequest{Model: p.cfg.model, Messages: msgs}, &chatResp)
	if err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", &biblio.ErrLLM{Provider: "mistral", Message: "no choices in response"}
	}
	return chatResp.Choices[0].Message.Content, nil
}

// --- Embedding provider ---

// Embedding implements biblio.EmbeddingProvider on the Mistral
// embeddings API. Inputs are split into batches of 16 per request; the
// returned vectors keep input order across batches.
type Embedding struct {
	apiKey string
	cfg    config
}

var _ biblio.EmbeddingProvider = (*Embedding)(nil)

// NewEmbedding creates a Mistral embedding provider.
func NewEmbedding(apiKey string, opts ...Option) *Embedding {
	return &Embedding{apiKey: apiKey, cfg: buildConfig(DefaultEmbedModel, opts)}
}

// Name returns "mistral".
func (e *Embedding) Name() string { return "mistral" }

// Dimensions returns the embedding vector size (1024).
func (e *Embedding) Dimensions() int { return embedDimensions }

// Embed returns one vector per text, in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		var embedResp EmbedResponse
		err := postJSON(ctx, e.cfg.client, e.cfg.baseURL+"/embeddings", e.apiKey,
			EmbedRequest{Model: e.cfg.model, Input: texts[start:end]}, &embedResp)
		if err != nil {
			return nil, err
		}

		if len(embedResp.Data) != end-start {
			return nil, &biblio.ErrLLM{
				Provider: "mistral",
				Message:  fmt.Sprintf("got %d embeddings for %d inputs", len(embedResp.Data), end-start),
			}
		}
		for _, d := range embedResp.Data {
			all = append(all, d.Embedding)
		}
	}
	return all, nil
}

// postJSON sends a JSON POST and decodes the response into out.
// Non-2xx responses become *biblio.ErrHTTP so retry middleware can
// inspect the status and Retry-After.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &biblio.ErrLLM{Provider: "mistral", Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &biblio.ErrLLM{Provider: "mistral", Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("mistral: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return &biblio.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(b),
			RetryAfter: biblio.ParseRetryAfter(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &biblio.ErrLLM{Provider: "mistral", Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
