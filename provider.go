package biblio

import "context"

// Provider abstracts the text generation backend.
type Provider interface {
	// Chat sends the conversation and returns the assistant's reply text.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	// Name returns the provider name (e.g. "mistral").
	Name() string
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}
