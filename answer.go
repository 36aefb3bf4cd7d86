package biblio

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
)

const (
	// ragTopK is the number of chunks retrieved as grounding context.
	ragTopK = 5
	// citationMax caps the excerpt length of a cited chunk, in runes.
	citationMax = 200
)

const librarianPrompt = "Tu es un assistant bibliothécaire. Réponds aux questions en te basant sur les extraits de livres suivants. " +
	"Cite tes sources quand c'est pertinent. Si tu ne trouves pas la réponse dans les extraits, dis-le.\n\n" +
	"Extraits :\n"

// Answerer generates grounded answers: it embeds the latest user question,
// retrieves the closest chunks across the whole library, and asks the
// provider to answer from those excerpts only.
type Answerer struct {
	index     VectorIndex
	embedding EmbeddingProvider
	provider  Provider
	markdown  goldmark.Markdown
}

// NewAnswerer creates an Answerer. embedding may be nil, in which case
// Answer returns ErrEmbeddingUnavailable.
func NewAnswerer(index VectorIndex, embedding EmbeddingProvider, provider Provider) *Answerer {
	return &Answerer{
		index:     index,
		embedding: embedding,
		provider:  provider,
		markdown:  goldmark.New(),
	}
}

// Answer answers the latest user message in history using retrieved book
// excerpts. The full history is forwarded to the provider so follow-up
// questions keep their conversational context; only the latest user
// message drives retrieval.
func (a *Answerer) Answer(ctx context.Context, history []ChatMessage) (Answer, error) {
	question := lastUserMessage(history)
	if question == "" {
		return Answer{}, ErrNoUserMessage
	}
	if a.embedding == nil {
		return Answer{}, ErrEmbeddingUnavailable
	}

	embs, err := a.embedding.Embed(ctx, []string{question})
	if err != nil {
		return Answer{}, fmt.Errorf("biblio: embed question: %w", err)
	}
	if len(embs) == 0 {
		return Answer{}, fmt.Errorf("biblio: embed question: no embedding returned")
	}

	hits, err := a.index.Search(ctx, embs[0], nil, "", ragTopK)
	if err != nil {
		return Answer{}, fmt.Errorf("biblio: retrieve context: %w", err)
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, SystemMessage(librarianPrompt+contextBlock(hits)))
	messages = append(messages, history...)

	text, err := a.provider.Chat(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("biblio: generate answer: %w", err)
	}

	var buf bytes.Buffer
	if err := a.markdown.Convert([]byte(text), &buf); err != nil {
		return Answer{}, fmt.Errorf("biblio: render answer: %w", err)
	}

	return Answer{
		Text:    text,
		HTML:    buf.String(),
		Sources: citations(hits),
	}, nil
}

// lastUserMessage returns the content of the most recent user message,
// or "" when there is none.
func lastUserMessage(history []ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}

// contextBlock formats retrieved chunks as numbered source sections.
func contextBlock(hits []SemanticHit) string {
	var b strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&b, "[Source %d: %s - %s]\n%s\n\n", i+1, hit.Title, hit.Reference, hit.ChunkText)
	}
	return b.String()
}

// citations converts hits into sources, one per book, keeping the
// first (closest) chunk and truncating its excerpt.
func citations(hits []SemanticHit) []Source {
	seen := make(map[string]bool, len(hits))
	var sources []Source
	for _, hit := range hits {
		if seen[hit.Reference] {
			continue
		}
		seen[hit.Reference] = true
		sources = append(sources, Source{
			Reference: hit.Reference,
			Title:     hit.Title,
			ChunkText: truncateRunes(hit.ChunkText, citationMax),
		})
	}
	return sources
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
