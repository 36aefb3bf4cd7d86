package ingest

import (
	"log/slog"

	"github.com/nevindra/biblio"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLLM sets the generation provider used for book and chapter
// summaries. Without one, summaries come from the frontmatter or are
// absent.
func WithLLM(p biblio.Provider) Option {
	return func(pl *Pipeline) { pl.llm = p }
}

// WithEmbedding sets the embedding provider. Without one, chunks are not
// embedded or indexed.
func WithEmbedding(e biblio.EmbeddingProvider) Option {
	return func(pl *Pipeline) { pl.embedding = e }
}

// WithLogger sets the structured logger for import progress.
// If not set, a no-op logger is used (no output).
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) { pl.logger = l }
}
