package biblio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// semanticBoostLimit is the number of vector hits considered when boosting
// the first page of keyword results.
const semanticBoostLimit = 10

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithSearchLogger sets the structured logger for boost degradation events.
// If not set, a no-op logger is used.
func WithSearchLogger(l *slog.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = l }
}

// Searcher combines keyword search over the catalog with a semantic boost
// from the vector index. The boost only applies to the first page of a
// non-empty query: vector hits for books the keyword search missed are
// appended after the keyword results. The embedding provider is optional;
// without one, search is keyword-only.
type Searcher struct {
	catalog   Catalog
	index     VectorIndex
	embedding EmbeddingProvider
	logger    *slog.Logger
}

// NewSearcher creates a hybrid Searcher. embedding may be nil to disable
// the semantic boost.
func NewSearcher(catalog Catalog, index VectorIndex, embedding EmbeddingProvider, opts ...SearcherOption) *Searcher {
	s := &Searcher{catalog: catalog, index: index, embedding: embedding}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = nopLogger
	}
	return s
}

// Search runs the keyword search and, on the first page of a non-empty
// query, appends semantically related books not already in the results.
// Total always counts keyword matches only, so pagination is stable
// regardless of the boost.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (SearchPage, error) {
	books, total, err := s.catalog.SearchBooks(ctx, req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("biblio: keyword search: %w", err)
	}

	if req.Page == 0 && strings.TrimSpace(req.Query) != "" && s.embedding != nil {
		books = s.boost(ctx, req, books)
	}

	return SearchPage{Books: books, Total: total}, nil
}

// boost appends vector-index hits missing from the keyword results.
// Errors are non-fatal — on failure, the keyword results pass through
// unmodified.
func (s *Searcher) boost(ctx context.Context, req SearchRequest, books []BookSummary) []BookSummary {
	embs, err := s.embedding.Embed(ctx, []string{req.Query})
	if err != nil || len(embs) == 0 {
		s.logger.Warn("semantic boost skipped", "stage", "embed", "error", err)
		return books
	}

	hits, err := s.index.Search(ctx, embs[0], req.Tags, req.Author, semanticBoostLimit)
	if err != nil {
		s.logger.Warn("semantic boost skipped", "stage", "search", "error", err)
		return books
	}

	seen := make(map[string]bool, len(books))
	for _, b := range books {
		seen[b.Reference] = true
	}

	for _, hit := range hits {
		if seen[hit.Reference] {
			continue
		}
		seen[hit.Reference] = true

		detail, err := s.catalog.GetBookByReference(ctx, hit.Reference)
		if err != nil || detail == nil {
			// Stale index entry; the point outlived its book.
			continue
		}
		books = append(books, detail.BookSummary)
	}

	return books
}
