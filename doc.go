// Package biblio is the core of a book-library service: it ingests
// frontmatter-annotated markdown books, indexes their content for hybrid
// keyword + semantic search, and answers reader questions with
// retrieval-augmented generation over the indexed chunks.
//
// # Quick Start
//
// Wire the production implementations and run an import:
//
//	llm := mistral.New(apiKey)
//	embedding := mistral.NewEmbedding(apiKey)
//	catalog := postgres.New(pool)
//	index := qdrant.New(qdrantURL)
//
//	pipeline := ingest.New(catalog, index,
//		ingest.WithLLM(llm),
//		ingest.WithEmbedding(embedding),
//	)
//	report, err := pipeline.RunDir(ctx, "books")
//
// Then search and chat:
//
//	searcher := biblio.NewSearcher(catalog, index, embedding)
//	page, err := searcher.Search(ctx, biblio.SearchRequest{Query: "potager"})
//
//	answerer := biblio.NewAnswerer(index, embedding, llm)
//	answer, err := answerer.Answer(ctx, history)
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [Catalog] — relational book store with full-text search
//   - [VectorIndex] — chunk-level vector store with payload filters
//   - [Provider] — text generation backend
//   - [EmbeddingProvider] — text-to-vector embedding
//
// # Included Implementations
//
// Providers: provider/mistral (Mistral chat + embeddings).
// Stores: store/postgres (catalog), store/qdrant (vector index).
//
// See the cmd/biblio directory for a complete reference binary.
package biblio
