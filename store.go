package biblio

import "context"

// Catalog abstracts the relational book store.
type Catalog interface {
	// FindBookByReference returns the stored id and fingerprint for a
	// reference, or nil when the book is unknown.
	FindBookByReference(ctx context.Context, reference string) (*BookRef, error)
	// UpsertBook inserts or fully replaces a book record, including all
	// of its child collections (authors, tags, reseller URLs). Returns
	// the book id.
	UpsertBook(ctx context.Context, rec BookRecord) (string, error)
	// ReplaceChapterSummaries deletes and re-inserts the chapter
	// summaries of a book. Summaries with empty text are skipped.
	ReplaceChapterSummaries(ctx context.Context, bookID string, summaries []ChapterSummary) error

	// SearchBooks runs a keyword search over the catalog. An empty query
	// browses everything, most recently updated first. Returns the page
	// of results and the total match count.
	SearchBooks(ctx context.Context, req SearchRequest) ([]BookSummary, int, error)
	// GetBookByReference returns the full record, or nil when unknown.
	GetBookByReference(ctx context.Context, reference string) (*BookDetail, error)

	// ListTags returns all distinct tags, sorted.
	ListTags(ctx context.Context) ([]string, error)
	// ListAuthors returns all distinct author names, sorted.
	ListAuthors(ctx context.Context) ([]string, error)
	// ListAllReferences returns every (reference, title) pair ordered by
	// title, for sitemaps and exports.
	ListAllReferences(ctx context.Context) ([]BookSummary, error)
}

// ChunkPoint is one embedded chunk with the payload the index stores
// alongside the vector.
type ChunkPoint struct {
	ID           string
	Vector       []float32
	BookID       string
	Reference    string
	Title        string
	ChapterIdx   int
	ChapterTitle string
	ChunkIndex   int
	ChunkText    string
	Authors      []string
	Tags         []string
}

// SemanticHit is one scored result from a vector search.
type SemanticHit struct {
	Reference string
	Title     string
	ChunkText string
	Score     float32
}

// VectorIndex abstracts the chunk-level vector store.
type VectorIndex interface {
	// EnsureCollection creates the collection and its payload indexes if
	// they do not exist yet.
	EnsureCollection(ctx context.Context) error
	// DeleteBook removes every point belonging to a book.
	DeleteBook(ctx context.Context, bookID string) error
	// Upsert writes points to the index.
	Upsert(ctx context.Context, points []ChunkPoint) error
	// Search returns the closest points to vector, restricted to books
	// matching all given tags and the author when non-empty.
	Search(ctx context.Context, vector []float32, tags []string, author string, limit int) ([]SemanticHit, error)
}
