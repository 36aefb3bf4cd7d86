package biblio

import "context"

// fakeCatalog implements Catalog with per-method hooks. Unset hooks
// return zero values.
type fakeCatalog struct {
	findBook    func(ctx context.Context, reference string) (*BookRef, error)
	upsertBook  func(ctx context.Context, rec BookRecord) (string, error)
	replaceCh   func(ctx context.Context, bookID string, summaries []ChapterSummary) error
	searchBooks func(ctx context.Context, req SearchRequest) ([]BookSummary, int, error)
	getBook     func(ctx context.Context, reference string) (*BookDetail, error)
}

func (f *fakeCatalog) FindBookByReference(ctx context.Context, reference string) (*BookRef, error) {
	if f.findBook == nil {
		return nil, nil
	}
	return f.findBook(ctx, reference)
}

func (f *fakeCatalog) UpsertBook(ctx context.Context, rec BookRecord) (string, error) {
	if f.upsertBook == nil {
		return "", nil
	}
	return f.upsertBook(ctx, rec)
}

func (f *fakeCatalog) ReplaceChapterSummaries(ctx context.Context, bookID string, summaries []ChapterSummary) error {
	if f.replaceCh == nil {
		return nil
	}
	return f.replaceCh(ctx, bookID, summaries)
}

func (f *fakeCatalog) SearchBooks(ctx context.Context, req SearchRequest) ([]BookSummary, int, error) {
	if f.searchBooks == nil {
		return nil, 0, nil
	}
	return f.searchBooks(ctx, req)
}

func (f *fakeCatalog) GetBookByReference(ctx context.Context, reference string) (*BookDetail, error) {
	if f.getBook == nil {
		return nil, nil
	}
	return f.getBook(ctx, reference)
}

func (f *fakeCatalog) ListTags(ctx context.Context) ([]string, error)    { return nil, nil }
func (f *fakeCatalog) ListAuthors(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeCatalog) ListAllReferences(ctx context.Context) ([]BookSummary, error) {
	return nil, nil
}

// fakeIndex implements VectorIndex with per-method hooks.
type fakeIndex struct {
	search func(ctx context.Context, vector []float32, tags []string, author string, limit int) ([]SemanticHit, error)
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error           { return nil }
func (f *fakeIndex) DeleteBook(ctx context.Context, bookID string) error  { return nil }
func (f *fakeIndex) Upsert(ctx context.Context, points []ChunkPoint) error { return nil }

func (f *fakeIndex) Search(ctx context.Context, vector []float32, tags []string, author string, limit int) ([]SemanticHit, error) {
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, vector, tags, author, limit)
}

// fakeProvider returns a canned chat response and records the messages
// it was called with.
type fakeProvider struct {
	response string
	err      error
	calls    [][]ChatMessage
}

func (f *fakeProvider) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Name() string { return "fake" }

// fakeEmbedding returns one fixed vector per input text.
type fakeEmbedding struct {
	vector []float32
	err    error
	calls  [][]string
}

func (f *fakeEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedding) Dimensions() int { return len(f.vector) }
func (f *fakeEmbedding) Name() string    { return "fake-embed" }

var (
	_ Catalog           = (*fakeCatalog)(nil)
	_ VectorIndex       = (*fakeIndex)(nil)
	_ Provider          = (*fakeProvider)(nil)
	_ EmbeddingProvider = (*fakeEmbedding)(nil)
)
