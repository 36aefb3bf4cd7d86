package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/nevindra/biblio"
)

// Pipeline imports book files into the catalog and the vector index.
// Imports are idempotent: a file whose fingerprint matches the stored
// book is skipped, and a changed file fully replaces the previous record
// and its index points.
type Pipeline struct {
	catalog   biblio.Catalog
	index     biblio.VectorIndex
	llm       biblio.Provider
	embedding biblio.EmbeddingProvider
	logger    *slog.Logger
}

// New creates a Pipeline. LLM and embedding providers are optional; see
// the Option functions for what each enables.
func New(catalog biblio.Catalog, index biblio.VectorIndex, opts ...Option) *Pipeline {
	p := &Pipeline{catalog: catalog, index: index}
	for _, o := range opts {
		o(p)
	}
	if p.logger == nil {
		p.logger = nopLogger
	}
	return p
}

// Report summarizes a directory run.
type Report struct {
	Processed []string
	Failed    []string
}

// RunDir imports every *.md file in dir. Each file is moved to the
// processed/ or failed/ subdirectory by outcome, so reruns only pick up
// new drops. A failing file never aborts the batch; only infrastructure
// errors (directory access, file moves, cancellation) do.
func (p *Pipeline) RunDir(ctx context.Context, dir string) (Report, error) {
	processedDir := filepath.Join(dir, "processed")
	failedDir := filepath.Join(dir, "failed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("ingest: create processed dir: %w", err)
	}
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return Report{}, fmt.Errorf("ingest: create failed dir: %w", err)
	}

	if err := p.index.EnsureCollection(ctx); err != nil {
		return Report{}, fmt.Errorf("ingest: ensure collection: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{}, fmt.Errorf("ingest: read dir %s: %w", dir, err)
	}

	var report Report
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := entry.Name()
		path := filepath.Join(dir, name)
		p.logger.Info("processing", "file", name)

		if err := p.ImportFile(ctx, path); err != nil {
			p.logger.Error("import failed", "file", name, "error", err)
			if mvErr := os.Rename(path, filepath.Join(failedDir, name)); mvErr != nil {
				return report, fmt.Errorf("ingest: move %s to failed: %w", name, mvErr)
			}
			report.Failed = append(report.Failed, name)
			continue
		}

		if err := os.Rename(path, filepath.Join(processedDir, name)); err != nil {
			return report, fmt.Errorf("ingest: move %s to processed: %w", name, err)
		}
		report.Processed = append(report.Processed, name)
	}
	return report, nil
}

// ImportFile imports a single book file.
func (p *Pipeline) ImportFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ingest: read %s: %w", path, err)
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	return p.importBook(ctx, parsed)
}

func (p *Pipeline) importBook(ctx context.Context, parsed *ParsedBook) error {
	meta := parsed.Meta

	existing, err := p.catalog.FindBookByReference(ctx, meta.Reference)
	if err != nil {
		return fmt.Errorf("ingest: lookup %s: %w", meta.Reference, err)
	}
	if existing != nil && existing.Fingerprint == parsed.Fingerprint {
		p.logger.Info("book unchanged, skipping", "reference", meta.Reference)
		return nil
	}

	// Summary fallback chain: frontmatter, then generated, then absent.
	summary := meta.Summary
	if summary == "" && p.llm != nil {
		s, err := p.llm.Chat(ctx, []biblio.ChatMessage{
			biblio.SystemMessage(summarySystem),
			biblio.UserMessage(summaryPrompt(parsed.Body)),
		})
		if err != nil {
			p.logger.Warn("summary generation failed", "reference", meta.Reference, "error", err)
		} else {
			summary = s
		}
	}

	bookID, err := p.catalog.UpsertBook(ctx, biblio.BookRecord{
		Reference:       meta.Reference,
		Title:           meta.Title,
		Authors:         meta.Authors,
		Editor:          meta.Editor,
		Tags:            meta.Tags,
		EditionDate:     meta.EditionDate,
		Summary:         summary,
		Introduction:    meta.Introduction,
		CoverText:       meta.CoverText,
		EAN:             meta.EAN,
		ISBN:            meta.ISBN,
		ResellerPaper:   meta.ResellerPaper,
		ResellerDigital: meta.ResellerDigital,
		Fingerprint:     parsed.Fingerprint,
		SearchText:      searchText(meta, parsed.Body),
	})
	if err != nil {
		return fmt.Errorf("ingest: upsert %s: %w", meta.Reference, err)
	}

	chapters := SplitChapters(parsed.Body)

	if p.llm != nil {
		if err := p.catalog.ReplaceChapterSummaries(ctx, bookID, p.chapterSummaries(ctx, chapters)); err != nil {
			return fmt.Errorf("ingest: store chapter summaries for %s: %w", meta.Reference, err)
		}
	}

	chunks := ChunkChapters(chapters)
	if p.embedding == nil || len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := p.embedding.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("ingest: embed chunks for %s: %w", meta.Reference, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("ingest: embed chunks for %s: got %d embeddings for %d chunks",
			meta.Reference, len(embeddings), len(chunks))
	}

	// A changed book replaces all of its points.
	if existing != nil {
		if err := p.index.DeleteBook(ctx, existing.ID); err != nil {
			return fmt.Errorf("ingest: delete stale points for %s: %w", meta.Reference, err)
		}
	}

	points := make([]biblio.ChunkPoint, len(chunks))
	for i, c := range chunks {
		points[i] = biblio.ChunkPoint{
			ID:           uuid.NewString(),
			Vector:       embeddings[i],
			BookID:       bookID,
			Reference:    meta.Reference,
			Title:        meta.Title,
			ChapterIdx:   c.ChapterIdx,
			ChapterTitle: c.ChapterTitle,
			ChunkIndex:   c.Index,
			ChunkText:    c.Text,
			Authors:      meta.Authors,
			Tags:         meta.Tags,
		}
	}
	if err := p.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("ingest: index chunks for %s: %w", meta.Reference, err)
	}

	p.logger.Info("imported book", "reference", meta.Reference, "title", meta.Title, "chunks", len(points))
	return nil
}

// chapterSummaries generates one summary per non-empty chapter,
// sequentially. Generation is best-effort: the first failure degrades
// the whole batch to no summaries rather than failing the import.
func (p *Pipeline) chapterSummaries(ctx context.Context, chapters []Chapter) []biblio.ChapterSummary {
	var summaries []biblio.ChapterSummary
	for i, ch := range chapters {
		if strings.TrimSpace(ch.Text) == "" {
			continue
		}
		text, err := p.llm.Chat(ctx, []biblio.ChatMessage{
			biblio.SystemMessage(chapterSummarySystem),
			biblio.UserMessage(chapterSummaryPrompt(ch)),
		})
		if err != nil {
			p.logger.Warn("chapter summaries degraded", "chapter", i, "error", err)
			return nil
		}
		summaries = append(summaries, biblio.ChapterSummary{ChapterIdx: i, Title: ch.Title, Summary: text})
	}
	return summaries
}

// searchText builds the text fed into the catalog's full-text index.
func searchText(meta Metadata, body string) string {
	return fmt.Sprintf("%s %s %s %s",
		meta.Title, meta.Editor, strings.Join(meta.Authors, " "), body)
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
