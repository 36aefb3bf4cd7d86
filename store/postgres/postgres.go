// Package postgres implements biblio.Catalog using PostgreSQL with a
// french-configuration tsvector for full-text search and normalized
// author/tag/reseller junction tables.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/biblio"
)

// DefaultPageSize is used when a search request does not set one.
const DefaultPageSize = 20

// Store implements biblio.Catalog backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ biblio.Catalog = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates all required tables and indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		`CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			reference TEXT NOT NULL UNIQUE,
			fingerprint TEXT NOT NULL,
			title TEXT NOT NULL,
			editor TEXT NOT NULL DEFAULT '',
			edition_date TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			introduction TEXT NOT NULL DEFAULT '',
			cover_text TEXT NOT NULL DEFAULT '',
			ean TEXT NOT NULL DEFAULT '',
			isbn TEXT NOT NULL DEFAULT '',
			search_vector TSVECTOR,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS books_search_idx ON books USING gin(search_vector)`,

		`CREATE TABLE IF NOT EXISTS authors (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL UNIQUE
		)`,

		`CREATE TABLE IF NOT EXISTS book_authors (
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			author_id UUID NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
			PRIMARY KEY (book_id, author_id)
		)`,
		`CREATE TABLE IF NOT EXISTS book_tags (
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (book_id, tag_id)
		)`,

		`CREATE TABLE IF NOT EXISTS reseller_urls (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			kind TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS reseller_urls_book_idx ON reseller_urls(book_id)`,

		`CREATE TABLE IF NOT EXISTS chapter_summaries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			book_id UUID NOT NULL REFERENCES books(id) ON DELETE CASCADE,
			chapter_idx INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS chapter_summaries_book_idx ON chapter_summaries(book_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// FindBookByReference returns the stored id and fingerprint, or nil when
// the reference is unknown.
func (s *Store) FindBookByReference(ctx context.Context, reference string) (*biblio.BookRef, error) {
	var ref biblio.BookRef
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, fingerprint FROM books WHERE reference = $1`, reference).
		Scan(&ref.ID, &ref.Fingerprint)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find book: %w", err)
	}
	return &ref, nil
}

// UpsertBook inserts or replaces a book and all of its child collections
// in one transaction.
func (s *Store) UpsertBook(ctx context.Context, rec biblio.BookRecord) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var bookID string
	err = tx.QueryRow(ctx,
		`INSERT INTO books (reference, fingerprint, title, editor, edition_date, summary,
		                    introduction, cover_text, ean, isbn, search_vector)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, to_tsvector('french', $11))
		 ON CONFLICT (reference) DO UPDATE SET
		 	fingerprint = EXCLUDED.fingerprint,
		 	title = EXCLUDED.title,
		 	editor = EXCLUDED.editor,
		 	edition_date = EXCLUDED.edition_date,
		 	summary = EXCLUDED.summary,
		 	introduction = EXCLUDED.introduction,
		 	cover_text = EXCLUDED.cover_text,
		 	ean = EXCLUDED.ean,
		 	isbn = EXCLUDED.isbn,
		 	search_vector = EXCLUDED.search_vector,
		 	updated_at = NOW()
		 RETURNING id::text`,
		rec.Reference, rec.Fingerprint, rec.Title, rec.Editor, rec.EditionDate, rec.Summary,
		rec.Introduction, rec.CoverText, rec.EAN, rec.ISBN, rec.SearchText).
		Scan(&bookID)
	if err != nil {
		return "", fmt.Errorf("postgres: upsert book: %w", err)
	}

	// Child collections are replaced wholesale: clear, then re-insert.
	for _, table := range []string{"book_authors", "book_tags", "reseller_urls"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE book_id = $1`, bookID); err != nil {
			return "", fmt.Errorf("postgres: clear %s: %w", table, err)
		}
	}

	for _, name := range rec.Authors {
		var authorID string
		err := tx.QueryRow(ctx,
			`INSERT INTO authors (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id::text`, name).Scan(&authorID)
		if err != nil {
			return "", fmt.Errorf("postgres: upsert author: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO book_authors (book_id, author_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			bookID, authorID); err != nil {
			return "", fmt.Errorf("postgres: link author: %w", err)
		}
	}

	for _, name := range rec.Tags {
		var tagID string
		err := tx.QueryRow(ctx,
			`INSERT INTO tags (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id::text`, name).Scan(&tagID)
		if err != nil {
			return "", fmt.Errorf("postgres: upsert tag: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO book_tags (book_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			bookID, tagID); err != nil {
			return "", fmt.Errorf("postgres: link tag: %w", err)
		}
	}

	for _, url := range rec.ResellerPaper {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reseller_urls (book_id, url, kind) VALUES ($1, $2, 'paper')`,
			bookID, url); err != nil {
			return "", fmt.Errorf("postgres: insert reseller url: %w", err)
		}
	}
	for _, url := range rec.ResellerDigital {
		if _, err := tx.Exec(ctx,
			`INSERT INTO reseller_urls (book_id, url, kind) VALUES ($1, $2, 'digital')`,
			bookID, url); err != nil {
			return "", fmt.Errorf("postgres: insert reseller url: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("postgres: commit: %w", err)
	}
	return bookID, nil
}

// ReplaceChapterSummaries deletes and re-inserts a book's chapter
// summaries. Entries with empty text are skipped.
func (s *Store) ReplaceChapterSummaries(ctx context.Context, bookID string, summaries []biblio.ChapterSummary) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM chapter_summaries WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("postgres: clear chapter summaries: %w", err)
	}

	for _, cs := range summaries {
		if cs.Summary == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO chapter_summaries (book_id, chapter_idx, title, summary) VALUES ($1, $2, $3, $4)`,
			bookID, cs.ChapterIdx, cs.Title, cs.Summary); err != nil {
			return fmt.Errorf("postgres: insert chapter summary: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// summaryColumns is the card-level projection shared by both search
// branches. Authors and tags come from correlated subqueries so rows
// stay one-per-book.
const summaryColumns = `
	b.id::text, b.reference, b.title, b.editor, b.edition_date, b.summary,
	(SELECT COALESCE(array_agg(DISTINCT a.name), ARRAY[]::text[])
	 FROM book_authors ba JOIN authors a ON a.id = ba.author_id
	 WHERE ba.book_id = b.id) AS authors,
	(SELECT COALESCE(array_agg(DISTINCT t.name), ARRAY[]::text[])
	 FROM book_tags bt JOIN tags t ON t.id = bt.tag_id
	 WHERE bt.book_id = b.id) AS tags`

// tagAuthorFilter restricts rows to books carrying one of the given tags
// and the given author. NULL parameters disable the corresponding filter.
const tagAuthorFilter = `
	($1::text[] IS NULL OR EXISTS (
		SELECT 1 FROM book_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.book_id = b.id AND t.name = ANY($1)))
	AND ($2::text IS NULL OR EXISTS (
		SELECT 1 FROM book_authors ba
		JOIN authors a ON a.id = ba.author_id
		WHERE ba.book_id = b.id AND a.name = $2))`

// SearchBooks runs a keyword search. A blank query browses the whole
// catalog, most recently updated first; otherwise books match through
// the french full-text index or a substring match on title/editor.
func (s *Store) SearchBooks(ctx context.Context, req biblio.SearchRequest) ([]biblio.BookSummary, int, error) {
	page := max(req.Page, 0)
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	offset := page * pageSize

	var tagsParam any
	if len(req.Tags) > 0 {
		tagsParam = req.Tags
	}
	var authorParam any
	if req.Author != "" {
		authorParam = req.Author
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		var total int
		err := s.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM books b WHERE `+tagAuthorFilter,
			tagsParam, authorParam).Scan(&total)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: count books: %w", err)
		}

		rows, err := s.pool.Query(ctx,
			`SELECT `+summaryColumns+`
			 FROM books b
			 WHERE `+tagAuthorFilter+`
			 ORDER BY b.updated_at DESC
			 LIMIT $3 OFFSET $4`,
			tagsParam, authorParam, pageSize, offset)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: browse books: %w", err)
		}
		books, err := scanSummaries(rows)
		if err != nil {
			return nil, 0, err
		}
		return books, total, nil
	}

	likePattern := "%" + query + "%"
	textMatch := `(b.search_vector @@ plainto_tsquery('french', $3)
		OR b.title ILIKE $4
		OR b.editor ILIKE $4)`

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM books b WHERE `+textMatch+` AND `+tagAuthorFilter,
		tagsParam, authorParam, query, likePattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: count books: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+summaryColumns+`
		 FROM books b
		 WHERE `+textMatch+` AND `+tagAuthorFilter+`
		 ORDER BY b.updated_at DESC
		 LIMIT $5 OFFSET $6`,
		tagsParam, authorParam, query, likePattern, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: search books: %w", err)
	}
	books, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func scanSummaries(rows pgx.Rows) ([]biblio.BookSummary, error) {
	defer rows.Close()
	var books []biblio.BookSummary
	for rows.Next() {
		var b biblio.BookSummary
		if err := rows.Scan(&b.ID, &b.Reference, &b.Title, &b.Editor, &b.EditionDate,
			&b.Summary, &b.Authors, &b.Tags); err != nil {
			return nil, fmt.Errorf("postgres: scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read books: %w", err)
	}
	return books, nil
}

// GetBookByReference returns the full record, or nil when unknown.
func (s *Store) GetBookByReference(ctx context.Context, reference string) (*biblio.BookDetail, error) {
	var d biblio.BookDetail
	err := s.pool.QueryRow(ctx,
		`SELECT b.id::text, b.reference, b.title, b.editor, b.edition_date, b.summary,
		        b.introduction, b.cover_text, b.ean, b.isbn,
		        (SELECT COALESCE(array_agg(DISTINCT a.name), ARRAY[]::text[])
		         FROM book_authors ba JOIN authors a ON a.id = ba.author_id
		         WHERE ba.book_id = b.id) AS authors,
		        (SELECT COALESCE(array_agg(DISTINCT t.name), ARRAY[]::text[])
		         FROM book_tags bt JOIN tags t ON t.id = bt.tag_id
		         WHERE bt.book_id = b.id) AS tags
		 FROM books b
		 WHERE b.reference = $1`, reference).
		Scan(&d.ID, &d.Reference, &d.Title, &d.Editor, &d.EditionDate, &d.Summary,
			&d.Introduction, &d.CoverText, &d.EAN, &d.ISBN, &d.Authors, &d.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get book: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT chapter_idx, title, summary FROM chapter_summaries
		 WHERE book_id = $1::uuid ORDER BY chapter_idx`, d.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get chapter summaries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cs biblio.ChapterSummary
		if err := rows.Scan(&cs.ChapterIdx, &cs.Title, &cs.Summary); err != nil {
			return nil, fmt.Errorf("postgres: scan chapter summary: %w", err)
		}
		d.ChapterSummaries = append(d.ChapterSummaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read chapter summaries: %w", err)
	}

	urlRows, err := s.pool.Query(ctx,
		`SELECT url, kind FROM reseller_urls WHERE book_id = $1::uuid ORDER BY kind, url`, d.ID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get reseller urls: %w", err)
	}
	defer urlRows.Close()
	for urlRows.Next() {
		var url, kind string
		if err := urlRows.Scan(&url, &kind); err != nil {
			return nil, fmt.Errorf("postgres: scan reseller url: %w", err)
		}
		switch kind {
		case "paper":
			d.ResellerPaper = append(d.ResellerPaper, url)
		case "digital":
			d.ResellerDigital = append(d.ResellerDigital, url)
		}
	}
	if err := urlRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read reseller urls: %w", err)
	}

	return &d, nil
}

// ListTags returns all distinct tags, sorted.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM tags ORDER BY name`)
}

// ListAuthors returns all distinct author names, sorted.
func (s *Store) ListAuthors(ctx context.Context) ([]string, error) {
	return s.listNames(ctx, `SELECT name FROM authors ORDER BY name`)
}

func (s *Store) listNames(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("postgres: scan name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read names: %w", err)
	}
	return names, nil
}

// ListAllReferences returns every (reference, title) pair ordered by
// title, for sitemaps and exports.
func (s *Store) ListAllReferences(ctx context.Context) ([]biblio.BookSummary, error) {
	rows, err := s.pool.Query(ctx, `SELECT reference, title FROM books ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list references: %w", err)
	}
	defer rows.Close()
	var books []biblio.BookSummary
	for rows.Next() {
		var b biblio.BookSummary
		if err := rows.Scan(&b.Reference, &b.Title); err != nil {
			return nil, fmt.Errorf("postgres: scan reference: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read references: %w", err)
	}
	return books, nil
}
