package biblio

// --- Domain types (catalog records) ---

// BookSummary is the card-level view of a book returned by search.
type BookSummary struct {
	ID          string   `json:"id"`
	Reference   string   `json:"reference"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Editor      string   `json:"editor,omitempty"`
	EditionDate string   `json:"edition_date,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags"`
}

// BookDetail is the full record for a single book page.
type BookDetail struct {
	BookSummary
	Introduction     string           `json:"introduction,omitempty"`
	CoverText        string           `json:"cover_text,omitempty"`
	EAN              string           `json:"ean,omitempty"`
	ISBN             string           `json:"isbn,omitempty"`
	ResellerPaper    []string         `json:"reseller_paper_urls"`
	ResellerDigital  []string         `json:"reseller_digital_urls"`
	ChapterSummaries []ChapterSummary `json:"chapter_summaries"`
}

// ChapterSummary is a generated per-chapter digest, ordered by ChapterIdx.
type ChapterSummary struct {
	ChapterIdx int    `json:"chapter_idx"`
	Title      string `json:"title,omitempty"`
	Summary    string `json:"summary"`
}

// BookRecord is the full write-side record for Catalog.UpsertBook.
// SearchText feeds the catalog's full-text index; callers build it from
// the title, editor, authors, and body.
type BookRecord struct {
	Reference       string
	Title           string
	Authors         []string
	Editor          string
	Tags            []string
	EditionDate     string
	Summary         string
	Introduction    string
	CoverText       string
	EAN             string
	ISBN            string
	ResellerPaper   []string
	ResellerDigital []string
	Fingerprint     string
	SearchText      string
}

// BookRef identifies a stored book for idempotence checks.
type BookRef struct {
	ID          string
	Fingerprint string
}

// --- Search types ---

// SearchRequest describes one catalog search.
// Page is zero-based; PageSize <= 0 means the catalog default.
type SearchRequest struct {
	Query    string
	Tags     []string
	Author   string
	Page     int
	PageSize int
}

// SearchPage is one page of search results. Total counts keyword matches
// only; semantically boosted extras on page zero are not included in it.
type SearchPage struct {
	Books []BookSummary `json:"books"`
	Total int           `json:"total"`
}

// --- Chat protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}

// Source is a citation attached to a generated answer. ChunkText is an
// excerpt of the supporting chunk, not the full text.
type Source struct {
	Reference string `json:"reference"`
	Title     string `json:"title"`
	ChunkText string `json:"chunk_text"`
}

// Answer is a generated reply with its supporting sources. HTML is the
// markdown Text rendered for display.
type Answer struct {
	Text    string   `json:"text"`
	HTML    string   `json:"html"`
	Sources []Source `json:"sources"`
}
