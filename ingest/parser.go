// Package ingest turns frontmatter-annotated markdown books into catalog
// records and indexed chunks. The pipeline is strictly sequential: one
// file at a time, one chapter at a time, so provider rate limits stay
// predictable.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nevindra/biblio"
)

// Metadata is the YAML frontmatter of a book file. Reference and Title
// are required; everything else is optional.
type Metadata struct {
	Reference       string   `yaml:"reference"`
	Title           string   `yaml:"title"`
	Authors         []string `yaml:"authors"`
	Editor          string   `yaml:"editor"`
	Tags            []string `yaml:"tags"`
	EditionDate     string   `yaml:"edition_date"`
	Summary         string   `yaml:"summary"`
	Introduction    string   `yaml:"introduction"`
	CoverText       string   `yaml:"cover_text"`
	EAN             string   `yaml:"ean"`
	ISBN            string   `yaml:"isbn"`
	ResellerPaper   []string `yaml:"reseller_paper_urls"`
	ResellerDigital []string `yaml:"reseller_digital_urls"`
}

// ParsedBook is a successfully parsed book file. Fingerprint is the hex
// SHA-256 of the raw file bytes, frontmatter included, so any edit to the
// file changes it.
type ParsedBook struct {
	Meta        Metadata
	Body        string
	Fingerprint string
}

// Parse splits a raw book file into frontmatter metadata and markdown
// body. Returns a *biblio.ParseError when the frontmatter is absent,
// does not unmarshal, or lacks a reference or title.
func Parse(raw []byte) (*ParsedBook, error) {
	front, body, err := splitFrontmatter(string(raw))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return nil, &biblio.ParseError{Reason: biblio.ReasonMalformedMetadata, Err: err}
	}
	if meta.Reference == "" || meta.Title == "" {
		return nil, &biblio.ParseError{
			Reason: biblio.ReasonMalformedMetadata,
			Err:    errors.New("reference and title are required"),
		}
	}

	sum := sha256.Sum256(raw)
	return &ParsedBook{
		Meta:        meta,
		Body:        strings.TrimSpace(body),
		Fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

// splitFrontmatter separates the leading `---` fenced YAML block from the
// rest of the document.
func splitFrontmatter(s string) (front, body string, err error) {
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return "", "", &biblio.ParseError{Reason: biblio.ReasonMissingMetadata}
	}
	rest := s[strings.IndexByte(s, '\n')+1:]

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", "", &biblio.ParseError{Reason: biblio.ReasonMissingMetadata}
	}
	front = rest[:end]

	body = rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return front, body, nil
}
