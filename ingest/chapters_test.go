package ingest

import (
	"strings"
	"testing"
)

func TestSplitChaptersByHeadings(t *testing.T) {
	body := `# Le Printemps

Semez les tomates.

## L'Été

Arrosez le soir.
Paillez le sol.
`
	chapters := SplitChapters(body)
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2: %+v", len(chapters), chapters)
	}

	if chapters[0].Title != "Le Printemps" {
		t.Errorf("chapter[0].Title = %q", chapters[0].Title)
	}
	if !strings.Contains(chapters[0].Text, "Semez les tomates.") {
		t.Errorf("chapter[0].Text = %q", chapters[0].Text)
	}

	if chapters[1].Title != "L'Été" {
		t.Errorf("chapter[1].Title = %q", chapters[1].Title)
	}
	if !strings.Contains(chapters[1].Text, "Arrosez le soir.") ||
		!strings.Contains(chapters[1].Text, "Paillez le sol.") {
		t.Errorf("chapter[1].Text = %q", chapters[1].Text)
	}
}

func TestSplitChaptersNoHeadings(t *testing.T) {
	body := "Un texte sans titre.\n\nDeuxième paragraphe."
	chapters := SplitChapters(body)
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(chapters))
	}
	if chapters[0].Title != "" {
		t.Errorf("Title = %q, want untitled", chapters[0].Title)
	}
	if !strings.Contains(chapters[0].Text, "Un texte sans titre.") {
		t.Errorf("Text = %q", chapters[0].Text)
	}
}

func TestSplitChaptersDeepHeadingsStayInline(t *testing.T) {
	body := `# Chapitre

### Sous-section

Du texte.
`
	chapters := SplitChapters(body)
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1 (H3 is not a boundary): %+v", len(chapters), chapters)
	}
	if !strings.Contains(chapters[0].Text, "Sous-section") {
		t.Errorf("Text = %q, want H3 text kept", chapters[0].Text)
	}
	if !strings.Contains(chapters[0].Text, "Du texte.") {
		t.Errorf("Text = %q", chapters[0].Text)
	}
}

func TestSplitChaptersPreamble(t *testing.T) {
	body := `Avant-propos sans titre.

# Chapitre 1

Contenu.
`
	chapters := SplitChapters(body)
	if len(chapters) != 2 {
		t.Fatalf("got %d chapters, want 2: %+v", len(chapters), chapters)
	}
	if chapters[0].Title != "" || !strings.Contains(chapters[0].Text, "Avant-propos") {
		t.Errorf("chapter[0] = %+v, want untitled preamble", chapters[0])
	}
	if chapters[1].Title != "Chapitre 1" {
		t.Errorf("chapter[1].Title = %q", chapters[1].Title)
	}
}

func TestSplitChaptersHeadingOnly(t *testing.T) {
	chapters := SplitChapters("# Titre Seul\n")
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(chapters))
	}
	if chapters[0].Title != "Titre Seul" {
		t.Errorf("Title = %q", chapters[0].Title)
	}
	if chapters[0].Text != "" {
		t.Errorf("Text = %q, want empty", chapters[0].Text)
	}
}

func TestSplitChaptersDropsMarkup(t *testing.T) {
	body := "# Chapitre\n\nDu texte **en gras** et *en italique*.\n"
	chapters := SplitChapters(body)
	if len(chapters) != 1 {
		t.Fatalf("got %d chapters, want 1", len(chapters))
	}
	if strings.ContainsAny(chapters[0].Text, "*") {
		t.Errorf("Text = %q, want markup dropped", chapters[0].Text)
	}
	if !strings.Contains(chapters[0].Text, "en gras") {
		t.Errorf("Text = %q", chapters[0].Text)
	}
}
