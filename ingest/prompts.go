package ingest

import "fmt"

// Input caps for summary generation, in runes. Long books are truncated
// rather than split; a summary only needs the opening of the text.
const (
	summaryInputMax = 6000
	chapterInputMax = 4000
)

const summarySystem = "Tu es un assistant qui rédige des résumés factuels de livres. " +
	"Tes résumés doivent être objectifs et concis. " +
	"Ne commence jamais par des phrases comme « Voici un résumé », « Ce texte parle de », etc. " +
	"Commence directement par le contenu du résumé. " +
	"Maximum 5 phrases."

const chapterSummarySystem = "Tu es un assistant qui rédige des résumés factuels de chapitres de livres. " +
	"Tes résumés doivent être objectifs et concis. " +
	"Ne commence jamais par des phrases comme « Voici un résumé », « Ce chapitre parle de », etc. " +
	"Commence directement par le contenu du résumé. " +
	"Maximum 3 phrases."

func summaryPrompt(body string) string {
	return "Résume le texte suivant en français en 5 phrases maximum :\n\n" +
		truncateRunes(body, summaryInputMax)
}

func chapterSummaryPrompt(ch Chapter) string {
	label := "ce chapitre"
	if ch.Title != "" {
		label = fmt.Sprintf("le chapitre \"%s\"", ch.Title)
	}
	return fmt.Sprintf("Résume %s en 3 phrases maximum en français :\n\n%s",
		label, truncateRunes(ch.Text, chapterInputMax))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
