package ingest

// Chunking parameters, in runes. Consecutive windows overlap so that a
// sentence cut by one boundary is whole in the next chunk.
const (
	ChunkWindow  = 2000
	ChunkOverlap = 400
)

// Chunk is one embeddable window of chapter text. Index counts chunks
// within the chapter, starting at zero.
type Chunk struct {
	ChapterIdx   int
	ChapterTitle string
	Index        int
	Text         string
}

// ChunkChapters windows each chapter's text into overlapping chunks.
// Empty chapters yield no chunks; a chapter shorter than the window
// yields exactly one.
func ChunkChapters(chapters []Chapter) []Chunk {
	var chunks []Chunk
	for chapterIdx, chapter := range chapters {
		runes := []rune(chapter.Text)
		if len(runes) == 0 {
			continue
		}

		start, index := 0, 0
		for start < len(runes) {
			end := min(start+ChunkWindow, len(runes))
			chunks = append(chunks, Chunk{
				ChapterIdx:   chapterIdx,
				ChapterTitle: chapter.Title,
				Index:        index,
				Text:         string(runes[start:end]),
			})
			index++
			if end >= len(runes) {
				break
			}
			start += ChunkWindow - ChunkOverlap
		}
	}
	return chunks
}
