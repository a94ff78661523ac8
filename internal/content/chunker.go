package content

import "github.com/JakeFAU/ragsearch-crawler/internal/rag"

// Chunker splits extracted text into overlapping windows. Splitting is
// deterministic: the same text always yields the same chunks in the
// same order, which keeps re-crawl upserts stable.
type Chunker struct {
	size     int
	overlap  int
	minChars int
}

// NewChunker builds a Chunker. size and overlap are measured in runes,
// overlap must be smaller than size.
func NewChunker(size, overlap, minChars int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap, minChars: minChars}
}

// Split windows the page text into chunks with sequential Seq values.
// Chunks shorter than the minimum are dropped, except when the whole
// page fits in one chunk, which is kept if it meets the minimum.
func (c *Chunker) Split(sourceURL, title, text string) []rag.Chunk {
	runes := []rune(text)
	if len(runes) < c.minChars {
		return nil
	}

	var chunks []rag.Chunk
	step := c.size - c.overlap
	seq := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		piece := string(runes[start:end])
		if len([]rune(piece)) >= c.minChars {
			chunks = append(chunks, rag.Chunk{
				SourceURL: sourceURL,
				Title:     title,
				Text:      piece,
				Seq:       seq,
			})
			seq++
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
