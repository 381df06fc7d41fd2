package retrieval

import (
	"strings"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"

	"github.com/google/uuid"
)

// ChunkOptions controls the splitter window.
type ChunkOptions struct {
	ChunkSize int
	Overlap   int
}

// DefaultChunkOptions returns the standard window for library content.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize: 500,
		Overlap:   50,
	}
}

// SplitText splits a long string into chunks of approximately 'chunkSize' characters.
// It includes an 'overlap' to preserve context at boundaries, and prefers cutting
// at a sentence terminator when one falls past the midpoint of the window,
// falling back to a word boundary past 70% of the window, then to a hard cut.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	totalLen := len(runes)

	if totalLen <= chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var chunks []string
	for start := 0; start < totalLen; start += step {
		end := start + chunkSize
		if end >= totalLen {
			end = totalLen
		} else {
			end = start + cutPoint(runes[start:end])
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if start+chunkSize >= totalLen {
			break
		}
	}

	return chunks
}

// cutPoint returns the cut offset within a full window: the last sentence
// terminator past 50% of the window, else the last word boundary past 70%,
// else the window edge.
func cutPoint(window []rune) int {
	n := len(window)

	lastSentence := -1
	lastSpace := -1
	for i, r := range window {
		switch r {
		case '.', '!', '?':
			lastSentence = i
		case ' ', '\n', '\t':
			lastSpace = i
		}
	}

	if lastSentence > n/2 {
		return lastSentence + 1 // keep the terminator
	}
	if lastSpace > (n*7)/10 {
		return lastSpace
	}
	return n
}

// Chunker turns documents into retrievable chunks. When an embedding provider
// is attached, chunks are embedded inline; otherwise they are emitted without
// embeddings ("fast mode") for the background reprocessor to fill in.
type Chunker struct {
	opts ChunkOptions
}

func NewChunker(opts ChunkOptions) *Chunker {
	if opts.ChunkSize <= 0 {
		opts = DefaultChunkOptions()
	}
	return &Chunker{opts: opts}
}

// ChunkDocument splits a document's content into ordered chunks.
// Index is monotonic within the document.
func (c *Chunker) ChunkDocument(doc *store.Document) []store.Chunk {
	pieces := SplitText(doc.Content, c.opts.ChunkSize, c.opts.Overlap)

	chunks := make([]store.Chunk, 0, len(pieces))
	for i, text := range pieces {
		chunks = append(chunks, store.Chunk{
			ID:            uuid.NewString(),
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Index:         i,
			Text:          text,
		})
	}
	return chunks
}
