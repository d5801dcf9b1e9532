package retrieve

import (
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// DefaultChunkSize is the soft byte limit per chunk. Chunks only break at
// line boundaries, so a single line longer than this becomes its own chunk.
const DefaultChunkSize = 4000

// Chunk is one retrievable slice of a schema definition file
type Chunk struct {
	Source  schema.Target `json:"source"`
	Index   int           `json:"index"`
	Content string        `json:"content"`
}

// SplitLines breaks text into line-aligned chunks of at most size bytes
// (modulo oversized lines). Joining the chunks with newlines reproduces the
// original text up to trailing newline normalization.
func SplitLines(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var (
		chunks  []string
		current strings.Builder
	)

	for _, line := range strings.Split(text, "\n") {
		// +1 for the newline that joins the pending content to this line
		if current.Len() > 0 && current.Len()+1+len(line) > size {
			chunks = append(chunks, current.String())
			current.Reset()
		}

		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// ChunkSchema splits one schema definition into tagged chunks
func ChunkSchema(source schema.Target, text string, size int) []Chunk {
	parts := SplitLines(text, size)

	chunks := make([]Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = Chunk{Source: source, Index: i, Content: part}
	}

	return chunks
}
