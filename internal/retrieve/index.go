package retrieve

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/schema"
)

// Embedder is the slice of embedding.Manager the index needs
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	IsEnabled() bool
	Disabled() bool
	GetName() string
}

// DefaultTopK is the number of chunks returned when the caller asks for none
const DefaultTopK = 5

// Hit is one retrieved chunk with its similarity score
type Hit struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Stats describes the state of the vector index
type Stats struct {
	DocsLoaded         int    `json:"docs_loaded"`
	EmbedderReady      bool   `json:"embedder_ready"`
	EmbeddingsDisabled bool   `json:"embeddings_disabled"`
	Method             string `json:"method"`
}

// Index holds embedded schema chunks in memory and answers nearest-neighbor
// queries by brute-force cosine similarity. The corpus is two schema files;
// exhaustive scan is cheaper than any index structure at that size.
type Index struct {
	manager Embedder

	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float32
}

// NewIndex creates an empty index backed by the given embedding manager
func NewIndex(manager Embedder) *Index {
	return &Index{manager: manager}
}

// Build embeds the given chunks and replaces the index contents
func (idx *Index) Build(ctx context.Context, chunks []Chunk) error {
	logger := logging.GetLogger()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := idx.manager.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.chunks = chunks
	idx.vectors = vectors
	idx.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"chunks": len(chunks),
		"method": idx.manager.GetName(),
	}).Info("Vector index built")

	return nil
}

// Built reports whether the index holds any embedded chunks
func (idx *Index) Built() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.chunks) > 0
}

// Search embeds the question and returns the topK most similar chunks.
// A topK of zero or less uses DefaultTopK.
func (idx *Index) Search(ctx context.Context, question string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	idx.mu.RLock()
	built := len(idx.chunks) > 0
	idx.mu.RUnlock()

	if !built {
		return nil, errors.New(errors.ErrTypeEmbedding, "vector index has not been built").
			WithKind(errors.KindIndexNotBuilt).
			WithSuggestion("Call Build (or the index endpoint) before searching")
	}

	queryVectors, err := idx.manager.GenerateEmbeddings(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	query := queryVectors[0]

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]Hit, 0, len(idx.chunks))
	for i, vec := range idx.vectors {
		hits = append(hits, Hit{
			Chunk: idx.chunks[i],
			Score: Cosine(query, vec),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

// Sources returns just the chunk sources of the given hits, in rank order
func Sources(hits []Hit) []schema.Target {
	sources := make([]schema.Target, len(hits))
	for i, h := range hits {
		sources[i] = h.Chunk.Source
	}

	return sources
}

// Stats returns the current index state
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{
		DocsLoaded:         len(idx.chunks),
		EmbedderReady:      idx.manager.IsEnabled(),
		EmbeddingsDisabled: idx.manager.Disabled(),
		Method:             idx.manager.GetName(),
	}
}

// Cosine computes cosine similarity between two vectors. The epsilon in the
// denominator keeps zero vectors from dividing by zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
