package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/schema"
)

// fakeEmbedder maps each text to a fixed vector
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := f.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}

	return out, nil
}

func (f *fakeEmbedder) IsEnabled() bool { return true }
func (f *fakeEmbedder) Disabled() bool  { return false }
func (f *fakeEmbedder) GetName() string { return "fake" }

func TestCosine(t *testing.T) {
	v := []float32{0.3, 0.5, 0.2}

	assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Zero vectors must not divide by zero
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{0, 0}))
}

func TestIndexSearchRanksBySimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"model entity {":       {1, 0, 0},
		"model leads_tickets {": {0, 1, 0},
		"model address {":      {0.9, 0.1, 0},
		"which tickets":        {0, 1, 0},
	}}

	idx := NewIndex(embedder)
	err := idx.Build(context.Background(), []Chunk{
		{Source: schema.TargetEntities, Index: 0, Content: "model entity {"},
		{Source: schema.TargetDMS, Index: 0, Content: "model leads_tickets {"},
		{Source: schema.TargetEntities, Index: 1, Content: "model address {"},
	})
	require.NoError(t, err)
	assert.True(t, idx.Built())

	hits, err := idx.Search(context.Background(), "which tickets", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "model leads_tickets {", hits[0].Chunk.Content)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	sources := Sources(hits)
	assert.Equal(t, schema.TargetDMS, sources[0])
}

func TestIndexSearchDefaultTopK(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}

	chunks := make([]Chunk, 8)
	for i := range chunks {
		chunks[i] = Chunk{Source: schema.TargetEntities, Index: i, Content: "chunk"}
	}

	idx := NewIndex(embedder)
	require.NoError(t, idx.Build(context.Background(), chunks))

	hits, err := idx.Search(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)
}

func TestIndexSearchNotBuilt(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{})

	assert.False(t, idx.Built())

	_, err := idx.Search(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindIndexNotBuilt))
}

func TestIndexStats(t *testing.T) {
	idx := NewIndex(&fakeEmbedder{})

	stats := idx.Stats()
	assert.Equal(t, 0, stats.DocsLoaded)
	assert.True(t, stats.EmbedderReady)
	assert.False(t, stats.EmbeddingsDisabled)
	assert.Equal(t, "fake", stats.Method)

	require.NoError(t, idx.Build(context.Background(), []Chunk{
		{Source: schema.TargetEntities, Content: "x"},
	}))

	assert.Equal(t, 1, idx.Stats().DocsLoaded)
}
