package server

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/config"
)

func writeSchemaFixtures(t *testing.T) config.SchemaConfig {
	t.Helper()

	dir := t.TempDir()

	entities := filepath.Join(dir, "entities_prod_definition.txt")
	require.NoError(t, os.WriteFile(entities, []byte(entitiesSchemaText), 0o600))

	dms := filepath.Join(dir, "dms_prod_definition.txt")
	require.NoError(t, os.WriteFile(dms, []byte(dmsSchemaText), 0o600))

	return config.SchemaConfig{EntitiesPath: entities, DMSPath: dms}
}

func TestNewDegradesWhenEmbeddingProviderFails(t *testing.T) {
	cfg := &config.Config{
		Schema:    writeSchemaFixtures(t),
		Embedding: config.EmbeddingConfig{Disabled: false, Method: "bogus"},
		Pipeline:  config.PipelineConfig{MaxRetries: 3, TopK: 5, ValidationPolicy: "advisory"},
	}

	s, err := New(cfg)
	require.NoError(t, err)

	// The config still says embeddings are on, but the provider never
	// initialized; every retrieval surface must take the fallback path.
	assert.True(t, s.embeddingsOff())

	rec := doRequest(t, s, http.MethodGet, "/api/vector/query?text=phone", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestNewMissingSchemaFileFails(t *testing.T) {
	cfg := &config.Config{
		Schema:    config.SchemaConfig{EntitiesPath: "does-not-exist.txt", DMSPath: "also-missing.txt"},
		Embedding: config.EmbeddingConfig{Disabled: true},
	}

	_, err := New(cfg)
	require.Error(t, err)
}
