package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
)

func TestManagerDisabled(t *testing.T) {
	manager, err := NewManager(config.EmbeddingConfig{Disabled: true}, config.AIConfig{})
	require.NoError(t, err)

	assert.True(t, manager.Disabled())
	assert.False(t, manager.IsEnabled())

	_, err = manager.GenerateEmbeddings(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindEmbeddingsDisabled))
}

func TestManagerUnsupportedMethod(t *testing.T) {
	_, err := NewManager(config.EmbeddingConfig{Method: "quantum"}, config.AIConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embedding method")
}

func TestDisabledProvider(t *testing.T) {
	provider := &DisabledProvider{}

	assert.False(t, provider.IsEnabled())
	assert.Equal(t, 0, provider.GetDimensions())
	assert.Equal(t, "disabled", provider.GetName())

	_, err := provider.GenerateEmbeddings(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestRemoteProviderRequiresCredentials(t *testing.T) {
	_, err := NewRemoteProvider(config.EmbeddingConfig{Method: "remote"}, config.AIConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ASKDB_AZURE_OPENAI_KEY")
}

func TestRemoteProviderGenerateEmbeddings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/text-embedding-3-large/embeddings", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		// Out-of-order data entries must still land at the right index
		w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0.4,0.5,0.6]},
			{"index":0,"embedding":[0.1,0.2,0.3]}
		]}`))
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(
		config.EmbeddingConfig{Method: "remote", Deployment: "text-embedding-3-large", Dimensions: 3},
		config.AIConfig{Key: "test-key", Endpoint: server.URL, Deployment: "gpt-4o-mini", APIVersion: "2024-08-01-preview"},
	)
	require.NoError(t, err)
	assert.True(t, provider.IsEnabled())
	assert.Equal(t, "remote:text-embedding-3-large", provider.GetName())

	vectors, err := provider.GenerateEmbeddings(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vectors[0])
	assert.Equal(t, []float32{0.4, 0.5, 0.6}, vectors[1])
}

func TestRemoteProviderCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	provider, err := NewRemoteProvider(
		config.EmbeddingConfig{Method: "remote", Deployment: "text-embedding-3-large"},
		config.AIConfig{Key: "k", Endpoint: server.URL},
	)
	require.NoError(t, err)

	_, err = provider.GenerateEmbeddings(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 embeddings")
}

func TestRemoteProviderEmptyInput(t *testing.T) {
	provider, err := NewRemoteProvider(
		config.EmbeddingConfig{Method: "remote", Deployment: "d"},
		config.AIConfig{Key: "k", Endpoint: "http://localhost:1"},
	)
	require.NoError(t, err)

	vectors, err := provider.GenerateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
