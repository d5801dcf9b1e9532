package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/config"
)

// RemoteProvider generates embeddings through an Azure OpenAI-compatible
// embeddings deployment
type RemoteProvider struct {
	ai         config.AIConfig
	deployment string
	dimensions int
	httpClient *http.Client
}

// NewRemoteProvider creates a new remote embedding provider
func NewRemoteProvider(cfg config.EmbeddingConfig, ai config.AIConfig) (*RemoteProvider, error) {
	if ai.Key == "" || ai.Endpoint == "" {
		return nil, fmt.Errorf("remote embeddings require ASKDB_AZURE_OPENAI_KEY and ASKDB_AZURE_OPENAI_ENDPOINT")
	}

	timeout := ai.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &RemoteProvider{
		ai:         ai,
		deployment: cfg.Deployment,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// GenerateEmbeddings embeds all texts in a single batched API call
func (p *RemoteProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	jsonBody, err := json.Marshal(embeddingRequest{Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		strings.TrimRight(p.ai.Endpoint, "/"),
		url.PathEscape(p.deployment),
		url.QueryEscape(p.ai.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.ai.Key)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response embeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}

	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	// The API documents order by index; do not assume it
	embeddings := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}

	return embeddings, nil
}

// GetDimensions returns the dimensionality of embeddings produced by this provider
func (p *RemoteProvider) GetDimensions() int {
	return p.dimensions
}

// IsEnabled returns whether API credentials are configured
func (p *RemoteProvider) IsEnabled() bool {
	return p.ai.Key != "" && p.ai.Endpoint != "" && p.deployment != ""
}

// GetName returns the provider name for identification
func (p *RemoteProvider) GetName() string {
	return fmt.Sprintf("remote:%s", p.deployment)
}
