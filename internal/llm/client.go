package llm

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
	"github.com/askdb/askdb/internal/errors"
)

// Client implements the Service interface against an Azure OpenAI-compatible
// chat completions deployment
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
}

// NewClient creates a new chat client with the given configuration
func NewClient(cfg config.AIConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether credentials are present
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Chat sends the conversation and returns the raw assistant content
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if !c.Configured() {
		return "", errors.New(errors.ErrTypeConfig,
			"AI not configured: set ASKDB_AZURE_OPENAI_KEY, ASKDB_AZURE_OPENAI_ENDPOINT, ASKDB_AZURE_OPENAI_DEPLOYMENT").
			WithKind(errors.KindAIServiceNotConfigured)
	}

	reqBody := chatRequest{
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.ForceJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	respBody, err := c.post(ctx, reqBody)
	if err != nil {
		return "", err
	}

	var response chatResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeModelOutput, "failed to parse chat completion response").
			WithKind(errors.KindInvalidAIJSON)
	}

	if response.Error != nil {
		return "", errors.Newf(errors.ErrTypeModelOutput, "chat completion API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", errors.New(errors.ErrTypeModelOutput, "empty AI response").
			WithKind(errors.KindEmptyAIResponse)
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New(errors.ErrTypeModelOutput, "empty AI response").
			WithKind(errors.KindEmptyAIResponse)
	}

	return content, nil
}

// post makes an HTTP request to the chat completions deployment
func (c *Client) post(ctx context.Context, reqBody interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		url.PathEscape(c.cfg.Deployment),
		url.QueryEscape(c.cfg.APIVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.Key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
