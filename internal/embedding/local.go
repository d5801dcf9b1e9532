package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/askdb/askdb/internal/config"
)

// LocalProvider generates embeddings through a local Python script running a
// sentence-transformers model
type LocalProvider struct {
	model      string
	pythonPath string
	scriptPath string
	timeout    time.Duration
	dimensions int
}

// embeddingResult represents the JSON response from embed.py
type embeddingResult struct {
	Embeddings [][]float64 `json:"embeddings"`
	Model      string      `json:"model"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// NewLocalProvider creates a new local embedding provider
func NewLocalProvider(cfg config.EmbeddingConfig) (*LocalProvider, error) {
	pythonPath, err := exec.LookPath("python3")
	if err != nil {
		pythonPath, err = exec.LookPath("python")
		if err != nil {
			return nil, fmt.Errorf("python not found in PATH: %w", err)
		}
	}

	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("failed to determine script path")
	}

	// Go up from internal/embedding/ to project root, then to scripts/
	projectRoot := filepath.Join(filepath.Dir(currentFile), "..", "..")
	scriptPath := filepath.Join(projectRoot, "scripts", "embed.py")

	provider := &LocalProvider{
		model:      cfg.LocalModel,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
		timeout:    120 * time.Second, // first call downloads the model
		dimensions: cfg.Dimensions,
	}

	if !provider.IsEnabled() {
		return nil, fmt.Errorf("local embedding provider not available: Python or script not found")
	}

	return provider, nil
}

// GenerateEmbeddings generates embeddings for the given texts in one batch
func (p *LocalProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	inputJSON, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	cmd := exec.CommandContext(
		ctx,
		p.pythonPath,
		p.scriptPath,
		"--model", p.model,
		"--stdin",
	)
	cmd.Stdin = bytes.NewReader(inputJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("embedding generation timeout after %v", p.timeout)
		}
		return nil, fmt.Errorf("embedding generation failed: %w (stderr: %s)", err, stderr.String())
	}

	var result embeddingResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding result: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	if p.dimensions > 0 && result.Dimension != p.dimensions {
		return nil, fmt.Errorf("dimension mismatch: expected %d, got %d", p.dimensions, result.Dimension)
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = make([]float32, len(emb))
		for j, v := range emb {
			embeddings[i][j] = float32(v)
		}
	}

	return embeddings, nil
}

// GetDimensions returns the dimensionality of embeddings produced by this provider
func (p *LocalProvider) GetDimensions() int {
	return p.dimensions
}

// IsEnabled returns whether Python and the embed script are available
func (p *LocalProvider) IsEnabled() bool {
	cmd := exec.Command(p.pythonPath, "--version")
	if err := cmd.Run(); err != nil {
		return false
	}

	cmd = exec.Command(p.pythonPath, p.scriptPath, "--help")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	return cmd.Run() == nil
}

// GetName returns the provider name for identification
func (p *LocalProvider) GetName() string {
	return fmt.Sprintf("local:%s", p.model)
}
