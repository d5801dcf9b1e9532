package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// GenerateEmbeddings generates embeddings for the given texts
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// IsEnabled returns whether the provider is enabled and ready to use
	IsEnabled() bool

	// GetName returns the provider name for identification
	GetName() string
}

// Manager wraps an embedding Provider for use by the retrieval index
type Manager struct {
	provider Provider
	disabled bool
}

// NewManager creates a Manager from the given config. When embeddings are
// disabled the Manager is still usable; every embed call returns a policy
// error instead.
func NewManager(cfg config.EmbeddingConfig, ai config.AIConfig) (*Manager, error) {
	if cfg.Disabled {
		return &Manager{provider: &DisabledProvider{}, disabled: true}, nil
	}

	var (
		provider Provider
		err      error
	)

	switch strings.ToLower(cfg.Method) {
	case "local":
		provider, err = NewLocalProvider(cfg)
	case "remote":
		provider, err = NewRemoteProvider(cfg, ai)
	default:
		return nil, fmt.Errorf("unsupported embedding method: %s", cfg.Method)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	return &Manager{provider: provider}, nil
}

// GenerateEmbeddings generates embeddings using the configured provider
func (m *Manager) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if m.disabled {
		return nil, errors.New(errors.ErrTypePolicy, "embeddings are disabled").
			WithKind(errors.KindEmbeddingsDisabled).
			WithSuggestion("Set ASKDB_DISABLE_EMBEDDINGS=false to enable vector retrieval")
	}

	if !m.provider.IsEnabled() {
		return nil, errors.Newf(errors.ErrTypeEmbedding,
			"embedding provider %s is not ready", m.provider.GetName()).
			WithKind(errors.KindEmbedderNotReady)
	}

	vectors, err := m.provider.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeEmbedding,
			"embedding provider %s failed", m.provider.GetName()).
			WithKind(errors.KindEmbeddingProviderError)
	}

	return vectors, nil
}

// IsEnabled returns whether embeddings are enabled and the provider is ready
func (m *Manager) IsEnabled() bool {
	return !m.disabled && m.provider.IsEnabled()
}

// Disabled reports whether embeddings were turned off by configuration
func (m *Manager) Disabled() bool {
	return m.disabled
}

// GetDimensions returns the embedding dimensions
func (m *Manager) GetDimensions() int {
	return m.provider.GetDimensions()
}

// GetName returns the active provider name
func (m *Manager) GetName() string {
	return m.provider.GetName()
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (p *DisabledProvider) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New(errors.ErrTypePolicy, "embeddings are disabled").
		WithKind(errors.KindEmbeddingsDisabled)
}

func (p *DisabledProvider) GetDimensions() int {
	return 0
}

func (p *DisabledProvider) IsEnabled() bool {
	return false
}

func (p *DisabledProvider) GetName() string {
	return "disabled"
}
