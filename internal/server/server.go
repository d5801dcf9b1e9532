package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/askdb/askdb/internal/answer"
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/exec"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/retrieve"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/sqlgen"
	"github.com/askdb/askdb/internal/validate"
)

// Server wires the pipeline services behind the HTTP API
type Server struct {
	cfg       *config.Config
	catalogs  schema.Catalogs
	raw       map[schema.Target]string
	service   llm.Service
	index     *retrieve.Index
	generator *sqlgen.Generator
	validator *validate.Validator
	analyzer  *answer.Analyzer
	executor  *exec.Executor

	// embedded is the effective embedding state: config plus a provider
	// that actually initialized. False sends every request down the
	// summary-prompt fallback path.
	embedded bool

	buildMu sync.Mutex
}

// New constructs the server and all pipeline services. Schema files are
// loaded eagerly; a missing file is a startup error. A broken embedding
// provider degrades to disabled embeddings instead of failing startup.
func New(cfg *config.Config) (*Server, error) {
	logger := logging.GetLogger()

	catalogs, err := schema.Load(cfg.Schema.EntitiesPath, cfg.Schema.DMSPath)
	if err != nil {
		return nil, err
	}

	rawEntities, err := schema.ReadSchemaFile(cfg.Schema.EntitiesPath)
	if err != nil {
		return nil, err
	}
	rawDMS, err := schema.ReadSchemaFile(cfg.Schema.DMSPath)
	if err != nil {
		return nil, err
	}

	manager, err := embedding.NewManager(cfg.Embedding, cfg.AI)
	if err != nil {
		logger.WithError(err).Warn("Embedding provider unavailable; continuing with embeddings disabled")
		manager, _ = embedding.NewManager(config.EmbeddingConfig{Disabled: true}, cfg.AI)
	}

	service := llm.NewClient(cfg.AI)
	index := retrieve.NewIndex(manager)

	embedded := !cfg.Embedding.Disabled && manager.IsEnabled()

	return &Server{
		cfg:      cfg,
		catalogs: catalogs,
		raw: map[schema.Target]string{
			schema.TargetEntities: string(rawEntities),
			schema.TargetDMS:      string(rawDMS),
		},
		service:   service,
		index:     index,
		generator: sqlgen.NewGenerator(service),
		validator: validate.NewValidator(service, validate.Policy(cfg.Pipeline.ValidationPolicy)),
		analyzer:  answer.NewAnalyzer(service, index, catalogs, embedded),
		executor:  exec.NewExecutor(cfg.Database),
		embedded:  embedded,
	}, nil
}

// embeddingsOff reports whether retrieval should be skipped entirely,
// whether by configuration or because the provider failed to initialize
func (s *Server) embeddingsOff() bool {
	return !s.embedded
}

// ensureIndex builds the vector index once from the raw schema files.
// Build calls are serialized; search is only safe against a built index.
func (s *Server) ensureIndex(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	if s.index.Built() {
		return nil
	}

	var chunks []retrieve.Chunk
	chunks = append(chunks, retrieve.ChunkSchema(schema.TargetEntities, s.raw[schema.TargetEntities], retrieve.DefaultChunkSize)...)
	chunks = append(chunks, retrieve.ChunkSchema(schema.TargetDMS, s.raw[schema.TargetDMS], retrieve.DefaultChunkSize)...)

	return s.index.Build(ctx, chunks)
}

// Start runs the HTTP server until the context is canceled, then shuts
// down gracefully within the configured timeout
func (s *Server) Start(ctx context.Context) error {
	logger := logging.GetLogger()

	httpServer := &http.Server{
		Addr:        s.cfg.Server.Addr,
		Handler:     s.Router(),
		ReadTimeout: s.cfg.Server.RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP server listening on %s", s.cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("Shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return s.executor.Close()
}
