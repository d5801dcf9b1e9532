package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/embedding"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/retrieve"
	"github.com/askdb/askdb/internal/schema"
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the vector index and report its stats",
		Description: `Chunk both schema definition files, embed every chunk with the
configured embedding provider, and report the resulting index stats.
Useful for verifying the embedding setup before starting the server.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runIndex(ctx, os.Stdout)
		},
	}
}

func runIndex(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Embedding.Disabled {
		return errors.New(errors.ErrTypeConfig, "embeddings are disabled").
			WithSuggestion("Set ASKDB_DISABLE_EMBEDDINGS=false to enable the vector index")
	}

	manager, err := embedding.NewManager(cfg.Embedding, cfg.AI)
	if err != nil {
		return err
	}

	entitiesRaw, err := schema.ReadSchemaFile(cfg.Schema.EntitiesPath)
	if err != nil {
		return err
	}

	dmsRaw, err := schema.ReadSchemaFile(cfg.Schema.DMSPath)
	if err != nil {
		return err
	}

	var chunks []retrieve.Chunk
	chunks = append(chunks, retrieve.ChunkSchema(schema.TargetEntities, string(entitiesRaw), retrieve.DefaultChunkSize)...)
	chunks = append(chunks, retrieve.ChunkSchema(schema.TargetDMS, string(dmsRaw), retrieve.DefaultChunkSize)...)

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = fmt.Sprintf(" Embedding %d schema chunks with %s...", len(chunks), manager.GetName())
	sp.Start()

	index := retrieve.NewIndex(manager)
	buildErr := index.Build(ctx, chunks)

	sp.Stop()

	if buildErr != nil {
		return buildErr
	}

	stats := index.Stats()
	fmt.Fprintf(out, "Vector index built\n")
	fmt.Fprintf(out, "  Chunks:     %d\n", stats.DocsLoaded)
	fmt.Fprintf(out, "  Provider:   %s\n", stats.Method)
	fmt.Fprintf(out, "  Dimensions: %d\n", manager.GetDimensions())

	return nil
}
