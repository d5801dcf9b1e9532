package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the effective configuration after the .env file and environment variables have been applied. Secrets are masked.`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runConfigShow(os.Stdout)
		},
	}
}

func runConfigShow(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printConfig(cfg, out)

	return nil
}

func printConfig(cfg *config.Config, out io.Writer) {
	fmt.Fprintln(out, "Active Configuration")
	fmt.Fprintln(out, "====================")

	fmt.Fprintln(out, "\nAI:")
	fmt.Fprintf(out, "  Endpoint:    %s\n", cfg.AI.Endpoint)
	fmt.Fprintf(out, "  Deployment:  %s\n", cfg.AI.Deployment)
	fmt.Fprintf(out, "  API Version: %s\n", cfg.AI.APIVersion)
	fmt.Fprintf(out, "  Key:         %s\n", mask(cfg.AI.Key))
	fmt.Fprintf(out, "  Configured:  %t\n", cfg.AI.Configured())

	fmt.Fprintln(out, "\nEmbedding:")
	fmt.Fprintf(out, "  Disabled:    %t\n", cfg.Embedding.Disabled)
	fmt.Fprintf(out, "  Method:      %s\n", cfg.Embedding.Method)
	fmt.Fprintf(out, "  Local Model: %s\n", cfg.Embedding.LocalModel)
	fmt.Fprintf(out, "  Deployment:  %s\n", cfg.Embedding.Deployment)
	fmt.Fprintf(out, "  Dimensions:  %d\n", cfg.Embedding.Dimensions)

	fmt.Fprintln(out, "\nSchema:")
	fmt.Fprintf(out, "  Entities: %s\n", cfg.Schema.EntitiesPath)
	fmt.Fprintf(out, "  DMS:      %s\n", cfg.Schema.DMSPath)

	fmt.Fprintln(out, "\nDatabase:")
	fmt.Fprintf(out, "  Entities DSN: %s\n", mask(cfg.Database.EntitiesDSN))
	fmt.Fprintf(out, "  DMS DSN:      %s\n", mask(cfg.Database.DMSDSN))
	fmt.Fprintf(out, "  Execute SQL:  %t\n", cfg.Database.ExecuteSQL)

	fmt.Fprintln(out, "\nServer:")
	fmt.Fprintf(out, "  Addr:             %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  Request Timeout:  %s\n", cfg.Server.RequestTimeout)
	fmt.Fprintf(out, "  Shutdown Timeout: %s\n", cfg.Server.ShutdownTimeout)

	fmt.Fprintln(out, "\nPipeline:")
	fmt.Fprintf(out, "  Max Retries:       %d\n", cfg.Pipeline.MaxRetries)
	fmt.Fprintf(out, "  Retrieve Top K:    %d\n", cfg.Pipeline.TopK)
	fmt.Fprintf(out, "  Validation Policy: %s\n", cfg.Pipeline.ValidationPolicy)

	fmt.Fprintln(out, "\nLogging:")
	fmt.Fprintf(out, "  Level:  %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(out, "  Output: %s\n", cfg.Logging.Output)
}

// mask hides all but a short prefix of a secret value.
func mask(value string) string {
	if value == "" {
		return "(not set)"
	}

	if len(value) <= 4 {
		return "****"
	}

	return value[:4] + "****"
}
