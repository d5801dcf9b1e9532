package cmd

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/logging"
)

// Root builds the top-level CLI command with all subcommands attached.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "askdb",
		Usage: "Natural language queries over the entities and DMS databases",
		Description: `askdb translates natural language questions into parameterized MySQL
SELECT statements against two fixed schemas: the entity registry
("entities") and the deal management system ("dms"). It can run as an
HTTP service or answer one-shot questions from the command line.`,
		Commands: []*cli.Command{
			ServeCommand(),
			ClassifyCommand(),
			QueryCommand(),
			IndexCommand(),
			ConfigCommand(),
		},
	}
}

func Execute() error {
	ctx := context.Background()
	return Root().Run(ctx, os.Args)
}

// loadConfig loads configuration and initializes the global logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := logging.InitializeLogger(cfg.Logging); err != nil {
		return nil, err
	}

	return cfg, nil
}
