package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/classify"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/schema"
)

func ClassifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Route a question to one of the two databases",
		ArgsUsage: "<question>",
		Description: `Classify a natural language question as targeting the entities or the
DMS schema, using keyword and table-name matching only. No model call
is made.

Examples:
  askdb classify "phone numbers for organisations in Berlin"
  askdb classify "open tickets assigned to John"`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runClassify(cmd.Args().First(), os.Stdout)
		},
	}
}

func runClassify(question string, out io.Writer) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New(errors.ErrTypeInput, "question required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalogs, err := schema.Load(cfg.Schema.EntitiesPath, cfg.Schema.DMSPath)
	if err != nil {
		return err
	}

	result := classify.Classify(question, catalogs)

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, string(payload))

	return nil
}
