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
	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/exec"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/planner"
	"github.com/askdb/askdb/internal/schema"
)

func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Generate a query plan for a question",
		ArgsUsage: "<question>",
		Description: `Run the plan orchestrator for a single question and print the resulting
query plan as JSON. With --execute the plan is also run against the
classified database and the rows are printed.

Examples:
  askdb query "how many open tickets does each user have"
  askdb query --execute "phone numbers for ACME Corp"`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "execute",
				Usage: "Execute the generated SQL against the classified database",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runQuery(ctx, cmd.Args().First(), cmd.Bool("execute"), os.Stdout)
		},
	}
}

func runQuery(ctx context.Context, question string, execute bool, out io.Writer) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return errors.New(errors.ErrTypeInput, "question required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	service := llm.NewClient(cfg.AI)
	orchestrator := planner.NewOrchestrator(service, cfg.Pipeline.MaxRetries)

	plan, err := orchestrator.GenerateQueryPlan(ctx, question, nil)
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(out, string(payload))

	if !execute || !plan.SuccessStatus {
		return nil
	}

	return executePlan(ctx, cfg, question, plan, out)
}

// planParams binds one argument per ? placeholder in the plan's SQL.
// Orchestrator plans carry at most a LIMIT ? placeholder; a plan with no
// placeholders gets no arguments regardless of the Limit value.
func planParams(plan planner.QueryPlan) []interface{} {
	count := strings.Count(plan.SQL, "?")
	if count == 0 {
		return nil
	}

	limit := plan.Limit
	if limit <= 0 || limit > planner.MaxEffectiveLimit {
		limit = planner.MaxEffectiveLimit
	}

	params := make([]interface{}, count)
	for i := range params {
		params[i] = limit
	}

	return params
}

func executePlan(ctx context.Context, cfg *config.Config, question string, plan planner.QueryPlan, out io.Writer) error {
	catalogs, err := schema.Load(cfg.Schema.EntitiesPath, cfg.Schema.DMSPath)
	if err != nil {
		return err
	}

	target := classify.Classify(question, catalogs).Target
	if target == schema.TargetUnknown {
		target = schema.TargetEntities
	}

	executor := exec.NewExecutor(cfg.Database)
	defer executor.Close()

	result, err := executor.Query(ctx, target, plan.SQL, planParams(plan))
	if err != nil {
		return err
	}

	rows, err := json.MarshalIndent(result.Rows, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d row(s) from %s:\n%s\n", result.RowCount, target, string(rows))

	if note := exec.Diagnose(result); note != "" {
		fmt.Fprintln(out, note)
	}

	return nil
}
