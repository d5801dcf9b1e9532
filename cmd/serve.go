package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/server"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Run the HTTP API server",
		Description: `Start the HTTP server exposing the classify, SQL generation, query, answer, and vector endpoints. The server runs until interrupted and shuts down gracefully.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides ASKDB_ADDR)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, cmd.String("addr"))
		},
	}
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if addr != "" {
		cfg.Server.Addr = addr
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	logger := logging.GetLogger()
	logger.WithField("addr", cfg.Server.Addr).Info("Starting askdb server")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
