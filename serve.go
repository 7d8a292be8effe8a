package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"walrusweb/pkg/config"
	"walrusweb/pkg/server"
)

func serveRun(cmd *cobra.Command, _ []string) error {
	logger := commonRun()

	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info(
		fmt.Sprintf("starting %s in %s mode", programName, cfg.Environment),
		"component", programName,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error(err.Error(), "component", programName)
		}
	}()

	// Wait for interrupt/termination signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  serveRun,
	}
}
