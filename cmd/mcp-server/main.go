package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/niramay-pgx-server/internal/app"
	"github.com/niramay-pgx-server/internal/config"
	"github.com/niramay-pgx-server/internal/logging"
	"github.com/niramay-pgx-server/internal/mcp"
	"github.com/niramay-pgx-server/internal/setup"
)

func main() {
	// stdout carries the protocol; diagnostics go to stderr
	log.SetOutput(os.Stderr)

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.NewCLI(os.Stdout).Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	loggingConfig := cfg.Logging
	if loggingConfig.Output == "" || loggingConfig.Output == "stdout" {
		loggingConfig.Output = "stderr"
	}
	logger, err := logging.NewLogger(loggingConfig)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	pipeline, err := app.NewPipeline(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build analysis pipeline")
	}
	defer pipeline.Close()

	mcpServer := mcp.NewServer(cfg.MCP, pipeline, pipeline.Parser(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	if err := mcpServer.Start(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		return
	}

	logger.Info("Niramay PGx MCP server stopped")
}
