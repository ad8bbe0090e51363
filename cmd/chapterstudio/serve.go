package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/azyu/chapterstudio/internal/generation"
	"github.com/azyu/chapterstudio/internal/llm/adapters"
	"github.com/azyu/chapterstudio/internal/logging"
	"github.com/azyu/chapterstudio/internal/server"
	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference backend",
	Long: `Serve runs the HTTP backend the studio talks to: chapter generation
through the configured LLM provider, chapter storage and the character,
timeline and glossary collections, all in one SQLite file. A .env file in
the working directory is loaded first.`,
	Args: cobra.NoArgs,
	RunE: runServeCmd,
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cm, err := configManager()
	if err != nil {
		return err
	}
	settings, err := cm.Load()
	if err != nil {
		return err
	}

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = settings.Server.Addr
	}
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = settings.Server.DBPath
	}
	providerName, _ := cmd.Flags().GetString("provider")
	if providerName == "" {
		providerName = settings.Defaults.Provider
	}

	logger, err := logging.New(settings.Logging.Level, "")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := adapters.New(ctx, providerName, settings.Providers[providerName])
	if err != nil {
		return fmt.Errorf("failed to initialize LLM provider: %w", err)
	}
	defer provider.Close()

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	gen := generation.New(provider, generation.WithLogger(logger.Named("generation")))
	srv := server.New(db, gen, server.WithLogger(logger.Named("server")))

	logger.Info("provider ready", zap.String("provider", providerName), zap.Any("limits", provider.Limits()))
	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
