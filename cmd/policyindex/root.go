package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/policyindex/internal/config"
	"github.com/dshills/policyindex/internal/embedder"
	"github.com/dshills/policyindex/internal/logger"
	"github.com/dshills/policyindex/internal/storage"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "policyindex",
	Short: "Index policy documents for retrieval-augmented answering",
	Long: `policyindex ingests PDF and text policy documents, splits them into
overlapping sentence-aware passages, stores their embeddings in SQLite or
PostgreSQL and ranks passages against questions by cosine similarity.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default policyindex.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// app holds the dependencies shared by commands
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
	emb    embedder.Embedder
}

// loadConfig reads configuration and builds the logger
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  logger.Format(cfg.Log.Format),
		Verbose: verbose,
	})
	return cfg, log, nil
}

// openApp loads configuration and opens the store and embedder
func openApp(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.RedactedDatabaseURL(), err)
	}

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	log.Debug("initialized",
		"database", cfg.RedactedDatabaseURL(),
		"backend", store.Backend(),
		"provider", emb.Provider(),
		"model", emb.Model())

	return &app{cfg: cfg, logger: log, store: store, emb: emb}, nil
}

func (a *app) Close() error {
	return errors.Join(a.emb.Close(), a.store.Close())
}
