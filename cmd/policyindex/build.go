package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/policyindex/internal/indexer"
)

var (
	buildDir       string
	buildChunkSize int
	buildOverlap   int
	buildBatchSize int
	buildWorkers   int
	buildRebuild   bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the documents of a directory",
	Long: `Reads every .pdf and .txt file directly inside the source directory,
chunks and embeds the text and stores it. Existing chunks are updated in
place; --rebuild deletes the whole index first.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildDir, "dir", "d", "", "source directory (default from config)")
	buildCmd.Flags().IntVar(&buildChunkSize, "chunk-size", 0, "target words per chunk (default from config)")
	buildCmd.Flags().IntVar(&buildOverlap, "overlap", 0, "words repeated between chunks (default from config)")
	buildCmd.Flags().IntVar(&buildBatchSize, "batch-size", 0, "texts per embedding request (default from config)")
	buildCmd.Flags().IntVar(&buildWorkers, "workers", 0, "concurrent embedding requests (default from config)")
	buildCmd.Flags().BoolVar(&buildRebuild, "rebuild", false, "delete all indexed data before building")
	rootCmd.AddCommand(buildCmd)
}

// buildOptions merges build flags over configuration; only flags the user set win
func buildOptions(cmd *cobra.Command, a *app) indexer.Options {
	opts := indexer.Options{
		Dir:       a.cfg.SourceDir,
		ChunkSize: a.cfg.Chunker.ChunkSize,
		Overlap:   a.cfg.Chunker.Overlap,
		BatchSize: a.cfg.Embedder.BatchSize,
		Workers:   a.cfg.Embedder.Workers,
		Rebuild:   buildRebuild,
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		opts.Dir = buildDir
	}
	if flags.Changed("chunk-size") {
		opts.ChunkSize = buildChunkSize
	}
	if flags.Changed("overlap") {
		opts.Overlap = buildOverlap
	}
	if flags.Changed("batch-size") {
		opts.BatchSize = buildBatchSize
	}
	if flags.Changed("workers") {
		opts.Workers = buildWorkers
	}
	return opts
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	opts := buildOptions(cmd, a)
	stats, err := indexer.New(a.store, a.emb, a.logger).Build(ctx, opts)
	switch {
	case errors.Is(err, indexer.ErrNoDocuments):
		a.logger.Warn("no source documents found", "dir", opts.Dir)
		cmd.Printf("No .pdf or .txt documents found in %s\n", opts.Dir)
		return nil
	case errors.Is(err, indexer.ErrNoChunks):
		a.logger.Warn("documents produced no text", "dir", opts.Dir, "failed", stats.DocumentsFailed)
		cmd.Printf("No text could be extracted from the %d documents in %s\n", stats.DocumentsFound, opts.Dir)
		return nil
	case err != nil:
		return err
	}

	cmd.Printf("Indexed %d of %d documents (%d chunks, dimension %d) in %v\n",
		stats.DocumentsIndexed, stats.DocumentsFound, stats.ChunksStored, stats.Dimension, stats.Duration.Round(time.Millisecond))
	for _, msg := range stats.Errors {
		cmd.Printf("  skipped: %s\n", msg)
	}
	return nil
}
