package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/policyindex/internal/searcher"
	"github.com/dshills/policyindex/internal/storage"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Find the passages most similar to a question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to return (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	topK := a.cfg.TopK
	if cmd.Flags().Changed("top-k") {
		topK = queryTopK
	}

	if _, err := a.store.Dimension(ctx); errors.Is(err, storage.ErrDimensionUnknown) {
		return errors.New("index is empty; run 'policyindex build' first")
	}

	resp, err := searcher.NewSearcher(a.store, a.emb).Search(ctx, strings.Join(args, " "), topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(resp.Results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for _, r := range resp.Results {
		// Format: [N] Title p.Page (Score)
		cmd.Printf("[%d] %s p.%d (%.3f)\n", r.Rank, r.Title, r.PageNumber, r.Similarity)
		cmd.Printf("    %s\n\n", r.Text)
	}
	return nil
}
