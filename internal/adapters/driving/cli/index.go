package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

var (
	searchLimit int
	indexJSON   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and query the semantic index",
	Long: `Commands for the semantic index over the configured message source.

The index lives in memory: each command loads the source and embeds it
before running. 'mailbrain serve' keeps one index for its lifetime.`,
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load the message source and build the index",
	Args:  cobra.NoArgs,
	RunE:  runIndexBuild,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed messages",
	Long: `Performs semantic search across all indexed messages.
Results are ordered by similarity; ties go to the newest message.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexSearch,
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and corpus statistics",
	Args:  cobra.NoArgs,
	RunE:  runIndexStats,
}

func init() {
	indexSearchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	indexCmd.PersistentFlags().BoolVar(&indexJSON, "json", false, "output as JSON")

	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexSearchCmd)
	indexCmd.AddCommand(indexStatsCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexBuild(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}

	cmd.Println("Building index...")
	stats, err := rt.Index.Refresh(ctx)
	if errors.Is(err, domain.ErrSourceUnavailable) && !rt.Settings.Source.IsConfigured() {
		return errNoSource
	}
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	if indexJSON {
		return outputJSON(cmd, stats)
	}
	cmd.Printf("Indexed %d messages (%d chunks, %d skipped).\n", stats.Messages, stats.Chunks, stats.Skipped)
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	results, err := rt.Index.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if indexJSON {
		if results == nil {
			results = []domain.SearchResult{}
		}
		return outputJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		// Format: [N] Subject (Score)
		subject := results[i].Subject
		if subject == "" {
			subject = results[i].MessageID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, subject, results[i].Score)
		cmd.Printf("      %s\n", dimStyle.Render(results[i].MessageID+"  "+results[i].Sender))
		if results[i].Snippet != "" {
			cmd.Printf("      %s\n", results[i].Snippet)
		}
		cmd.Println()
	}

	return nil
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	stats, err := rt.EnsureIndex(ctx)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if indexJSON {
		return outputJSON(cmd, stats)
	}

	cmd.Println(headingStyle.Render("[Index]"))
	cmd.Printf("  Messages: %d\n", stats.Messages)
	cmd.Printf("  Chunks: %d\n", stats.Chunks)
	cmd.Printf("  Skipped: %d\n", stats.Skipped)
	cmd.Printf("  Model: %s (%d dimensions)\n", stats.Model, stats.Dimensions)
	if !stats.BuiltAt.IsZero() {
		cmd.Printf("  Built: %s\n", stats.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
	cmd.Println()

	corpus := stats.Corpus
	cmd.Println(headingStyle.Render("[Corpus]"))
	cmd.Printf("  Messages: %d\n", corpus.Count)
	if !corpus.EarliestDate.IsZero() {
		cmd.Printf("  Date range: %s to %s\n",
			corpus.EarliestDate.Format("2006-01-02"), corpus.LatestDate.Format("2006-01-02"))
	}
	cmd.Printf("  Unique senders: %d\n", corpus.UniqueSenders)
	cmd.Printf("  Threads: %d\n", corpus.UniqueThreads)
	return nil
}
