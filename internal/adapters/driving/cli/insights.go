package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

var threatLimit int

var indexAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarise senders, categories and activity of the corpus",
	Args:  cobra.NoArgs,
	RunE:  runIndexAnalytics,
}

var indexThreatsCmd = &cobra.Command{
	Use:   "threats [query]",
	Short: "Scan indexed messages for phishing and spoofing",
	Long: `Scans messages for phishing phrases, suspicious sender domains and URLs,
typosquatting and brand spoofing. Without a query the whole index is scanned
up to --limit messages; with a query only the most similar messages are.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexThreats,
}

func init() {
	indexThreatsCmd.Flags().IntVarP(&threatLimit, "limit", "n", domain.DefaultThreatScanLimit,
		"maximum number of messages to scan")

	indexCmd.AddCommand(indexAnalyticsCmd)
	indexCmd.AddCommand(indexThreatsCmd)
}

func runIndexAnalytics(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	a := rt.Insights.Analytics()
	if indexJSON {
		return outputJSON(cmd, a)
	}

	cmd.Println(headingStyle.Render("[Overview]"))
	cmd.Printf("  Messages: %d\n", a.Overview.Messages)
	if !a.Overview.EarliestDate.IsZero() {
		cmd.Printf("  Date range: %s to %s\n",
			a.Overview.EarliestDate.Format("2006-01-02"), a.Overview.LatestDate.Format("2006-01-02"))
	}
	cmd.Printf("  Average length: %.0f characters\n", a.Overview.AverageLength)
	cmd.Printf("  Active days: %d (%.1f per day)\n", a.Timeline.Days, a.Timeline.AveragePerDay)
	cmd.Println()

	if len(a.Senders) > 0 {
		cmd.Println(headingStyle.Render("[Top senders]"))
		for _, s := range a.Senders {
			cmd.Printf("  %-32s %4d  %5.1f%%\n", s.Sender, s.Count, s.Percent)
		}
		cmd.Println()
	}

	cmd.Println(headingStyle.Render("[Categories]"))
	for _, c := range domain.CategoryOrder() {
		if n := a.Categories[c]; n > 0 {
			cmd.Printf("  %-14s %d\n", c, n)
		}
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[Priority]"))
	for _, p := range []domain.Priority{domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow} {
		cmd.Printf("  %-14s %d\n", p, a.Priorities[p])
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[Sentiment]"))
	for _, s := range []domain.Sentiment{domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative} {
		cmd.Printf("  %-14s %d\n", s, a.Sentiments[s])
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[Threads]"))
	cmd.Printf("  Threads: %d\n", a.Threads.Threads)
	cmd.Printf("  Originals: %d, replies: %d, forwards: %d\n", a.Threads.Originals, a.Threads.Replies, a.Threads.Forwards)

	if len(a.Keywords) > 0 {
		cmd.Println()
		cmd.Println(headingStyle.Render("[Keywords]"))
		words := make([]string, len(a.Keywords))
		for i, k := range a.Keywords {
			words[i] = fmt.Sprintf("%s (%d)", k.Word, k.Count)
		}
		cmd.Printf("  %s\n", strings.Join(words, ", "))
	}
	return nil
}

func runIndexThreats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	report, err := rt.Insights.ScanThreats(ctx, query, threatLimit)
	if err != nil {
		return fmt.Errorf("threat scan failed: %w", err)
	}

	if indexJSON {
		return outputJSON(cmd, report)
	}
	return outputThreatReport(cmd, report)
}

func outputThreatReport(cmd *cobra.Command, report *domain.ThreatReport) error {
	cmd.Printf("Scanned %d messages.\n", report.Analyzed)
	levels := make([]string, 0, len(report.Counts))
	for _, level := range domain.ThreatLevels() {
		levels = append(levels, fmt.Sprintf("%s %d", level, report.Counts[level]))
	}
	cmd.Printf("  %s\n", strings.Join(levels, ", "))
	cmd.Println()

	flagged := 0
	for i := range report.Threats {
		a := &report.Threats[i]
		if a.Level == domain.ThreatSafe {
			continue
		}
		flagged++
		subject := a.Subject
		if subject == "" {
			subject = a.MessageID
		}
		cmd.Printf("  [%s] %s (%.2f)\n", renderThreatLevel(a.Level), subject, a.Score)
		cmd.Printf("      %s\n", dimStyle.Render(a.MessageID+"  "+a.Sender))
		for _, ind := range a.Indicators {
			cmd.Printf("      - %s: %s\n", ind.Type, ind.Description)
		}
		cmd.Println()
	}
	if flagged == 0 {
		cmd.Println("No threats found.")
		cmd.Println()
	}

	for _, r := range report.Recommendations {
		cmd.Println(r)
	}
	return nil
}
