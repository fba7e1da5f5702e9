package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your email",
	Long: `Runs the question-answering workflow over the indexed mail corpus.

The index is built from the configured source on first use. The execution
record is printed even when a step fails; a failed answer step leaves the
execution partial with the retrieved evidence intact.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", domain.DefaultTopK, "number of messages to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the execution record as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	exec, err := rt.Workflow.Invoke(ctx, domain.InvokeRequest{Question: args[0], TopK: askTopK})
	if err != nil {
		return err
	}

	if askJSON {
		return outputJSON(cmd, exec)
	}
	outputExecution(cmd, exec)
	return nil
}
