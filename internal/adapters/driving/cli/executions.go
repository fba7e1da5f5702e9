package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
	"github.com/custodia-labs/mailbrain/internal/core/services"
)

var (
	executionsLimit int
	executionsJSON  bool
)

var executionsCmd = &cobra.Command{
	Use:   "executions",
	Short: "Inspect recorded workflow executions",
	Long: `List and view recorded workflow executions.

Executions survive restarts only with the sqlite storage backend
('mailbrain config set storage.backend sqlite').`,
}

var executionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent executions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runExecutionsList,
}

var executionsGetCmd = &cobra.Command{
	Use:   "get [execution-id]",
	Short: "Show an execution with its steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecutionsGet,
}

func init() {
	executionsListCmd.Flags().IntVarP(&executionsLimit, "limit", "n", services.DefaultListLimit, "maximum number of executions")
	executionsCmd.PersistentFlags().BoolVar(&executionsJSON, "json", false, "output as JSON")

	executionsCmd.AddCommand(executionsListCmd)
	executionsCmd.AddCommand(executionsGetCmd)
	rootCmd.AddCommand(executionsCmd)
}

func runExecutionsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}

	summaries, err := rt.Workflow.ListRecent(ctx, executionsLimit)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	if executionsJSON {
		if summaries == nil {
			summaries = []domain.ExecutionSummary{}
		}
		return outputJSON(cmd, summaries)
	}

	if len(summaries) == 0 {
		cmd.Println("No executions recorded.")
		return nil
	}

	cmd.Println(headingStyle.Render("Executions:"))
	cmd.Println()
	for i := range summaries {
		s := &summaries[i]
		cmd.Printf("  %s  %s\n", s.ID, renderExecutionStatus(s.Status))
		cmd.Printf("    Question: %s\n", s.Question)
		cmd.Printf("    Created: %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if s.Citations > 0 {
			cmd.Printf("    Citations: %d\n", s.Citations)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d executions\n", len(summaries))
	return nil
}

func runExecutionsGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := requireRuntime(ctx)
	if err != nil {
		return err
	}

	exec, err := rt.Workflow.Get(ctx, args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("execution %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get execution: %w", err)
	}

	if executionsJSON {
		return outputJSON(cmd, exec)
	}
	outputExecution(cmd, exec)
	return nil
}
