package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// Styles degrade to plain text when stdout is not a terminal.
var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func renderExecutionStatus(s domain.ExecutionStatus) string {
	switch s {
	case domain.ExecutionCompleted:
		return okStyle.Render(string(s))
	case domain.ExecutionPartial:
		return warnStyle.Render(string(s))
	default:
		return string(s)
	}
}

func renderThreatLevel(l domain.ThreatLevel) string {
	switch l {
	case domain.ThreatCritical:
		return errorStyle.Render(string(l))
	case domain.ThreatWarning, domain.ThreatCaution:
		return warnStyle.Render(string(l))
	default:
		return okStyle.Render(string(l))
	}
}

func renderStepStatus(s domain.StepStatus) string {
	switch s {
	case domain.StepCompleted:
		return okStyle.Render(string(s))
	case domain.StepError:
		return errorStyle.Render(string(s))
	case domain.StepSkipped:
		return dimStyle.Render(string(s))
	default:
		return string(s)
	}
}

// outputJSON prints v as indented JSON.
func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// outputExecution prints an execution record for humans.
func outputExecution(cmd *cobra.Command, exec *domain.WorkflowExecution) {
	cmd.Printf("%s %s (%s)\n", headingStyle.Render("Execution:"), exec.ID, renderExecutionStatus(exec.Status))
	cmd.Printf("Question: %s\n", exec.Question)
	if exec.Intent != "" {
		cmd.Printf("Intent: %s\n", exec.Intent)
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("Steps:"))
	for _, step := range exec.Steps {
		cmd.Printf("  %-26s %s\n", step.Name, renderStepStatus(step.Status))
		if step.Error != "" {
			cmd.Printf("      %s\n", errorStyle.Render(step.Error))
		}
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("Answer:"))
	cmd.Printf("  %s\n", exec.Answer)

	if len(exec.Citations) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(headingStyle.Render("Citations:"))
	for i, c := range exec.Citations {
		label := c.Subject
		if label == "" {
			label = c.MessageID
		}
		cmd.Printf("  [%d] %s %s\n", i+1, label, dimStyle.Render("("+c.MessageID+")"))
		if c.Snippet != "" {
			cmd.Printf("      %s\n", c.Snippet)
		}
	}
}
