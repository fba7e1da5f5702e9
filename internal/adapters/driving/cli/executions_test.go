package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

func TestExecutionsCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range executionsCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"get", "list"}, names)
}

func TestExecutionsGetCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := executeCommand(t, "executions", "get")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestExecutionsListCmd_Empty(t *testing.T) {
	setupTestServices(t, true)

	out, err := executeCommand(t, "executions", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No executions recorded.")
}

func TestExecutionsListCmd_NewestFirst(t *testing.T) {
	rt := setupTestServices(t, true)
	ctx := context.Background()
	_, err := rt.EnsureIndex(ctx)
	require.NoError(t, err)

	first, err := rt.Workflow.Invoke(ctx, domain.InvokeRequest{Question: "first question", TopK: 1})
	require.NoError(t, err)
	second, err := rt.Workflow.Invoke(ctx, domain.InvokeRequest{Question: "second question", TopK: 1})
	require.NoError(t, err)

	out, err := executeCommand(t, "executions", "list", "--json")
	require.NoError(t, err)

	var summaries []domain.ExecutionSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)
	assert.Equal(t, first.ID, summaries[1].ID)

	out, err = executeCommand(t, "executions", "list", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "second question")
	assert.NotContains(t, out, "first question")
	assert.Contains(t, out, "Total: 1 executions")
}

func TestExecutionsGetCmd(t *testing.T) {
	rt := setupTestServices(t, true)
	ctx := context.Background()
	_, err := rt.EnsureIndex(ctx)
	require.NoError(t, err)

	exec, err := rt.Workflow.Invoke(ctx, domain.InvokeRequest{Question: "invoice payment", TopK: 2})
	require.NoError(t, err)

	out, err := executeCommand(t, "executions", "get", exec.ID)
	require.NoError(t, err)
	assert.Contains(t, out, exec.ID)
	assert.Contains(t, out, "Question: invoice payment")
	assert.Contains(t, out, "semantic_search")

	out, err = executeCommand(t, "executions", "get", "--json", exec.ID)
	require.NoError(t, err)
	var got domain.WorkflowExecution
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, exec.ID, got.ID)
	assert.Equal(t, exec.Answer, got.Answer)
}

func TestExecutionsGetCmd_NotFound(t *testing.T) {
	setupTestServices(t, true)

	_, err := executeCommand(t, "executions", "get", "does-not-exist")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `execution "does-not-exist" not found`)
}
