package driven

// PromptStore resolves prompt templates by name, letting users override
// the built-in answer prompts.
type PromptStore interface {
	// Load returns the override for name, or the built-in template.
	Load(name string) (string, error)

	// Reload drops cached overrides.
	Reload()
}

// Prompt names.
const (
	// PromptAnswerSystem takes no format arguments.
	PromptAnswerSystem = "answer_system"

	// PromptAnswerUser is formatted with the evidence block, then the question.
	PromptAnswerUser = "answer_user"
)
