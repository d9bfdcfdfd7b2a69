// Package prompt holds the LLM prompts as named templates. Built-in
// templates are registered on first use; JSON files loaded at runtime
// replace them by ID, so prompts can change without a rebuild.
package prompt

// PromptTemplate is a system prompt plus a text/template for the user
// prompt. Category defaults to the folder a file was loaded from.
type PromptTemplate struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Category       string           `json:"category"`
	Description    string           `json:"description"`
	SystemPrompt   string           `json:"system_prompt"`
	UserPromptTmpl string           `json:"user_prompt_template"`
	Variables      []PromptVariable `json:"variables"`
	Version        string           `json:"version"`
}

// PromptVariable documents one template variable.
type PromptVariable struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Vars are the values substituted into a user prompt template.
type Vars map[string]interface{}

// Prompt IDs used by the service.
const (
	QAAnalyst          = "qa.analyst"
	ExtractionLineItem = "extraction.line_item"
)
