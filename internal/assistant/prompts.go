package assistant

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the instruction texts sent to the language model and the
// canned answers returned without calling it.
type Prompts struct {
	SystemPrompt    string         `yaml:"system_prompt"`
	SummarizePrompt string         `yaml:"summarize_prompt"`
	ErrorResponses  ErrorResponses `yaml:"error_responses"`
}

// ErrorResponses are user-facing answers for failure cases.
type ErrorResponses struct {
	NoDocuments     string `yaml:"no_documents"`
	ProcessingError string `yaml:"processing_error"`
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		SystemPrompt: "You are a helpful assistant that answers questions using the provided context. " +
			"Base your answer only on the context fragments. " +
			"If the context does not contain the answer, say so instead of guessing.",
		SummarizePrompt: "Summarize the following dialog concisely. " +
			"Keep the key questions, answers, and decisions.",
		ErrorResponses: ErrorResponses{
			NoDocuments:     "No relevant documents were found for your question. Try rephrasing it or rebuild the knowledge base.",
			ProcessingError: "An error occurred while processing your question. Please try again later.",
		},
	}
}

// LoadPrompts reads a prompt file and overlays it on the defaults, so a
// partial file only overrides what it names. An empty path returns the
// defaults unchanged.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, fmt.Errorf("read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return prompts, fmt.Errorf("parse prompts file: %w", err)
	}
	return prompts, nil
}
