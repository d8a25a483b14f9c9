package assistant

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Chat roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn sent to the language model.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest carries a full chat exchange plus sampling settings.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// CompletionResult is the model answer plus token accounting.
type CompletionResult struct {
	Content    string
	TokensUsed int
}

// ChatCompleter produces chat completions. The assistant depends on this
// interface so tests can substitute a canned model.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// OpenAICompleter implements ChatCompleter over the OpenAI chat API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

var _ ChatCompleter = (*OpenAICompleter)(nil)

// NewOpenAICompleter creates a completer for the given model.
func NewOpenAICompleter(apiKey, baseURL, model string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Complete sends the chat exchange and returns the first choice.
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}

	return &CompletionResult{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// ModelName returns the chat model identifier.
func (c *OpenAICompleter) ModelName() string {
	return c.model
}
