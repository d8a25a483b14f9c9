package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedding dimensions per known OpenAI model. The dimensionality must be
// known up front so the degrade policy can produce a vector of the right
// size even when the provider never answered.
var modelDimensions = map[string]int{
	"text-embedding-ada-002": 1536,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
}

// DefaultOpenAIDimensions is assumed for models not in the table.
const DefaultOpenAIDimensions = 1536

// DefaultOpenAIModel is the default embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional OpenAI-compatible endpoint
	Model   string
	OnError OnErrorPolicy
	Retry   RetryConfig
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// Provider failures are retried with backoff and then resolved according
// to the configured OnError policy.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
	policy OnErrorPolicy
	retry  RetryConfig
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.OnError == "" {
		cfg.OnError = OnErrorDegrade
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	dims, ok := modelDimensions[cfg.Model]
	if !ok {
		dims = DefaultOpenAIDimensions
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		dims:   dims,
		policy: cfg.OnError,
		retry:  cfg.Retry,
	}, nil
}

// Embed generates an embedding for a single text. Provider errors are
// retried and then resolved by the failure policy, so the returned error
// is nil under the degrade policy even when the provider was unreachable.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := withRetry(ctx, e.retry, func() error {
		v, err := e.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err == nil {
		return vec, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return resolveEmbedError(e.policy, e.model, e.dims, err)
}

func (e *OpenAIEmbedder) embedOnce(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data in response")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts sequentially.
// Concurrent dispatch is left to the caller so the index build can bound
// parallelism in one place.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		results[i] = vec
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// Close releases resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
