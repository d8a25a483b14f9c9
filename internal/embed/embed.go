// Package embed generates vector embeddings for chunk and query text.
package embed

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
)

// OnErrorPolicy controls what happens when the provider fails to embed a
// text after retries are exhausted.
type OnErrorPolicy string

const (
	// OnErrorFail propagates the provider error to the caller, failing the
	// build that requested the embedding.
	OnErrorFail OnErrorPolicy = "fail"

	// OnErrorSkip reports ErrSkipChunk so the caller can drop the chunk
	// from the corpus while keeping the remaining positions aligned.
	OnErrorSkip OnErrorPolicy = "skip"

	// OnErrorDegrade substitutes a random vector of the expected
	// dimensionality and logs a warning. Retrieval quality for the
	// affected chunk is degraded. This matches the original pipeline and
	// is the default for compatibility.
	OnErrorDegrade OnErrorPolicy = "degrade"
)

// ErrSkipChunk signals that a text could not be embedded and its chunk
// should be dropped under the "skip" policy.
var ErrSkipChunk = errors.New("embedding unavailable, chunk should be skipped")

// Embedder generates fixed-dimension vectors for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// resolveEmbedError applies the failure policy to a provider error.
// Under degrade it returns a random vector of the expected dimensionality.
func resolveEmbedError(policy OnErrorPolicy, model string, dims int, err error) ([]float32, error) {
	switch policy {
	case OnErrorSkip:
		slog.Warn("embedding failed, chunk will be dropped",
			slog.String("model", model),
			slog.String("error", err.Error()))
		return nil, ErrSkipChunk
	case OnErrorDegrade:
		slog.Warn("embedding failed, substituting random vector",
			slog.String("model", model),
			slog.Int("dimensions", dims),
			slog.String("error", err.Error()))
		vec := make([]float32, dims)
		for i := range vec {
			vec[i] = rand.Float32()
		}
		return vec, nil
	default:
		return nil, err
	}
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
