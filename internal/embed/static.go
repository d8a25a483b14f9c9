package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// StaticDimensions is the embedding dimension of the static embedder.
const StaticDimensions = 256

// Feature weights for vector generation.
const (
	wordWeight  = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// wordPattern matches letter/digit sequences in any script.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// staticStopWords are high-frequency words excluded from the word features.
// N-gram features still cover them, so phrasing is not lost entirely.
var staticStopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "to": true, "in": true, "on": true, "for": true,
	"is": true, "are": true, "was": true, "be": true, "it": true,
	"this": true, "that": true, "with": true, "as": true, "at": true,
	"by": true, "from": true,
}

// StaticEmbedder generates embeddings by hashing words and character
// n-grams into a fixed-size vector. It needs no network or model files
// and is deterministic, at the cost of reduced semantic quality. Used as
// the offline provider and in tests.
type StaticEmbedder struct{}

var _ Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates a new static embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates an embedding for a single text.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	vector := make([]float32, StaticDimensions)

	for _, word := range wordPattern.FindAllString(strings.ToLower(trimmed), -1) {
		if staticStopWords[word] {
			continue
		}
		vector[hashToIndex(word, StaticDimensions)] += wordWeight
	}

	for _, ngram := range extractNgrams(strings.ToLower(trimmed), ngramSize) {
		vector[hashToIndex(ngram, StaticDimensions)] += ngramWeight
	}

	return normalizeVector(vector), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

// Dimensions returns the embedding dimension.
func (e *StaticEmbedder) Dimensions() int {
	return StaticDimensions
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return "static-256"
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	return nil
}

// extractNgrams returns rune n-grams of the text with whitespace collapsed.
func extractNgrams(text string, n int) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) < n {
		return nil
	}
	ngrams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		ngrams = append(ngrams, string(runes[i:i+n]))
	}
	return ngrams
}

// hashToIndex maps a feature string to a vector index.
func hashToIndex(s string, dims int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dims))
}
