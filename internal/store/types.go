// Package store owns the vector similarity index and the parallel
// chunk/metadata arrays behind it: build, persist, reload, and
// nearest-neighbor search. The index and its arrays are published as one
// atomically swapped snapshot so readers never observe a half-replaced
// knowledge base.
package store

import (
	"errors"
	"fmt"
)

// ErrEmptyCorpus indicates a build was attempted with zero chunks.
var ErrEmptyCorpus = errors.New("no chunks to build knowledge base from")

// ErrNotBuilt indicates save was called before any build or load.
var ErrNotBuilt = errors.New("knowledge base is not built")

// ErrDimensionMismatch indicates a vector dimension mismatch between the
// index and an embedding.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (rebuild the index with the current embedding model)", e.Expected, e.Got)
}

// SearchResult pairs a chunk with its squared Euclidean distance to the
// query. Results are transient and never persisted.
type SearchResult struct {
	Content  string
	Metadata map[string]string
	Distance float32
}

// Info summarizes the loaded knowledge base for status reporting.
type Info struct {
	TotalChunks    int
	TotalTokens    int
	UniqueSources  int
	UniqueTitles   int
	UniqueHeaders  int
	EmbeddingModel string
}
