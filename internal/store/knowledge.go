package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"golang.org/x/sync/errgroup"

	"github.com/ragbase/ragbase/internal/chunk"
	"github.com/ragbase/ragbase/internal/embed"
)

// DefaultBuildWorkers bounds concurrent embedding calls during a build.
const DefaultBuildWorkers = 8

// KnowledgeBase is the aggregate of the vector index and the parallel
// chunk/metadata arrays. chunks[i], metadatas[i], and the i-th indexed
// vector always refer to the same logical unit; the whole aggregate is
// rebuilt wholesale and swapped in one step, never patched in place.
type KnowledgeBase struct {
	embedder     embed.Embedder
	buildWorkers int

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is one immutable generation of the knowledge base. Readers
// take the pointer under a short read lock and then work lock-free.
type snapshot struct {
	graph     *hnsw.Graph[int]
	chunks    []*chunk.Chunk
	metadatas []map[string]string
	model     string
	dims      int
}

// New creates an empty knowledge base backed by the given embedder.
func New(embedder embed.Embedder) *KnowledgeBase {
	return &KnowledgeBase{
		embedder:     embedder,
		buildWorkers: DefaultBuildWorkers,
	}
}

// newGraph creates the vector index structure. The graph orders neighbors
// by Euclidean distance; reported distances are squared (see Search).
func newGraph() *hnsw.Graph[int] {
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance
	g.M = 16
	g.Ml = 0.25
	g.EfSearch = 20
	return g
}

// Build embeds every chunk and replaces the knowledge base with a new
// snapshot. Embedding calls run concurrently with a bounded limit; the
// vector dimensionality is taken from the first embedding. Chunks whose
// embedding is resolved to ErrSkipChunk by the embedder's failure policy
// are dropped from all three arrays so positions stay aligned.
func (kb *KnowledgeBase) Build(ctx context.Context, chunks []*chunk.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}

	slog.Info("building knowledge base",
		slog.Int("chunks", len(chunks)),
		slog.String("model", kb.embedder.ModelName()))

	vectors := make([][]float32, len(chunks))
	skipped := make([]bool, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(kb.buildWorkers)
	for i, c := range chunks {
		g.Go(func() error {
			vec, err := kb.embedder.Embed(gctx, c.Content)
			if err != nil {
				if errors.Is(err, embed.ErrSkipChunk) {
					skipped[i] = true
					return nil
				}
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	snap := &snapshot{model: kb.embedder.ModelName()}
	for i, c := range chunks {
		if skipped[i] {
			continue
		}
		if snap.dims == 0 {
			snap.dims = len(vectors[i])
		}
		if len(vectors[i]) != snap.dims {
			return ErrDimensionMismatch{Expected: snap.dims, Got: len(vectors[i])}
		}
		snap.chunks = append(snap.chunks, c)
		snap.metadatas = append(snap.metadatas, c.Metadata)
	}
	if len(snap.chunks) == 0 {
		return ErrEmptyCorpus
	}

	snap.graph = newGraph()
	pos := 0
	for i := range chunks {
		if skipped[i] {
			continue
		}
		snap.graph.Add(hnsw.MakeNode(pos, vectors[i]))
		pos++
	}

	kb.mu.Lock()
	kb.snap = snap
	kb.mu.Unlock()

	slog.Info("knowledge base built",
		slog.Int("chunks", len(snap.chunks)),
		slog.Int("dimensions", snap.dims))
	return nil
}

// Search embeds the query and returns the k nearest chunks in ascending
// distance order. An unbuilt or empty knowledge base yields no results.
// The effective k is capped at the corpus size.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]*SearchResult, error) {
	kb.mu.RLock()
	snap := kb.snap
	kb.mu.RUnlock()

	if snap == nil || len(snap.chunks) == 0 {
		return nil, nil
	}

	qvec, err := kb.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	// dims is zero when the snapshot was restored from the diagnostic
	// sidecar; the check resumes after the next rebuild.
	if snap.dims != 0 && len(qvec) != snap.dims {
		return nil, ErrDimensionMismatch{Expected: snap.dims, Got: len(qvec)}
	}

	if k > len(snap.chunks) {
		k = len(snap.chunks)
	}
	if k <= 0 {
		return nil, nil
	}

	nodes := snap.graph.Search(qvec, k)

	results := make([]*SearchResult, 0, len(nodes))
	for _, node := range nodes {
		if node.Key < 0 || node.Key >= len(snap.chunks) {
			continue
		}
		results = append(results, &SearchResult{
			Content:  snap.chunks[node.Key].Content,
			Metadata: snap.metadatas[node.Key],
			Distance: squaredEuclidean(qvec, node.Value),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results, nil
}

// Built reports whether an index is available.
func (kb *KnowledgeBase) Built() bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.snap != nil
}

// Size returns the number of indexed chunks.
func (kb *KnowledgeBase) Size() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	if kb.snap == nil {
		return 0
	}
	return len(kb.snap.chunks)
}

// Info summarizes the current snapshot.
func (kb *KnowledgeBase) Info() *Info {
	kb.mu.RLock()
	snap := kb.snap
	kb.mu.RUnlock()

	if snap == nil {
		return &Info{}
	}

	sources := make(map[string]struct{})
	titles := make(map[string]struct{})
	headers := make(map[string]struct{})
	totalTokens := 0
	for _, c := range snap.chunks {
		totalTokens += c.Tokens
		sources[c.Metadata[chunk.MetaSource]] = struct{}{}
		titles[c.Metadata[chunk.MetaDocumentTitle]] = struct{}{}
		if h, ok := c.Metadata[chunk.MetaHeader]; ok {
			headers[h] = struct{}{}
		}
	}

	return &Info{
		TotalChunks:    len(snap.chunks),
		TotalTokens:    totalTokens,
		UniqueSources:  len(sources),
		UniqueTitles:   len(titles),
		UniqueHeaders:  len(headers),
		EmbeddingModel: snap.model,
	}
}

// squaredEuclidean returns the squared L2 distance between two vectors.
// The graph traverses by plain Euclidean distance; squaring preserves the
// ordering, and reported distances follow the squared convention.
func squaredEuclidean(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
