package store

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coder/hnsw"

	"github.com/ragbase/ragbase/internal/chunk"
)

// previewLimit caps chunk content in the diagnostic sidecar. The file is
// a human-readable dump, not a backup; the fallback load path below is
// therefore lossy for longer chunks.
const previewLimit = 200

// metadataSidecar is the binary sidecar layout: the chunk array, the
// denormalized metadata array, and the embedding model that produced the
// indexed vectors.
type metadataSidecar struct {
	Chunks         []*chunk.Chunk
	Metadatas      []map[string]string
	EmbeddingModel string
	Dimensions     int
}

// diagnosticFile is the human-readable JSON sidecar.
type diagnosticFile struct {
	Timestamp      string            `json:"timestamp"`
	EmbeddingModel string            `json:"embedding_model"`
	TotalChunks    int               `json:"total_chunks"`
	Chunks         []diagnosticChunk `json:"chunks"`
}

type diagnosticChunk struct {
	ChunkID        int               `json:"chunk_id"`
	ContentPreview string            `json:"content_preview"`
	Tokens         int               `json:"tokens"`
	Metadata       map[string]string `json:"metadata"`
}

// statisticsFile is the aggregate statistics JSON sidecar.
type statisticsFile struct {
	Timestamp      string     `json:"timestamp"`
	TotalChunks    int        `json:"total_chunks"`
	TotalTokens    int        `json:"total_tokens"`
	Sources        countTable `json:"sources"`
	DocumentTitles countTable `json:"document_titles"`
	Headers        countTable `json:"headers"`
}

// countTable marshals as a JSON object with keys ordered by descending
// count (ties alphabetical). A plain map would lose the ordering the
// statistics file promises.
type countTable map[string]int

func (t countTable) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if t[keys[i]] != t[keys[j]] {
			return t[keys[i]] > t[keys[j]]
		}
		return keys[i] < keys[j]
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(t[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Save persists the knowledge base: the vector index at path, the binary
// metadata sidecar at path+".metadata", and the diagnostic and statistics
// JSON sidecars next to them. Fails with ErrNotBuilt before any build.
func (kb *KnowledgeBase) Save(path string) error {
	kb.mu.RLock()
	snap := kb.snap
	kb.mu.RUnlock()

	if snap == nil {
		return ErrNotBuilt
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}

	if err := exportGraph(path, snap.graph); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	if err := writeGobSidecar(path+".metadata", snap); err != nil {
		return fmt.Errorf("save metadata sidecar: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	if err := writeDiagnosticSidecar(sidecarBase(path)+"_metadata.json", snap, now); err != nil {
		return fmt.Errorf("save diagnostic sidecar: %w", err)
	}
	if err := writeStatisticsSidecar(sidecarBase(path)+"_statistics.json", snap, now); err != nil {
		return fmt.Errorf("save statistics sidecar: %w", err)
	}

	slog.Info("knowledge base saved",
		slog.String("path", path),
		slog.Int("chunks", len(snap.chunks)))
	return nil
}

// Load restores the knowledge base from path. Returns false if the index
// file does not exist or nothing readable is found. The binary sidecar is
// preferred; when only the diagnostic JSON exists, chunk content is
// reconstructed from the 200-character previews and a warning is logged,
// but loading still succeeds.
func (kb *KnowledgeBase) Load(path string) bool {
	if _, err := os.Stat(path); err != nil {
		slog.Warn("knowledge base index does not exist", slog.String("path", path))
		return false
	}

	graph := newGraph()
	if err := importGraph(path, graph); err != nil {
		slog.Error("failed to load vector index",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	snap := &snapshot{graph: graph}
	gobErr := readGobSidecar(path+".metadata", snap)
	if gobErr != nil {
		jsonPath := sidecarBase(path) + "_metadata.json"
		if jsonErr := readDiagnosticSidecar(jsonPath, snap); jsonErr != nil {
			slog.Error("no metadata sidecar could be read",
				slog.String("path", path),
				slog.String("metadata_error", gobErr.Error()),
				slog.String("json_error", jsonErr.Error()))
			return false
		}
		slog.Warn("metadata restored from diagnostic JSON, chunk content may be truncated",
			slog.String("path", jsonPath))
	}

	if graph.Len() != len(snap.chunks) {
		slog.Warn("index size does not match chunk count",
			slog.Int("index_size", graph.Len()),
			slog.Int("chunks", len(snap.chunks)))
	}

	kb.mu.Lock()
	kb.snap = snap
	kb.mu.Unlock()

	slog.Info("knowledge base loaded",
		slog.String("path", path),
		slog.Int("chunks", len(snap.chunks)))
	return true
}

// EmbeddingModel returns the model recorded in the loaded snapshot.
func (kb *KnowledgeBase) EmbeddingModel() string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	if kb.snap == nil {
		return ""
	}
	return kb.snap.model
}

// sidecarBase strips the index file extension for the JSON sidecar names.
func sidecarBase(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// exportGraph writes the graph to a temp file and renames it into place.
func exportGraph(path string, graph *hnsw.Graph[int]) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}

	if err := graph.Export(file); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("export graph: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// importGraph reads the graph from path. A buffered reader is required
// because hnsw import needs an io.ByteReader.
func importGraph(path string, graph *hnsw.Graph[int]) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()

	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	return nil
}

func writeGobSidecar(path string, snap *snapshot) error {
	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create sidecar file: %w", err)
	}

	sidecar := metadataSidecar{
		Chunks:         snap.chunks,
		Metadatas:      snap.metadatas,
		EmbeddingModel: snap.model,
		Dimensions:     snap.dims,
	}
	if err := gob.NewEncoder(file).Encode(sidecar); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode sidecar: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close sidecar file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

func readGobSidecar(path string, snap *snapshot) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sidecar file: %w", err)
	}
	defer file.Close()

	var sidecar metadataSidecar
	if err := gob.NewDecoder(file).Decode(&sidecar); err != nil {
		return fmt.Errorf("decode sidecar: %w", err)
	}

	snap.chunks = sidecar.Chunks
	snap.metadatas = sidecar.Metadatas
	snap.model = sidecar.EmbeddingModel
	snap.dims = sidecar.Dimensions
	return nil
}

func writeDiagnosticSidecar(path string, snap *snapshot, timestamp string) error {
	out := diagnosticFile{
		Timestamp:      timestamp,
		EmbeddingModel: snap.model,
		TotalChunks:    len(snap.chunks),
		Chunks:         make([]diagnosticChunk, 0, len(snap.chunks)),
	}
	for i, c := range snap.chunks {
		out.Chunks = append(out.Chunks, diagnosticChunk{
			ChunkID:        i,
			ContentPreview: chunk.Preview(c.Content, previewLimit),
			Tokens:         c.Tokens,
			Metadata:       c.Metadata,
		})
	}
	return writeJSONFile(path, out)
}

// readDiagnosticSidecar reconstructs chunks from the diagnostic dump.
// Content comes from the previews and is lossy for chunks that exceeded
// the preview limit; the restored dimensionality is unknown (zero), which
// disables the query dimension check until the next rebuild.
func readDiagnosticSidecar(path string, snap *snapshot) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read diagnostic sidecar: %w", err)
	}

	var in diagnosticFile
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode diagnostic sidecar: %w", err)
	}

	snap.chunks = make([]*chunk.Chunk, 0, len(in.Chunks))
	snap.metadatas = make([]map[string]string, 0, len(in.Chunks))
	for _, dc := range in.Chunks {
		c := &chunk.Chunk{
			Content:  dc.ContentPreview,
			Metadata: dc.Metadata,
			Tokens:   dc.Tokens,
		}
		snap.chunks = append(snap.chunks, c)
		snap.metadatas = append(snap.metadatas, c.Metadata)
	}
	snap.model = in.EmbeddingModel
	return nil
}

func writeStatisticsSidecar(path string, snap *snapshot, timestamp string) error {
	stats := statisticsFile{
		Timestamp:      timestamp,
		TotalChunks:    len(snap.chunks),
		Sources:        make(countTable),
		DocumentTitles: make(countTable),
		Headers:        make(countTable),
	}
	for _, c := range snap.chunks {
		stats.TotalTokens += c.Tokens
		stats.Sources[metaOrUnknown(c.Metadata, chunk.MetaSource)]++
		stats.DocumentTitles[metaOrUnknown(c.Metadata, chunk.MetaDocumentTitle)]++
		stats.Headers[metaOrUnknown(c.Metadata, chunk.MetaHeader)]++
	}
	return writeJSONFile(path, stats)
}

func metaOrUnknown(metadata map[string]string, key string) string {
	if v, ok := metadata[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
