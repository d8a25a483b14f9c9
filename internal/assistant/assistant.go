// Package assistant answers questions over an indexed document corpus.
// It wires document discovery, chunking, and the vector knowledge base to
// a chat model: retrieved fragments become the model context, and the
// fragments used are reported back as scored sources.
package assistant

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ragbase/ragbase/internal/chunk"
	"github.com/ragbase/ragbase/internal/store"
)

// sourcePreviewLimit caps fragment content echoed back in source listings.
const sourcePreviewLimit = 200

// Summarization always runs cold and short regardless of the answer
// settings.
const (
	summarizeTemperature = 0.0
	summarizeMaxTokens   = 500
)

// Error codes reported in Answer.Err.
const (
	ErrCodeNoDocuments     = "no_documents"
	ErrCodeProcessingError = "processing_error"
)

// Options configures an Assistant.
type Options struct {
	Name        string
	Description string

	DataPath    string
	IndexPath   string
	Extensions  []string
	UseMarkdown bool

	SearchK     int
	Temperature float32
	MaxTokens   int

	Prompts Prompts
}

// Assistant is the retrieval-augmented question answering engine.
type Assistant struct {
	opts     Options
	splitter *chunk.Splitter
	kb       *store.KnowledgeBase
	chat     ChatCompleter
}

// Answer is the result of one question.
type Answer struct {
	Answer     string   `json:"answer"`
	Sources    []Source `json:"sources"`
	TokensUsed int      `json:"tokens_used"`
	Question   string   `json:"question,omitempty"`
	Err        string   `json:"error,omitempty"`
}

// Source identifies one fragment the answer drew on.
type Source struct {
	Source         string  `json:"source"`
	ContentPreview string  `json:"content_preview"`
	RelevanceScore float32 `json:"relevance_score"`
}

// RebuildResult reports the outcome of a knowledge base rebuild.
type RebuildResult struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	DocumentsCount int    `json:"documents_count"`
}

// New creates an assistant over the given knowledge base and chat model.
func New(opts Options, splitter *chunk.Splitter, kb *store.KnowledgeBase, chat ChatCompleter) *Assistant {
	if opts.SearchK <= 0 {
		opts.SearchK = 5
	}
	return &Assistant{
		opts:     opts,
		splitter: splitter,
		kb:       kb,
		chat:     chat,
	}
}

// KnowledgeBase exposes the underlying store for status reporting.
func (a *Assistant) KnowledgeBase() *store.KnowledgeBase {
	return a.kb
}

// Ask retrieves the fragments nearest to the question and asks the chat
// model to answer from them. temperature overrides the configured value
// when non-nil. All failures map to a canned answer with Err set; the
// error return is reserved for context cancellation.
func (a *Assistant) Ask(ctx context.Context, question string, temperature *float32) (*Answer, error) {
	start := time.Now()
	slog.Info("question received", slog.String("question", question))

	results, err := a.kb.Search(ctx, question, a.opts.SearchK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("retrieval failed", slog.String("error", err.Error()))
		return a.processingError(err), nil
	}
	if len(results) == 0 {
		slog.Warn("no relevant documents found")
		return &Answer{
			Answer:  a.opts.Prompts.ErrorResponses.NoDocuments,
			Sources: []Source{},
			Err:     ErrCodeNoDocuments,
		}, nil
	}

	if a.chat == nil {
		slog.Error("no chat model configured")
		return a.processingError(fmt.Errorf("no chat model configured")), nil
	}

	temp := a.opts.Temperature
	if temperature != nil {
		temp = *temperature
	}

	result, err := a.chat.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: a.opts.Prompts.SystemPrompt},
			{Role: RoleUser, Content: fmt.Sprintf("Context for the answer:\n%s\n\nQuestion: %s",
				buildContext(results), question)},
		},
		Temperature: temp,
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Error("completion failed", slog.String("error", err.Error()))
		return a.processingError(err), nil
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, Source{
			Source:         r.Metadata[chunk.MetaSource],
			ContentPreview: chunk.Preview(r.Content, sourcePreviewLimit),
			RelevanceScore: 1 - r.Distance,
		})
	}

	slog.Info("answer generated",
		slog.Int("tokens_used", result.TokensUsed),
		slog.Duration("duration", time.Since(start)))

	return &Answer{
		Answer:     result.Content,
		Sources:    sources,
		TokensUsed: result.TokensUsed,
		Question:   question,
	}, nil
}

func (a *Assistant) processingError(err error) *Answer {
	return &Answer{
		Answer:  a.opts.Prompts.ErrorResponses.ProcessingError,
		Sources: []Source{},
		Err:     err.Error(),
	}
}

// buildContext renders retrieved fragments as numbered blocks with their
// metadata inline, so the model can cite which fragment it used.
func buildContext(results []*store.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Fragment %d (metadata: %s):\n%s", i+1, formatMetadata(r.Metadata), r.Content)
	}
	return b.String()
}

// formatMetadata renders metadata with sorted keys so prompts are stable
// across runs.
func formatMetadata(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, metadata[k]))
	}
	return strings.Join(pairs, ", ")
}

// Summarize condenses a dialog transcript into a short summary. On any
// model failure a canned fallback text is returned instead of an error.
func (a *Assistant) Summarize(ctx context.Context, dialog string) string {
	if a.chat == nil {
		return "Failed to summarize the dialog."
	}

	result, err := a.chat.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: a.opts.Prompts.SummarizePrompt},
			{Role: RoleUser, Content: dialog},
		},
		Temperature: summarizeTemperature,
		MaxTokens:   summarizeMaxTokens,
	})
	if err != nil {
		slog.Error("summarization failed", slog.String("error", err.Error()))
		return "Failed to summarize the dialog."
	}
	return result.Content
}

// BuildOrLoad loads the persisted knowledge base if one exists, otherwise
// builds it from the document directory and saves the result.
func (a *Assistant) BuildOrLoad(ctx context.Context) error {
	if a.kb.Load(a.opts.IndexPath) {
		return nil
	}
	slog.Info("building new knowledge base", slog.String("data_path", a.opts.DataPath))
	result := a.Rebuild(ctx)
	if result.Status != "success" {
		return fmt.Errorf("build knowledge base: %s", result.Message)
	}
	return nil
}

// Rebuild reprocesses the document directory from scratch: discover,
// read, chunk, embed, index, save. Files that cannot be read are logged
// and skipped so one bad file does not sink the corpus.
func (a *Assistant) Rebuild(ctx context.Context) *RebuildResult {
	slog.Info("knowledge base rebuild started", slog.String("data_path", a.opts.DataPath))

	paths, err := discoverDocuments(a.opts.DataPath, a.opts.Extensions)
	if err != nil {
		slog.Error("document discovery failed", slog.String("error", err.Error()))
		return &RebuildResult{Status: "error", Message: fmt.Sprintf("document discovery failed: %v", err)}
	}

	var chunks []*chunk.Chunk
	for _, path := range paths {
		text, err := ReadTextFile(path)
		if err != nil {
			slog.Error("failed to process file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		chunks = append(chunks, a.splitter.Split(text, filepath.Base(path), a.opts.UseMarkdown)...)
	}
	if len(chunks) == 0 {
		slog.Warn("no documents found to process")
		return &RebuildResult{Status: "error", Message: "no documents found to process"}
	}

	if err := a.kb.Build(ctx, chunks); err != nil {
		slog.Error("knowledge base build failed", slog.String("error", err.Error()))
		return &RebuildResult{Status: "error", Message: fmt.Sprintf("knowledge base build failed: %v", err)}
	}
	if err := a.kb.Save(a.opts.IndexPath); err != nil {
		slog.Error("knowledge base save failed", slog.String("error", err.Error()))
		return &RebuildResult{
			Status:         "error",
			Message:        fmt.Sprintf("knowledge base save failed: %v", err),
			DocumentsCount: a.kb.Size(),
		}
	}

	count := a.kb.Size()
	slog.Info("knowledge base rebuilt", slog.Int("documents_count", count))
	return &RebuildResult{
		Status:         "success",
		Message:        fmt.Sprintf("knowledge base rebuilt: %d fragments indexed", count),
		DocumentsCount: count,
	}
}

// discoverDocuments walks the data directory and returns matching file
// paths in sorted order.
func discoverDocuments(dataPath string, extensions []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dataPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if hasExtension(d.Name(), extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dataPath, err)
	}
	sort.Strings(paths)
	return paths, nil
}
