package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragbase/ragbase/internal/chunk"
	"github.com/ragbase/ragbase/internal/embed"
	"github.com/ragbase/ragbase/internal/store"
)

// fakeCompleter records requests and plays back a canned result.
type fakeCompleter struct {
	result  *CompletionResult
	err     error
	calls   int
	lastReq CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (*CompletionResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testOptions(t *testing.T) Options {
	t.Helper()
	dir := t.TempDir()
	return Options{
		Name:        "test-kb",
		DataPath:    filepath.Join(dir, "data"),
		IndexPath:   filepath.Join(dir, "kb.index"),
		Extensions:  []string{"txt", "md"},
		SearchK:     3,
		Temperature: 0.7,
		MaxTokens:   500,
		Prompts:     DefaultPrompts(),
	}
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func builtAssistant(t *testing.T, chat ChatCompleter) *Assistant {
	t.Helper()
	opts := testOptions(t)
	writeDoc(t, opts.DataPath, "safety.txt",
		"Fire extinguishers are inspected quarterly by the facilities team.")
	writeDoc(t, opts.DataPath, "vacation.txt",
		"Vacation requests are submitted through the HR portal two weeks in advance.")

	a := New(opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), chat)
	result := a.Rebuild(context.Background())
	require.Equal(t, "success", result.Status)
	return a
}

func TestAsk_NoDocuments(t *testing.T) {
	chat := &fakeCompleter{result: &CompletionResult{Content: "unused"}}
	a := New(testOptions(t), chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), chat)

	answer, err := a.Ask(context.Background(), "anything at all", nil)
	require.NoError(t, err)

	assert.Equal(t, ErrCodeNoDocuments, answer.Err)
	assert.Equal(t, DefaultPrompts().ErrorResponses.NoDocuments, answer.Answer)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, answer.TokensUsed)
	assert.Zero(t, chat.calls, "the model must not be called without context")
}

func TestAsk_AnswersFromRetrievedContext(t *testing.T) {
	chat := &fakeCompleter{result: &CompletionResult{Content: "They are inspected quarterly.", TokensUsed: 42}}
	a := builtAssistant(t, chat)

	answer, err := a.Ask(context.Background(), "How often are fire extinguishers inspected?", nil)
	require.NoError(t, err)

	assert.Empty(t, answer.Err)
	assert.Equal(t, "They are inspected quarterly.", answer.Answer)
	assert.Equal(t, 42, answer.TokensUsed)
	assert.Equal(t, "How often are fire extinguishers inspected?", answer.Question)

	require.NotEmpty(t, answer.Sources)
	for _, s := range answer.Sources {
		assert.NotEmpty(t, s.Source)
		assert.NotEmpty(t, s.ContentPreview)
		assert.LessOrEqual(t, s.RelevanceScore, float32(1))
	}

	require.Equal(t, 1, chat.calls)
	require.Len(t, chat.lastReq.Messages, 2)
	assert.Equal(t, RoleSystem, chat.lastReq.Messages[0].Role)
	assert.Equal(t, RoleUser, chat.lastReq.Messages[1].Role)
	assert.Contains(t, chat.lastReq.Messages[1].Content, "Fragment 1 (metadata: ")
	assert.Contains(t, chat.lastReq.Messages[1].Content, "source=safety.txt")
	assert.Contains(t, chat.lastReq.Messages[1].Content, "Question: How often are fire extinguishers inspected?")
	assert.InDelta(t, 0.7, float64(chat.lastReq.Temperature), 1e-6)
	assert.Equal(t, 500, chat.lastReq.MaxTokens)
}

func TestAsk_TemperatureOverride(t *testing.T) {
	chat := &fakeCompleter{result: &CompletionResult{Content: "ok"}}
	a := builtAssistant(t, chat)

	temp := float32(0.1)
	_, err := a.Ask(context.Background(), "question", &temp)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, float64(chat.lastReq.Temperature), 1e-6)
}

func TestAsk_CompletionFailure(t *testing.T) {
	chat := &fakeCompleter{err: errors.New("model unavailable")}
	a := builtAssistant(t, chat)

	answer, err := a.Ask(context.Background(), "question", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPrompts().ErrorResponses.ProcessingError, answer.Answer)
	assert.NotEmpty(t, answer.Err)
	assert.Empty(t, answer.Sources)
}

func TestAsk_NoChatModel(t *testing.T) {
	a := builtAssistant(t, &fakeCompleter{result: &CompletionResult{Content: "ok"}})
	a.chat = nil

	answer, err := a.Ask(context.Background(), "question", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts().ErrorResponses.ProcessingError, answer.Answer)
}

func TestSummarize(t *testing.T) {
	chat := &fakeCompleter{result: &CompletionResult{Content: "A short summary."}}
	a := New(testOptions(t), chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), chat)

	summary := a.Summarize(context.Background(), "user: hi\nassistant: hello")
	assert.Equal(t, "A short summary.", summary)

	assert.Zero(t, chat.lastReq.Temperature)
	assert.Equal(t, summarizeMaxTokens, chat.lastReq.MaxTokens)
}

func TestSummarize_FallbackOnFailure(t *testing.T) {
	chat := &fakeCompleter{err: errors.New("model unavailable")}
	a := New(testOptions(t), chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), chat)

	assert.Equal(t, "Failed to summarize the dialog.", a.Summarize(context.Background(), "dialog"))
}

func TestRebuild_NoDocuments(t *testing.T) {
	opts := testOptions(t)
	require.NoError(t, os.MkdirAll(opts.DataPath, 0o755))

	a := New(opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), nil)
	result := a.Rebuild(context.Background())
	assert.Equal(t, "error", result.Status)
	assert.Zero(t, result.DocumentsCount)
}

func TestRebuild_SkipsUnreadableFiles(t *testing.T) {
	opts := testOptions(t)
	writeDoc(t, opts.DataPath, "good.txt", "Readable content about procedures.")
	writeDoc(t, opts.DataPath, "binary.txt", "bad\x00content")

	a := New(opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), nil)
	result := a.Rebuild(context.Background())

	require.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.DocumentsCount)
}

func TestRebuild_IgnoresOtherExtensions(t *testing.T) {
	opts := testOptions(t)
	writeDoc(t, opts.DataPath, "keep.md", "# Kept\n\nMarkdown content.")
	writeDoc(t, opts.DataPath, "skip.pdf", "%PDF-1.4 not text")

	a := New(opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), nil)
	result := a.Rebuild(context.Background())

	require.Equal(t, "success", result.Status)
	assert.Equal(t, 1, result.DocumentsCount)
}

func TestBuildOrLoad_PrefersExistingIndex(t *testing.T) {
	chat := &fakeCompleter{result: &CompletionResult{Content: "ok"}}
	a := builtAssistant(t, chat)

	// A fresh assistant over the same paths loads instead of rebuilding.
	fresh := New(a.opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), chat)
	require.NoError(t, fresh.BuildOrLoad(context.Background()))
	assert.Equal(t, a.KnowledgeBase().Size(), fresh.KnowledgeBase().Size())
}

func TestBuildOrLoad_BuildsWhenMissing(t *testing.T) {
	opts := testOptions(t)
	writeDoc(t, opts.DataPath, "doc.txt", "Some indexable content.")

	a := New(opts, chunk.NewSplitter(1500), store.New(embed.NewStaticEmbedder()), nil)
	require.NoError(t, a.BuildOrLoad(context.Background()))
	assert.True(t, a.KnowledgeBase().Built())

	// The index was persisted for the next start.
	_, err := os.Stat(opts.IndexPath)
	assert.NoError(t, err)
}

func TestFormatMetadata_SortedKeys(t *testing.T) {
	got := formatMetadata(map[string]string{
		"source": "a.txt",
		"header": "Intro",
	})
	assert.Equal(t, "header=Intro, source=a.txt", got)
}

func TestBuildContext_NumbersFragments(t *testing.T) {
	got := buildContext([]*store.SearchResult{
		{Content: "first", Metadata: map[string]string{"source": "a.txt"}},
		{Content: "second", Metadata: map[string]string{"source": "b.txt"}},
	})

	assert.True(t, strings.HasPrefix(got, "Fragment 1 (metadata: source=a.txt):\nfirst"))
	assert.Contains(t, got, "\n\nFragment 2 (metadata: source=b.txt):\nsecond")
}
