package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fallbackSplitter returns a splitter whose token counts are always the
// deterministic len/4 estimate, independent of the encoding cache.
func fallbackSplitter(chunkSize int) *Splitter {
	return &Splitter{
		ChunkSize: chunkSize,
		Counter:   &TokenCounter{init: true},
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	s := fallbackSplitter(100)

	assert.Empty(t, s.Split("", "doc.txt", false))
	assert.Empty(t, s.Split("   \n\n  ", "doc.txt", false))
	assert.Empty(t, s.Split("", "doc.md", true))
	assert.Empty(t, s.Split("  \n \n ", "doc.md", true))
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := fallbackSplitter(1500)

	chunks := s.Split("First paragraph.\n\nSecond paragraph.", "notes.txt", false)
	require.Len(t, chunks, 1)

	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", chunks[0].Content)
	assert.Equal(t, "notes.txt", chunks[0].Metadata[MetaSource])
	assert.Equal(t, "notes.txt", chunks[0].Metadata[MetaDocumentTitle])
	assert.Positive(t, chunks[0].Tokens)
}

func TestSplit_ParagraphPacking(t *testing.T) {
	para := strings.Repeat("word ", 20) // ~100 chars
	text := strings.TrimSpace(strings.Repeat(para+"\n\n", 5))

	s := fallbackSplitter(250)
	chunks := s.Split(text, "doc.txt", false)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 250)
	}

	// No paragraph text is lost.
	joined := strings.Join(collectContents(chunks), "\n\n")
	assert.Equal(t, strings.Count(text, "word"), strings.Count(joined, "word"))
}

func TestSplit_OversizeParagraphFallsBackToSentences(t *testing.T) {
	sentence := "This sentence is about forty characters."
	paragraph := strings.TrimSpace(strings.Repeat(sentence+" ", 10))

	s := fallbackSplitter(100)
	chunks := s.Split(paragraph, "doc.txt", false)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), 100)
		assert.Contains(t, c.Content, "This sentence")
	}
}

func TestSplit_BlankLineVariantsSeparateParagraphs(t *testing.T) {
	s := fallbackSplitter(30)

	// Whitespace-only separator lines still split paragraphs.
	chunks := s.Split("First paragraph here.\n   \nSecond paragraph here.", "doc.txt", false)
	require.Len(t, chunks, 2)
	assert.Equal(t, "First paragraph here.", chunks[0].Content)
	assert.Equal(t, "Second paragraph here.", chunks[1].Content)
}

func TestSplit_ParagraphBudgetCountsCharactersNotBytes(t *testing.T) {
	// Two 10-character Cyrillic paragraphs (19 bytes each) pack into one
	// chunk under a 21-character budget; byte counting would split them.
	s := fallbackSplitter(21)

	chunks := s.Split("привет мир\n\nдобрый мир", "doc.txt", false)
	require.Len(t, chunks, 1)
	assert.Equal(t, "привет мир\n\nдобрый мир", chunks[0].Content)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 10))
	assert.Equal(t, "abcde...", Preview("abcdefgh", 5))

	// Truncation is rune-safe for non-ASCII content.
	assert.Equal(t, "привет...", Preview("привет мир", 6))
}

func collectContents(chunks []*Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Content)
	}
	return out
}
