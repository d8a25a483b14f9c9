package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextToMarkdown_DuplicatesHeadingText(t *testing.T) {
	in := "# Title\n\n## Setup\n\nBody text.\n\n### Details\n"
	out := TextToMarkdown(in)

	// Level 1 headings are left alone.
	assert.Equal(t, 1, strings.Count(out, "Title"))

	// Levels 2-4 get the heading text repeated as a body line.
	assert.Contains(t, out, "## Setup\nSetup")
	assert.Contains(t, out, "### Details\nDetails")
}

func TestTextToMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", TextToMarkdown(""))
	assert.Equal(t, "  \n ", TextToMarkdown("  \n "))
}

func TestSplitByHeaders_OneChunkPerSection(t *testing.T) {
	s := fallbackSplitter(500)

	text := `# Guide

Intro paragraph.

## Setup

Install the tool.

## Usage

Run it.
`
	chunks := s.Split(text, "guide.md", true)
	require.Len(t, chunks, 3)

	assert.Contains(t, chunks[0].Content, "# Guide")
	assert.Contains(t, chunks[0].Content, "Intro paragraph.")
	assert.Equal(t, "Guide", chunks[0].Metadata[MetaHeader])
	assert.Equal(t, "Guide", chunks[0].Metadata[MetaHeaderPath])

	assert.Contains(t, chunks[1].Content, "## Setup")
	assert.Contains(t, chunks[1].Content, "Install the tool.")
	assert.Equal(t, "Setup", chunks[1].Metadata[MetaHeader])
	assert.Equal(t, "Guide -> Setup", chunks[1].Metadata[MetaHeaderPath])

	assert.Equal(t, "Usage", chunks[2].Metadata[MetaHeader])
	assert.Equal(t, "Guide -> Usage", chunks[2].Metadata[MetaHeaderPath])

	// The level 1 heading becomes the document title everywhere.
	for _, c := range chunks {
		assert.Equal(t, "Guide", c.Metadata[MetaDocumentTitle])
		assert.Equal(t, "guide.md", c.Metadata[MetaSource])
	}
}

func TestSplitByHeaders_NestedHeaderPath(t *testing.T) {
	s := fallbackSplitter(500)

	text := "# A\n\n## B\n\nunder b\n\n### C\n\nunder c\n\n## D\n\nunder d\n"
	chunks := s.Split(text, "doc.md", true)
	require.Len(t, chunks, 4)

	assert.Equal(t, "A", chunks[0].Metadata[MetaHeaderPath])
	assert.Equal(t, "A -> B", chunks[1].Metadata[MetaHeaderPath])
	assert.Equal(t, "A -> B -> C", chunks[2].Metadata[MetaHeaderPath])

	// A later level 2 heading truncates the stack back below level 3.
	assert.Equal(t, "A -> D", chunks[3].Metadata[MetaHeaderPath])
}

func TestSplitByHeaders_RequiresSingleSpaceAfterMarker(t *testing.T) {
	s := fallbackSplitter(500)

	// A tab after the marker is not a heading, just body text.
	chunks := s.Split("#\tNot a heading\n\nBody line.", "doc.md", true)
	require.Len(t, chunks, 1)
	assert.Equal(t, DefaultHeader, chunks[0].Metadata[MetaHeader])
	assert.Contains(t, chunks[0].Content, "#\tNot a heading")

	// Five hashes are beyond the supported levels.
	chunks = s.Split("##### Too deep\n\nBody line.", "doc.md", true)
	require.Len(t, chunks, 1)
	assert.Equal(t, DefaultHeader, chunks[0].Metadata[MetaHeader])
}

func TestSplitByHeaders_ContentBeforeAnyHeading(t *testing.T) {
	s := fallbackSplitter(500)

	chunks := s.Split("Plain text without headings.", "doc.md", true)
	require.Len(t, chunks, 1)

	assert.Equal(t, DefaultHeader, chunks[0].Metadata[MetaHeader])
	assert.Equal(t, DefaultHeader, chunks[0].Metadata[MetaHeaderPath])
	assert.Equal(t, "doc.md", chunks[0].Metadata[MetaDocumentTitle])
}

func TestSplitByHeaders_TokenBudgetFlushesBuffer(t *testing.T) {
	// Budget of 10 tokens is 40 characters under the len/4 fallback.
	s := fallbackSplitter(10)

	lines := []string{
		"first line of section text",
		"second line of section text",
		"third line of section text",
	}
	text := "## Section\n\n" + strings.Join(lines, "\n") + "\n"

	chunks := s.Split(text, "doc.md", true)
	require.Greater(t, len(chunks), 1)

	// Every line survives in exactly one chunk.
	joined := strings.Join(collectContents(chunks), "\n")
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(joined, line), "line %q", line)
	}
	for _, c := range chunks {
		assert.Equal(t, "Section", c.Metadata[MetaHeader])
	}
}

func TestSplitByHeaders_OversizeLineSplitAtMidpoint(t *testing.T) {
	// Budget of 2 tokens is 8 characters; one long line must be split.
	s := fallbackSplitter(2)

	chunks := s.Split("alpha beta gamma delta", "doc.md", true)
	require.Len(t, chunks, 2)

	assert.Equal(t, "alpha beta", chunks[0].Content)
	assert.Equal(t, "gamma delta", chunks[1].Content)
}
