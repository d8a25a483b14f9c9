package chunk

import (
	"regexp"
	"strings"
)

// headerPattern matches markdown headings at levels 1-4. Exactly one
// space after the marker; a tab or extra hashes make the line body text.
var headerPattern = regexp.MustCompile(`^(#{1,4}) (.+)$`)

// Heading duplication patterns for TextToMarkdown.
var (
	h2DupPattern = regexp.MustCompile(`(?m)^## (.+)$`)
	h3DupPattern = regexp.MustCompile(`(?m)^### (.+)$`)
	h4DupPattern = regexp.MustCompile(`(?m)^#### (.+)$`)
)

// TextToMarkdown duplicates level 2-4 heading texts as a body line below
// the heading, so the heading words survive inside chunk content and stay
// visible to vector search even after the heading line starts a new chunk.
func TextToMarkdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	text = h2DupPattern.ReplaceAllString(text, "## $1\n$1")
	text = h3DupPattern.ReplaceAllString(text, "### $1\n$1")
	text = h4DupPattern.ReplaceAllString(text, "#### $1\n$1")
	return text
}

// splitByHeaders segments text along markdown headings.
//
// A stack of up to four heading levels is maintained. A level-1 heading
// resets the stack and becomes the document title for all following
// chunks; a level-k heading truncates the stack to k-1 entries and pushes
// itself. Chunks flushed at a heading are tagged with the previous
// heading, so body text lands under the heading it belongs to.
//
// Between headings the buffer is checked against the token budget after
// every line. An over-budget buffer is flushed except for its last line,
// which starts the next chunk. A single line over budget is split once at
// its word-count midpoint; the halves are not re-split, so a line many
// multiples over budget can still produce an over-budget chunk.
func (s *Splitter) splitByHeaders(text, sourceName string) []*Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	text = TextToMarkdown(text)

	var (
		chunks        []*Chunk
		buffer        []string
		currentHeader = DefaultHeader
		documentTitle = sourceName
		headerStack   = []string{DefaultHeader}
	)

	flush := func(lines []string) {
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content == "" {
			return
		}
		chunks = append(chunks, &Chunk{
			Content: content,
			Metadata: map[string]string{
				MetaSource:        sourceName,
				MetaHeader:        currentHeader,
				MetaHeaderPath:    strings.Join(headerStack, HeaderPathSeparator),
				MetaDocumentTitle: documentTitle,
			},
			Tokens: s.Counter.Count(content),
		})
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			if len(buffer) > 0 {
				buffer = append(buffer, "")
			}
			continue
		}

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush(buffer)

			level := len(m[1])
			title := strings.TrimSpace(m[2])
			currentHeader = title
			if level == 1 {
				documentTitle = title
				headerStack = []string{title}
			} else {
				keep := level - 1
				if keep > len(headerStack) {
					keep = len(headerStack)
				}
				headerStack = append(headerStack[:keep:keep], title)
			}

			buffer = []string{line}
			continue
		}

		buffer = append(buffer, line)
		if s.Counter.Count(strings.Join(buffer, "\n")) <= s.ChunkSize {
			continue
		}

		if len(buffer) > 1 {
			flush(buffer[:len(buffer)-1])
			buffer = []string{buffer[len(buffer)-1]}
		} else {
			words := strings.Fields(buffer[0])
			half := len(words) / 2
			flush([]string{strings.Join(words[:half], " ")})
			buffer = []string{strings.Join(words[half:], " ")}
		}
	}

	flush(buffer)
	return chunks
}
