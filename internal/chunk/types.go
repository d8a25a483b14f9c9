// Package chunk splits extracted document text into retrievable fragments.
// Each fragment carries the structural metadata (source file, document title,
// enclosing heading) that the retrieval layer reports back as citations.
package chunk

// Metadata keys attached to chunks.
const (
	MetaSource        = "source"
	MetaDocumentTitle = "document_title"
	MetaHeader        = "header"
	MetaHeaderPath    = "header_path"
)

// HeaderPathSeparator joins ancestor heading texts for display.
const HeaderPathSeparator = " -> "

// DefaultHeader is used for content that appears before any heading.
const DefaultHeader = "Document"

// Chunk is a retrievable fragment of a document plus its metadata.
type Chunk struct {
	Content  string
	Metadata map[string]string
	Tokens   int
}

// Preview returns content truncated to at most limit runes, with an
// ellipsis appended when truncation happened.
func Preview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
