package assistant

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnreadableFile indicates a file could not be decoded as text under
// any supported encoding.
var ErrUnreadableFile = errors.New("file is not readable as text")

// fallbackEncodings are tried in order when a file is not valid UTF-8.
// Latin-1 accepts any byte sequence, so it terminates the chain.
var fallbackEncodings = []struct {
	name    string
	decoder *encoding.Decoder
}{
	{"windows-1251", charmap.Windows1251.NewDecoder()},
	{"cp866", charmap.CodePage866.NewDecoder()},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder()},
}

// ReadTextFile reads a document as UTF-8, falling back to legacy
// single-byte encodings for files produced by older tooling. Binary
// content is rejected.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	if bytes.ContainsRune(data, 0) {
		return "", fmt.Errorf("%w: %s contains NUL bytes", ErrUnreadableFile, path)
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	for _, enc := range fallbackEncodings {
		decoded, err := enc.decoder.Bytes(data)
		if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		slog.Info("decoded file with fallback encoding",
			slog.String("path", path),
			slog.String("encoding", enc.name))
		return string(decoded), nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnreadableFile, path)
}

// hasExtension reports whether the file name ends in one of the given
// extensions (without leading dots), case-insensitively.
func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, "."+strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
