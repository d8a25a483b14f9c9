package chunk

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// tokenEncoding is the subword encoding used for token counting.
const tokenEncoding = "cl100k_base"

// TokenCounter counts subword tokens in text. It lazily loads the
// cl100k_base encoding on first use; when the encoding cannot be loaded
// (offline environment, missing cache) every count falls back to the
// character count divided by four, rounded down. The fallback gates
// chunk-splitting decisions, so it must stay exactly chars/4 rather than
// a smarter estimate. Characters, not bytes: multibyte text would halve
// the effective budget otherwise.
type TokenCounter struct {
	mu   sync.Mutex
	init bool
	enc  *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter that loads the encoding on first Count.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	c.mu.Lock()
	if !c.init {
		c.init = true
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			slog.Warn("subword tokenizer unavailable, using length/4 estimate",
				slog.String("encoding", tokenEncoding),
				slog.String("error", err.Error()))
		} else {
			c.enc = enc
		}
	}
	enc := c.enc
	c.mu.Unlock()

	if enc == nil {
		return utf8.RuneCountInString(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
