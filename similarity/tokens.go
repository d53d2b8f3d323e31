package similarity

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used by OpenAI chat and embedding models.
const DefaultEncoding = "cl100k_base"

// TokenCounter measures text against the token budget.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
	// Truncate returns the longest prefix of text that fits in n tokens.
	Truncate(text string, n int) string
}

// TiktokenCounter counts tokens with a BPE encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

var _ TokenCounter = (*TiktokenCounter)(nil)

// NewTiktokenCounter loads encoding, e.g. "cl100k_base". The first call for
// an encoding may download its ranks file.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Truncate implements TokenCounter.
func (c *TiktokenCounter) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= n {
		return text
	}
	return c.enc.Decode(tokens[:n])
}

// ApproxCounter estimates four characters per token. It needs no encoding
// data and is used when none can be loaded.
type ApproxCounter struct{}

var _ TokenCounter = ApproxCounter{}

// Count implements TokenCounter.
func (ApproxCounter) Count(text string) int {
	return (len([]rune(text)) + 3) / 4
}

// Truncate implements TokenCounter.
func (ApproxCounter) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n*4 {
		return text
	}
	return string(runes[:n*4])
}
