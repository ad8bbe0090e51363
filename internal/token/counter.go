// Package token sizes prompts and completions in model tokens.
package token

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// Tokenizer counts the tokens a model sees in text.
type Tokenizer interface {
	Count(text string) int
}

// For returns an exact counter for encoding, or an Estimator when encoding
// is empty or its tables cannot be loaded. tiktoken downloads the tables on
// first use, so offline hosts get the estimate.
func For(encoding string) Tokenizer {
	if encoding == "" {
		return Estimator{}
	}
	c, err := NewCounter(encoding)
	if err != nil {
		return Estimator{}
	}
	return c
}

// Counter counts tokens exactly with a tiktoken encoding.
type Counter struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewCounter loads encoding, such as "cl100k_base" or "o200k_base". An
// unknown name falls back to cl100k_base; "" means cl100k_base.
func NewCounter(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = fallbackEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		if enc, err = tiktoken.GetEncoding(fallbackEncoding); err != nil {
			return nil, err
		}
		encoding = fallbackEncoding
	}
	return &Counter{enc: enc, name: encoding}, nil
}

// Encoding names the encoding in use.
func (c *Counter) Encoding() string {
	return c.name
}

// Count implements Tokenizer.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Estimator counts roughly four characters per token. It needs no tables.
type Estimator struct{}

// Count implements Tokenizer.
func (Estimator) Count(text string) int {
	return EstimateTokens(text)
}

// EstimateTokens rounds the rune count over four up.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
