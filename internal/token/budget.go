package token

import (
	"strconv"
	"strings"
	"unicode"
)

// Output budget defaults.
const (
	// DefaultMaxTokens is used when the target word count is unusable.
	DefaultMaxTokens = 2000

	// DefaultContextWindow fits every supported chat model.
	DefaultContextWindow = 16385

	// tokensPerWord is the usual ratio for English prose.
	tokensPerWord = 1.35

	// markerOverhead covers the variant headings in the completion.
	markerOverhead = 50

	minOutputTokens = 256
)

// Budget computes how many completion tokens a generation may ask for.
type Budget struct {
	// ContextWindow is the model's total token limit.
	ContextWindow int

	// Ceiling caps the completion regardless of word count. Zero means no cap
	// beyond the context window.
	Ceiling int
}

// DefaultBudget returns the budget used when the provider reports none.
func DefaultBudget() Budget {
	return Budget{ContextWindow: DefaultContextWindow, Ceiling: 8192}
}

// ParseWordCount extracts the target word count from free text such as
// "800", "1,200 words" or "about 900". It returns 0 when there is none.
func ParseWordCount(s string) int {
	var digits strings.Builder
	started := false
scan:
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits.WriteRune(r)
			started = true
		case r == ',' && started:
		case started:
			break scan
		}
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// MaxTokens returns the completion limit for variants of wordCount words
// given a prompt of promptTokens.
func (b Budget) MaxTokens(wordCount string, variants, promptTokens int) int {
	limit := DefaultMaxTokens
	if words := ParseWordCount(wordCount); words > 0 {
		if variants < 1 {
			variants = 1
		}
		limit = int(float64(words*variants)*tokensPerWord) + markerOverhead*variants
	}

	if b.Ceiling > 0 && limit > b.Ceiling {
		limit = b.Ceiling
	}
	if b.ContextWindow > 0 {
		if room := b.ContextWindow - promptTokens; limit > room {
			limit = room
		}
	}
	return max(limit, minOutputTokens)
}
