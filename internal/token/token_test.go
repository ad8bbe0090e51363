package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCounter skips when the encoding tables cannot be fetched.
func newCounter(t *testing.T, encoding string) *Counter {
	t.Helper()
	counter, err := NewCounter(encoding)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}
	return counter
}

// =============================================================================
// Counter
// =============================================================================

func TestNewCounter(t *testing.T) {
	tests := []struct {
		name         string
		encoding     string
		wantEncoding string
	}{
		{"default encoding", "", "cl100k_base"},
		{"explicit cl100k_base", "cl100k_base", "cl100k_base"},
		{"falls back for invalid encoding", "invalid_encoding", "cl100k_base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := newCounter(t, tt.encoding)
			assert.Equal(t, tt.wantEncoding, counter.Encoding())
		})
	}
}

func TestCounter_Count(t *testing.T) {
	counter := newCounter(t, "cl100k_base")

	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 1, counter.Count("hello"))

	n := counter.Count("The quick brown fox jumps over the lazy dog.")
	assert.GreaterOrEqual(t, n, 8)
	assert.LessOrEqual(t, n, 12)
}

func TestFor(t *testing.T) {
	assert.Equal(t, Estimator{}, For(""))

	tok := For("cl100k_base")
	require.NotNil(t, tok)
	if c, ok := tok.(*Counter); ok {
		assert.Equal(t, "cl100k_base", c.Encoding())
	}
	assert.Positive(t, tok.Count("He drew the Yantra."))
	assert.Equal(t, 0, tok.Count(""))
}

// =============================================================================
// Estimator
// =============================================================================

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
		{"달빛", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateTokens(tt.text), tt.text)
		assert.Equal(t, tt.want, Estimator{}.Count(tt.text), tt.text)
	}
}

// =============================================================================
// Budget
// =============================================================================

func TestParseWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"800", 800},
		{"1,200 words", 1200},
		{"about 900", 900},
		{"800-1000", 800},
		{"", 0},
		{"long", 0},
		{"99999999999999999999999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWordCount(tt.in))
		})
	}
}

func TestBudget_MaxTokens(t *testing.T) {
	b := DefaultBudget()

	t.Run("unusable word count uses default", func(t *testing.T) {
		assert.Equal(t, DefaultMaxTokens, b.MaxTokens("", 3, 500))
		assert.Equal(t, DefaultMaxTokens, b.MaxTokens("long", 3, 500))
	})

	t.Run("scales with words and variants", func(t *testing.T) {
		// 800 words * 3 variants * 1.35 + 3 * 50
		assert.Equal(t, 3390, b.MaxTokens("800", 3, 500))
		assert.Less(t, b.MaxTokens("800", 1, 500), b.MaxTokens("800", 3, 500))
	})

	t.Run("capped by ceiling", func(t *testing.T) {
		assert.Equal(t, 8192, b.MaxTokens("5000", 3, 500))
	})

	t.Run("capped by remaining context", func(t *testing.T) {
		small := Budget{ContextWindow: 4096}
		assert.Equal(t, 1096, small.MaxTokens("2000", 3, 3000))
	})

	t.Run("never below the floor", func(t *testing.T) {
		small := Budget{ContextWindow: 4096}
		assert.Equal(t, minOutputTokens, small.MaxTokens("800", 3, 4000))
		assert.Equal(t, minOutputTokens, b.MaxTokens("10", 1, 0))
	})
}
