// Package llm is the model layer behind chapter generation.
package llm

import (
	"context"
	"errors"
)

// Errors returned by providers. Adapters wrap them with the provider's own
// message.
var (
	ErrContextTooLong = errors.New("prompt exceeds the model's context window")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrAPIError       = errors.New("API error")
	ErrInvalidAPIKey  = errors.New("invalid or missing API key")
	ErrModelNotFound  = errors.New("model not found")
)

// Finish says why the model stopped writing.
type Finish string

const (
	FinishStop     Finish = "stop"
	FinishLength   Finish = "length"
	FinishFiltered Finish = "content_filter"
)

// Provider completes prompts. Implementations must be safe for concurrent
// use.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)

	// Limits reports the configured model's token limits.
	Limits() Limits

	Close() error
}

// Prompt is one completion call: a standing instruction for the model and
// the text it answers.
type Prompt struct {
	System string
	User   string

	// MaxTokens caps the completion. Zero leaves it to the provider.
	MaxTokens int

	// Temperature in 0.0-2.0. Zero leaves it to the provider.
	Temperature float64

	Stop []string
}

// Completion is what the model wrote.
type Completion struct {
	Text   string
	Model  string
	Finish Finish

	PromptTokens int
	OutputTokens int
}

// Truncated reports whether the model ran out of output tokens.
func (c *Completion) Truncated() bool {
	return c.Finish == FinishLength
}

// Limits describes a model's token limits. Zero means unknown.
type Limits struct {
	Context int
	Output  int

	// Encoding names the tiktoken encoding, or "" when unknown.
	Encoding string
}
