// Package generation writes chapter variants with an LLM provider.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/azyu/chapterstudio/internal/llm"
	"github.com/azyu/chapterstudio/internal/token"
	"github.com/azyu/chapterstudio/pkg/types"
	"go.uber.org/zap"
)

const (
	// Variants is how many variants one generation returns at most.
	Variants = 3

	// Temperature used for chapter prose.
	Temperature = 0.8

	// marker is the word the completion is split on.
	marker = "Variant"
)

// ErrNoVariants is returned when the completion held no usable text.
var ErrNoVariants = errors.New("completion contained no variants")

// Generator turns a generation request into chapter variants.
type Generator struct {
	provider  llm.Provider
	tokenizer token.Tokenizer
	budget    token.Budget
	logger    *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithTokenizer overrides the tokenizer used to size the prompt.
func WithTokenizer(t token.Tokenizer) Option {
	return func(g *Generator) {
		g.tokenizer = t
	}
}

// WithBudget overrides the output budget.
func WithBudget(b token.Budget) Option {
	return func(g *Generator) {
		g.budget = b
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// New creates a Generator. The budget and tokenizer follow the provider's
// reported limits unless overridden.
func New(p llm.Provider, opts ...Option) *Generator {
	limits := p.Limits()
	g := &Generator{
		provider: p,
		budget:   budgetFor(limits),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tokenizer == nil {
		g.tokenizer = token.For(limits.Encoding)
	}
	return g
}

func budgetFor(limits llm.Limits) token.Budget {
	b := token.DefaultBudget()
	if limits.Context > 0 {
		b.ContextWindow = limits.Context
	}
	if limits.Output > 0 {
		b.Ceiling = limits.Output
	}
	return b
}

// Generate writes up to Variants variants for req against w.
func (g *Generator) Generate(ctx context.Context, w World, req types.GenerationRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt := BuildPrompt(w, req)
	promptTokens := g.tokenizer.Count(SystemPrompt) + g.tokenizer.Count(prompt)
	maxTokens := g.budget.MaxTokens(req.WordCount, Variants, promptTokens)

	g.logger.Debug("generating chapter",
		zap.Int("prompt_tokens", promptTokens),
		zap.Int("max_tokens", maxTokens),
		zap.Int("characters", len(w.Characters)),
		zap.Int("events", len(w.Timeline)),
		zap.Int("terms", len(w.Glossary)),
	)

	c, err := g.provider.Complete(ctx, llm.Prompt{
		System:      SystemPrompt,
		User:        prompt,
		MaxTokens:   maxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	if c.Truncated() {
		g.logger.Warn("completion truncated", zap.Int("max_tokens", maxTokens))
	}

	variants := SplitVariants(c.Text, Variants)
	if len(variants) == 0 {
		return nil, ErrNoVariants
	}

	g.logger.Info("chapter generated",
		zap.Int("variants", len(variants)),
		zap.Int("completion_tokens", c.OutputTokens),
	)
	return variants, nil
}

// SplitVariants cuts a completion into at most n variants on the word
// "Variant". Each piece loses its heading number and surrounding blanks;
// empty pieces are dropped.
func SplitVariants(content string, n int) []string {
	var out []string
	for _, piece := range strings.Split(content, marker) {
		piece = trimHeading(piece)
		if piece == "" {
			continue
		}
		out = append(out, piece)
		if len(out) == n {
			break
		}
	}
	return out
}

// trimHeading strips what is left of a "Variant 1:" style heading: the
// number, its punctuation and markdown emphasis, including the emphasis
// that opened the next heading.
func trimHeading(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "*# \t\r\n")
	rest := strings.TrimLeftFunc(s, unicode.IsDigit)
	if rest == s {
		// No number: the piece is prose that merely contained the word.
		return strings.TrimSpace(strings.TrimLeft(s, "*#"))
	}
	rest = strings.TrimLeft(rest, ":.)-*# \t")
	return strings.TrimSpace(rest)
}
