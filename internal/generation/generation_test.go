package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/azyu/chapterstudio/internal/llm"
	"github.com/azyu/chapterstudio/internal/token"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider replies with content and records the last request.
type fakeProvider struct {
	mu      sync.Mutex
	content string
	finish  llm.Finish
	err     error
	limits  llm.Limits
	last    llm.Prompt
}

func (f *fakeProvider) Complete(_ context.Context, p llm.Prompt) (*llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.content, Finish: f.finish, OutputTokens: 42}, nil
}

func (f *fakeProvider) Limits() llm.Limits { return f.limits }
func (f *fakeProvider) Close() error       { return nil }

type sliceLister[R any] struct {
	items []R
	err   error
}

func (s sliceLister[R]) List(context.Context) ([]R, error) { return s.items, s.err }

func (s sliceLister[R]) Recent(_ context.Context, n int) ([]R, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[:min(n, len(s.items))], nil
}

var request = types.GenerationRequest{
	Summary:     "Kael returns to the ruined keep.",
	Tone:        "grim",
	POV:         "third person",
	WordCount:   "800",
	MustInclude: "the Yantra",
}

var world = World{
	Characters: []types.Character{{ID: "c1", Name: "Kael", Role: "exile", Notes: "scarred hands"}},
	Timeline:   []types.TimelineEvent{{ID: "e1", Title: "The Fall", Timestamp: "Year 0", Description: "The keep burned."}},
	Glossary:   []types.GlossaryTerm{{ID: "g1", Term: "Yantra", Meaning: "a mystical device"}},
}

// =============================================================================
// Prompt
// =============================================================================

func TestBuildPrompt(t *testing.T) {
	t.Run("formats world context", func(t *testing.T) {
		prompt := BuildPrompt(world, request)

		assert.Contains(t, prompt, "Characters:\n- Kael (exile): scarred hands\n")
		assert.Contains(t, prompt, "Timeline of Key Events:\n- [Year 0] The Fall: The keep burned.\n")
		assert.Contains(t, prompt, "Glossary of Lore Terms:\n- Yantra: a mystical device\n")
		assert.Contains(t, prompt, "write three creative variants")
		assert.Contains(t, prompt, "Summary: Kael returns to the ruined keep.\n")
		assert.Contains(t, prompt, "Point of View: third person\n")
		assert.Contains(t, prompt, "Target Word Count: 800\n")
		assert.Contains(t, prompt, "Must Include: the Yantra\n")
	})

	t.Run("empty sections read None", func(t *testing.T) {
		prompt := BuildPrompt(World{}, request)
		assert.Contains(t, prompt, "Characters:\nNone\n")
		assert.Contains(t, prompt, "Timeline of Key Events:\nNone\n")
		assert.Contains(t, prompt, "Glossary of Lore Terms:\nNone\n")
	})
}

// =============================================================================
// SplitVariants
// =============================================================================

func TestSplitVariants(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "numbered headings",
			content: "Variant 1: Ash fell.\n\nVariant 2: Rain fell.\n\nVariant 3: Nothing fell.",
			want:    []string{"Ash fell.", "Rain fell.", "Nothing fell."},
		},
		{
			name:    "markdown headings",
			content: "**Variant 1:**\nAsh fell.\n\n**Variant 2:**\nRain fell.",
			want:    []string{"Ash fell.", "Rain fell."},
		},
		{
			name:    "atx headings",
			content: "## Variant 1\n\nAsh fell.\n\nSecond paragraph.\n\n## Variant 2\n\nRain fell.",
			want:    []string{"Ash fell.\n\nSecond paragraph.", "Rain fell."},
		},
		{
			name:    "keeps first three",
			content: "Variant 1: a Variant 2: b Variant 3: c Variant 4: d",
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "preamble kept as a piece",
			content: "Here you go.\nVariant 1: a",
			want:    []string{"Here you go.", "a"},
		},
		{
			name:    "blank",
			content: "  \n ",
			want:    nil,
		},
		{
			name:    "no marker",
			content: "Just one chapter.",
			want:    []string{"Just one chapter."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitVariants(tt.content, Variants))
		})
	}
}

// =============================================================================
// Generator
// =============================================================================

func TestGenerator_Generate(t *testing.T) {
	t.Run("sends prompt and splits reply", func(t *testing.T) {
		p := &fakeProvider{content: "Variant 1: one\nVariant 2: two\nVariant 3: three"}
		g := New(p, WithTokenizer(token.Estimator{}))

		variants, err := g.Generate(context.Background(), world, request)
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two", "three"}, variants)

		assert.Equal(t, SystemPrompt, p.last.System)
		assert.Contains(t, p.last.User, "- Yantra: a mystical device")
		assert.InDelta(t, Temperature, p.last.Temperature, 1e-9)
		assert.Equal(t, 3390, p.last.MaxTokens)
	})

	t.Run("budget follows model limits", func(t *testing.T) {
		p := &fakeProvider{
			content: "Variant 1: x",
			limits:  llm.Limits{Context: 8192, Output: 2048},
		}
		_, err := New(p).Generate(context.Background(), world, request)
		require.NoError(t, err)
		assert.Equal(t, 2048, p.last.MaxTokens)
	})

	t.Run("rejects empty summary", func(t *testing.T) {
		p := &fakeProvider{content: "x"}
		_, err := New(p).Generate(context.Background(), world, types.GenerationRequest{})
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Empty(t, p.last.User)
	})

	t.Run("provider failure", func(t *testing.T) {
		p := &fakeProvider{err: llm.ErrRateLimited}
		_, err := New(p).Generate(context.Background(), world, request)
		assert.ErrorIs(t, err, llm.ErrRateLimited)
	})

	t.Run("empty completion", func(t *testing.T) {
		p := &fakeProvider{content: "Variant\n\nVariant", finish: llm.FinishLength}
		_, err := New(p).Generate(context.Background(), world, request)
		assert.ErrorIs(t, err, ErrNoVariants)
	})
}

// =============================================================================
// World
// =============================================================================

func TestSource_Load(t *testing.T) {
	events := make([]types.TimelineEvent, 8)
	for i := range events {
		events[i] = types.TimelineEvent{ID: strings.Repeat("e", i+1), Title: "t"}
	}

	t.Run("reads all collections", func(t *testing.T) {
		src := Source{
			Characters: sliceLister[types.Character]{items: world.Characters},
			Timeline:   sliceLister[types.TimelineEvent]{items: events},
			Glossary:   sliceLister[types.GlossaryTerm]{items: world.Glossary},
		}
		w, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, world.Characters, w.Characters)
		assert.Len(t, w.Timeline, RecentEvents)
		assert.Equal(t, world.Glossary, w.Glossary)
	})

	t.Run("names the failing collection", func(t *testing.T) {
		src := Source{
			Characters: sliceLister[types.Character]{},
			Timeline:   sliceLister[types.TimelineEvent]{},
			Glossary:   sliceLister[types.GlossaryTerm]{err: errors.New("disk")},
		}
		_, err := src.Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "glossary: disk")
	})
}
