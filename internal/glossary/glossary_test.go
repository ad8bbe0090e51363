package glossary

import (
	"slices"
	"strings"
	"testing"

	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var yantra = types.GlossaryTerm{ID: "g1", Term: "Yantra", Meaning: "a mystical device"}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Yantra", "yantra"},
		{"Yantra,", "yantra"},
		{"(Yantra)", "yantra"},
		{`"Yantra!"`, "yantra"},
		{"'Yantra'", "yantra"},
		{"Yantra's", "yantra's"},
		{"...", ""},
		{"", ""},
		{"mid.dle", "mid.dle"},
		{"Yantra-bound", "yantra-bound"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestAnnotate_TrailingPeriod(t *testing.T) {
	tokens := Tokens("He drew the Yantra.", []types.GlossaryTerm{yantra})

	want := []Token{
		{Text: "He", Position: 0},
		{Text: "drew", Position: 1},
		{Text: "the", Position: 2},
		{Text: "Yantra.", Position: 3, Linked: true, TermID: "g1", Term: "Yantra", Meaning: "a mystical device"},
	}
	if diff := cmp.Diff(want, tokens); diff != "" {
		t.Errorf("Tokens() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotate_CaseInsensitive(t *testing.T) {
	lower := []types.GlossaryTerm{{ID: "g1", Term: "yantra", Meaning: "m"}}

	for _, text := range []string{"Yantra", "YANTRA", "yantra", "yAnTrA"} {
		t.Run(text, func(t *testing.T) {
			tokens := Tokens(text, lower)
			require.Len(t, tokens, 1)
			assert.True(t, tokens[0].Linked)
			assert.Equal(t, text, tokens[0].Text, "surface text is preserved")
		})
	}
}

func TestAnnotate_Punctuation(t *testing.T) {
	glossary := []types.GlossaryTerm{yantra}

	t.Run("trailing comma matches", func(t *testing.T) {
		tokens := Tokens("Yantra,", glossary)
		require.Len(t, tokens, 1)
		assert.True(t, tokens[0].Linked)
	})

	t.Run("possessive does not match", func(t *testing.T) {
		tokens := Tokens("Yantra's", glossary)
		require.Len(t, tokens, 1)
		assert.False(t, tokens[0].Linked)
	})

	t.Run("term with punctuation matches bare word", func(t *testing.T) {
		tokens := Tokens("the yantra glows", []types.GlossaryTerm{{ID: "g2", Term: "Yantra!", Meaning: "m"}})
		assert.True(t, tokens[1].Linked)
	})

	t.Run("punctuation-only tokens never match", func(t *testing.T) {
		tokens := Tokens("... !? ()", []types.GlossaryTerm{{ID: "g3", Term: "...", Meaning: "ellipsis"}})
		require.Len(t, tokens, 3)
		for _, tok := range tokens {
			assert.False(t, tok.Linked)
		}
	})
}

func TestAnnotate_WholeTokenOnly(t *testing.T) {
	tokens := Tokens("Yantras and proto-Yantra", []types.GlossaryTerm{yantra})

	assert.Empty(t, Linked(slices.Values(tokens)))
}

func TestAnnotate_EarliestTermWins(t *testing.T) {
	glossary := []types.GlossaryTerm{
		{ID: "first", Term: "Veil", Meaning: "the boundary between worlds"},
		{ID: "second", Term: "veil.", Meaning: "a piece of cloth"},
	}

	tokens := Tokens("Beyond the veil", glossary)

	require.Len(t, tokens, 3)
	assert.Equal(t, "first", tokens[2].TermID)
	assert.Equal(t, "the boundary between worlds", tokens[2].Meaning)
}

func TestAnnotate_EmptyInputs(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		assert.Empty(t, Tokens("", []types.GlossaryTerm{yantra}))
	})

	t.Run("whitespace-only text", func(t *testing.T) {
		assert.Empty(t, Tokens(" \n\t ", []types.GlossaryTerm{yantra}))
	})

	t.Run("empty glossary", func(t *testing.T) {
		tokens := Tokens("He drew the Yantra.", nil)
		assert.Len(t, tokens, 4)
		assert.Empty(t, Linked(slices.Values(tokens)))
	})

	t.Run("blank term never matches", func(t *testing.T) {
		ix := NewIndex([]types.GlossaryTerm{{ID: "g0", Term: "  ", Meaning: "nothing"}})
		assert.Equal(t, 0, ix.Len())
	})
}

func TestAnnotate_TokenCountMatchesWordCount(t *testing.T) {
	texts := []string{
		"He drew the Yantra.",
		"  leading and   trailing   spaces  ",
		"line\nbreaks\tand\ttabs",
		"single",
		"Yantra, Yantra; (Yantra) \"Yantra\"",
	}

	for _, text := range texts {
		tokens := Tokens(text, []types.GlossaryTerm{yantra})
		assert.Len(t, tokens, len(strings.Fields(text)), text)
	}
}

func TestAnnotate_Restartable(t *testing.T) {
	seq := Annotate("The Yantra hums. The Yantra sleeps.", []types.GlossaryTerm{yantra})

	first := slices.Collect(seq)
	second := slices.Collect(seq)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second pass differs (-first +second):\n%s", diff)
	}
	assert.Len(t, Linked(seq), 2)
}

func TestAnnotate_EarlyStop(t *testing.T) {
	var seen []string
	for tok := range Annotate("one two three four", nil) {
		seen = append(seen, tok.Text)
		if len(seen) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"one", "two"}, seen)
}

func TestIndexLookup(t *testing.T) {
	ix := NewIndex([]types.GlossaryTerm{yantra, {ID: "g2", Term: "Kaal", Meaning: "time"}})

	g, ok := ix.Lookup("KAAL?")
	require.True(t, ok)
	assert.Equal(t, "g2", g.ID)

	_, ok = ix.Lookup("nothing")
	assert.False(t, ok)

	var nilIndex *Index
	_, ok = nilIndex.Lookup("Yantra")
	assert.False(t, ok)
	assert.Equal(t, 0, nilIndex.Len())
}
