// Package glossary maps free-form text onto a glossary of lore terms.
//
// Text is split on runs of whitespace. Each word is cleaned by trimming the
// punctuation set .,;:!?()"' from both ends and lower-casing it; a word is
// linked to a term when both clean to the same non-empty string. When two
// terms clean to the same string the earliest one in the glossary wins.
package glossary

import (
	"iter"
	"slices"
	"strings"

	"github.com/azyu/chapterstudio/pkg/types"
)

// Punctuation is trimmed from both ends of words and terms before matching.
const Punctuation = `.,;:!?()"'`

// Token is one whitespace-separated word of the annotated text.
type Token struct {
	// Text is the word exactly as it appeared, punctuation included.
	Text string

	// Position is the zero-based word index within the text.
	Position int

	// Linked reports whether the word matched a glossary term.
	Linked bool

	// TermID, Term and Meaning describe the matched term when Linked.
	TermID  string
	Term    string
	Meaning string
}

// Clean returns the matching form of a word or term.
func Clean(word string) string {
	return strings.ToLower(strings.Trim(word, Punctuation))
}

// Index is a lookup from cleaned term to glossary entry, built once per
// glossary snapshot.
type Index struct {
	terms map[string]types.GlossaryTerm
}

// NewIndex builds an index over the glossary. Terms that clean to the empty
// string are skipped.
func NewIndex(glossary []types.GlossaryTerm) *Index {
	terms := make(map[string]types.GlossaryTerm, len(glossary))
	for _, g := range glossary {
		key := Clean(g.Term)
		if key == "" {
			continue
		}
		if _, exists := terms[key]; exists {
			continue
		}
		terms[key] = g
	}
	return &Index{terms: terms}
}

// Len returns the number of distinct matchable terms.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.terms)
}

// Lookup returns the term a word links to, if any.
func (ix *Index) Lookup(word string) (types.GlossaryTerm, bool) {
	if ix == nil {
		return types.GlossaryTerm{}, false
	}
	key := Clean(word)
	if key == "" {
		return types.GlossaryTerm{}, false
	}
	g, ok := ix.terms[key]
	return g, ok
}

// Annotate returns the annotated words of text. The sequence is lazy and can
// be ranged over any number of times; every pass re-splits the text.
func (ix *Index) Annotate(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		pos := 0
		for word := range strings.FieldsSeq(text) {
			tok := Token{Text: word, Position: pos}
			if g, ok := ix.Lookup(word); ok {
				tok.Linked = true
				tok.TermID = g.ID
				tok.Term = g.Term
				tok.Meaning = g.Meaning
			}
			if !yield(tok) {
				return
			}
			pos++
		}
	}
}

// Annotate annotates text against glossary without keeping an index around.
func Annotate(text string, glossary []types.GlossaryTerm) iter.Seq[Token] {
	return NewIndex(glossary).Annotate(text)
}

// Tokens collects the annotation of text into a slice.
func Tokens(text string, glossary []types.GlossaryTerm) []Token {
	return slices.Collect(Annotate(text, glossary))
}

// Linked returns only the linked tokens of a sequence, in order.
func Linked(seq iter.Seq[Token]) []Token {
	var linked []Token
	for tok := range seq {
		if tok.Linked {
			linked = append(linked, tok)
		}
	}
	return linked
}
