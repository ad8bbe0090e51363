package generation

import (
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/pkg/types"
)

// SystemPrompt frames every generation.
const SystemPrompt = "You are an expert dark fantasy author."

// BuildPrompt renders the user prompt for req against w.
func BuildPrompt(w World, req types.GenerationRequest) string {
	var b strings.Builder

	b.WriteString("You are a master dark fantasy author writing the next chapter of a novel.\n\n")
	b.WriteString("World Context:\n")

	b.WriteString("Characters:\n")
	writeSection(&b, w.Characters, func(c types.Character) string {
		return fmt.Sprintf("- %s (%s): %s", c.Name, c.Role, c.Notes)
	})

	b.WriteString("\nTimeline of Key Events:\n")
	writeSection(&b, w.Timeline, func(e types.TimelineEvent) string {
		return fmt.Sprintf("- [%s] %s: %s", e.Timestamp, e.Title, e.Description)
	})

	b.WriteString("\nGlossary of Lore Terms:\n")
	writeSection(&b, w.Glossary, func(g types.GlossaryTerm) string {
		return fmt.Sprintf("- %s: %s", g.Term, g.Meaning)
	})

	fmt.Fprintf(&b, "\nNow, write %s creative variants for the next chapter based on the following:\n\n", spelled(Variants))
	fmt.Fprintf(&b, "Summary: %s\n", req.Summary)
	fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	fmt.Fprintf(&b, "Point of View: %s\n", req.POV)
	fmt.Fprintf(&b, "Target Word Count: %s\n", req.WordCount)
	fmt.Fprintf(&b, "Must Include: %s\n", req.MustInclude)
	fmt.Fprintf(&b, "Each variant should be clearly marked with a heading such as \"%s 1\" and written in prose.\n", marker)

	return b.String()
}

func writeSection[R any](b *strings.Builder, items []R, line func(R) string) {
	if len(items) == 0 {
		b.WriteString("None\n")
		return
	}
	for _, item := range items {
		b.WriteString(line(item))
		b.WriteByte('\n')
	}
}

func spelled(n int) string {
	switch n {
	case 1:
		return "one"
	case 2:
		return "two"
	case 3:
		return "three"
	default:
		return fmt.Sprint(n)
	}
}
