package tui

import (
	"strings"

	"github.com/azyu/chapterstudio/internal/tui/styles"
	"github.com/charmbracelet/glamour"
)

// popover shows one glossary definition over the preview.
type popover struct {
	term    string
	meaning string
	body    string
}

func newPopover(term, meaning, style string, width int) *popover {
	width = max(24, width)
	p := &popover{term: term, meaning: meaning}

	md := "## " + term + "\n\n" + meaning
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err == nil {
		if out, err := r.Render(md); err == nil {
			p.body = strings.Trim(out, "\n")
		}
	}
	if p.body == "" {
		p.body = styles.Title.Render(term) + "\n\n" + meaning
	}
	return p
}

func (p *popover) view() string {
	return styles.Popover.Render(p.body + "\n\n" + helpLine("esc", "close"))
}
