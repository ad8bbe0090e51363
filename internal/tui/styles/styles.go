// Package styles holds the Lip Gloss styles of the studio screen.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette colours. Adaptive colours pick the light variant on light
// terminals.
var (
	Ink    = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"}
	Faded  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	Rule   = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
	Quill  = lipgloss.Color("#7C3AED")
	Gloss  = lipgloss.Color("#F59E0B")
	Saved  = lipgloss.Color("#10B981")
	Notice = lipgloss.Color("#00D7FF")
	Fault  = lipgloss.Color("#EF4444")
)

var (
	Header = lipgloss.NewStyle().Bold(true).Foreground(Quill).Padding(0, 1)

	Tab       = lipgloss.NewStyle().Foreground(Faded).Padding(0, 1)
	ActiveTab = Tab.Foreground(lipgloss.Color("#F9FAFB")).Background(Quill).Bold(true)

	Title = lipgloss.NewStyle().Bold(true).Foreground(Ink)

	Panel        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Rule).Padding(0, 1)
	FocusedPanel = Panel.BorderForeground(Quill)

	Label = lipgloss.NewStyle().Foreground(Faded).Width(14)

	// Row is an unfocused list entry; Cursor is the entry under the cursor.
	Row    = lipgloss.NewStyle().PaddingLeft(2)
	Cursor = lipgloss.NewStyle().Foreground(Quill).Bold(true)

	// Chosen marks the selected variant and the open chapter.
	Chosen = lipgloss.NewStyle().Foreground(Saved)

	// Term is a glossary word in the preview; FocusedTerm is the one the
	// popover would open.
	Term        = lipgloss.NewStyle().Foreground(Gloss).Underline(true)
	FocusedTerm = lipgloss.NewStyle().Foreground(lipgloss.Color("#1F2937")).Background(Gloss).Bold(true)

	Popover = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(Gloss).Padding(0, 1)

	StatusBar = lipgloss.NewStyle().Background(Rule).Foreground(Faded).Padding(0, 1)
	StatusKey = lipgloss.NewStyle().Foreground(Quill).Bold(true)
	Unsaved   = lipgloss.NewStyle().Foreground(Gloss)
	Spinner   = lipgloss.NewStyle().Foreground(Quill)

	HelpKey  = lipgloss.NewStyle().Foreground(Quill).Bold(true)
	HelpDesc = lipgloss.NewStyle().Foreground(Faded)

	Muted = lipgloss.NewStyle().Foreground(Faded)
)

var toast = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.RoundedBorder())

// Toast returns the frame for a notice drawn in c.
func Toast(c lipgloss.TerminalColor) lipgloss.Style {
	return toast.BorderForeground(c).Foreground(c)
}

// Width is the room left inside a panel on a terminal termWidth wide.
func Width(termWidth int) int {
	return max(termWidth-4, 0)
}
