package tui

import (
	"strings"
	"time"

	"github.com/azyu/chapterstudio/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/ansi"
	"github.com/muesli/reflow/truncate"
)

// ToastLevel orders notices by severity.
type ToastLevel int

const (
	ToastInfo ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastError
)

const (
	toastShort = 3 * time.Second
	toastLong  = 6 * time.Second
)

var toastLooks = map[ToastLevel]struct {
	icon  string
	color lipgloss.TerminalColor
}{
	ToastInfo:    {"ℹ", styles.Notice},
	ToastSuccess: {"✓", styles.Saved},
	ToastWarning: {"⚠", styles.Gloss},
	ToastError:   {"✗", styles.Fault},
}

// lifetime keeps warnings and failures up long enough to read.
func (l ToastLevel) lifetime() time.Duration {
	if l >= ToastWarning {
		return toastLong
	}
	return toastShort
}

// Toast is the notice drawn over the top-right corner of the screen.
type Toast struct {
	Message string
	Level   ToastLevel
	Visible bool

	id int
}

// clearToastMsg hides toast id. A toast shown after it stays up.
type clearToastMsg struct {
	id int
}

func showToast(id int, msg string, level ToastLevel) (Toast, tea.Cmd) {
	t := Toast{Message: msg, Level: level, Visible: true, id: id}
	return t, tea.Tick(level.lifetime(), func(time.Time) tea.Msg {
		return clearToastMsg{id: id}
	})
}

func (t *Toast) Update(msg tea.Msg) {
	if m, ok := msg.(clearToastMsg); ok && m.id == t.id {
		*t = Toast{id: t.id}
	}
}

// View renders the toast no wider than maxWidth, or "" when hidden.
func (t Toast) View(maxWidth int) string {
	if !t.Visible || t.Message == "" {
		return ""
	}
	look := toastLooks[t.Level]
	text := look.icon + " " + t.Message
	if maxWidth > 10 {
		text = truncate.StringWithTail(text, uint(maxWidth-6), "...")
	}
	return styles.Toast(look.color).Render(text)
}

func renderToastTopRight(toast, screen string, margin int) string {
	if toast == "" {
		return screen
	}
	return overlay(screen, toast, lipgloss.Width(screen)-lipgloss.Width(toast)-margin, margin)
}

func renderCentered(box, screen string) string {
	return overlay(screen, box,
		(lipgloss.Width(screen)-lipgloss.Width(box))/2,
		(lipgloss.Height(screen)-lipgloss.Height(box))/2)
}

// overlay paints box onto screen with its top-left corner at column x, row
// y, clamped so the box stays on screen. Both may contain ANSI styling.
func overlay(screen, box string, x, y int) string {
	rows := strings.Split(screen, "\n")
	boxRows := strings.Split(box, "\n")
	screenWidth := lipgloss.Width(screen)
	if lipgloss.Width(box) >= screenWidth && len(boxRows) >= len(rows) {
		return box
	}

	x = max(0, min(x, screenWidth-lipgloss.Width(box)))
	y = max(0, min(y, len(rows)-len(boxRows)))
	for i, b := range boxRows {
		if y+i < len(rows) {
			rows[y+i] = spliceRow(rows[y+i], b, x)
		}
	}
	return strings.Join(rows, "\n")
}

// spliceRow replaces the cells of row under b, starting at column x.
func spliceRow(row, b string, x int) string {
	left := truncate.String(row, uint(x))
	if pad := x - ansi.PrintableRuneWidth(left); pad > 0 {
		left += strings.Repeat(" ", pad)
	}
	return left + b + dropColumns(row, x+ansi.PrintableRuneWidth(b))
}

// dropColumns returns what is left of s after its first n printable
// columns.
func dropColumns(s string, n int) string {
	seen := 0
	for i, r := range s {
		if seen >= n {
			return s[i:]
		}
		seen += ansi.PrintableRuneWidth(string(r))
	}
	return ""
}
