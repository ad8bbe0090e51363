package tui

import (
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/internal/catalog"
	"github.com/azyu/chapterstudio/internal/glossary"
	"github.com/azyu/chapterstudio/internal/tui/styles"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"go.uber.org/zap"
)

// focus is the panel of the material tab receiving keys.
type focus int

const (
	focusForm focus = iota
	focusCatalog
	focusVariants
	focusPreview
	focusDraft
	focusCount
)

// Generation form fields.
const (
	fieldSummary = iota
	fieldTone
	fieldPOV
	fieldWordCount
	fieldMustInclude
)

var formLabels = []string{"Summary", "Tone", "POV", "Word count", "Must include"}

func newGenerationForm() []textinput.Model {
	placeholders := []string{
		"What happens in this chapter",
		"grim, hopeful, tense...",
		"first person, Kael...",
		"800",
		"names, objects, beats",
	}
	form := make([]textinput.Model, len(formLabels))
	for i := range form {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 2000
		form[i] = ti
	}
	return form
}

func (m *Model) request() types.GenerationRequest {
	v := func(i int) string { return strings.TrimSpace(m.form[i].Value()) }
	return types.GenerationRequest{
		Summary:     v(fieldSummary),
		Tone:        v(fieldTone),
		POV:         v(fieldPOV),
		WordCount:   v(fieldWordCount),
		MustInclude: v(fieldMustInclude),
	}
}

func (m *Model) setFocus(f focus) {
	for i := range m.form {
		m.form[i].Blur()
	}
	m.draft.Blur()
	m.focus = f
	switch f {
	case focusForm:
		m.form[m.formField].Focus()
	case focusDraft:
		m.draft.Focus()
	}
}

func (m *Model) cycleFocus(delta int) {
	f := m.focus
	for range focusCount {
		f = (f + focus(delta) + focusCount) % focusCount
		if f != focusDraft || m.session.State().HasSelection() {
			break
		}
	}
	m.setFocus(f)
}

func (m *Model) generate() tea.Cmd {
	if err := m.request().Validate(); err != nil {
		return m.notify(err.Error(), ToastWarning)
	}
	t, err := m.session.BeginGeneration(m.request())
	if err != nil {
		return m.notify(err.Error(), ToastWarning)
	}
	m.readStarted()
	return m.run(t)
}

// readStarted parks the draft while a generation or load is in flight. The
// textarea mirrors the session again once the read settles.
func (m *Model) readStarted() {
	m.draft.SetValue(m.session.Draft())
	if m.focus == focusDraft {
		m.setFocus(focusVariants)
	}
}

func (m *Model) save() tea.Cmd {
	t, err := m.session.BeginSave()
	if err != nil {
		return m.notify("Nothing to save: select a variant first", ToastWarning)
	}
	return m.run(t)
}

func (m *Model) handleMaterialKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		m.cycleFocus(1)
		return nil
	case "shift+tab":
		m.cycleFocus(-1)
		return nil
	case "ctrl+g":
		return m.generate()
	case "ctrl+s":
		return m.save()
	}

	switch m.focus {
	case focusForm:
		return m.handleFormKey(msg)
	case focusCatalog:
		return m.handleCatalogKey(msg)
	case focusVariants:
		return m.handleVariantKey(msg)
	case focusPreview:
		return m.handlePreviewKey(msg)
	case focusDraft:
		return m.updateDraft(msg)
	}
	return nil
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	move := func(delta int) tea.Cmd {
		m.form[m.formField].Blur()
		m.formField = (m.formField + delta + len(m.form)) % len(m.form)
		return m.form[m.formField].Focus()
	}

	switch msg.String() {
	case "up":
		return move(-1)
	case "down":
		return move(1)
	case "enter":
		if m.formField < len(m.form)-1 {
			return move(1)
		}
		return m.generate()
	}

	var cmd tea.Cmd
	m.form[m.formField], cmd = m.form[m.formField].Update(msg)
	return cmd
}

func (m *Model) handleCatalogKey(msg tea.KeyMsg) tea.Cmd {
	entries := m.catalog.Entries()
	switch msg.String() {
	case "up", "k":
		m.catalogCursor = max(0, m.catalogCursor-1)
	case "down", "j":
		m.catalogCursor = max(0, min(len(entries)-1, m.catalogCursor+1))
	case "r":
		return m.loadCatalog()
	case "enter":
		if m.catalogCursor >= len(entries) {
			return nil
		}
		t, err := m.catalog.Open(m.session, entries[m.catalogCursor].ID)
		if err != nil {
			return m.notify(err.Error(), ToastWarning)
		}
		m.readStarted()
		return m.run(t)
	}
	return nil
}

func (m *Model) handleVariantKey(msg tea.KeyMsg) tea.Cmd {
	n := len(m.session.Variants())
	switch msg.String() {
	case "up", "k":
		m.variantCursor = max(0, m.variantCursor-1)
		m.termCursor = 0
	case "down", "j":
		m.variantCursor = max(0, min(n-1, m.variantCursor+1))
		m.termCursor = 0
	case "enter", " ":
		t, err := m.session.SelectIndex(m.variantCursor)
		if err != nil {
			return m.notify(err.Error(), ToastWarning)
		}
		m.draft.SetValue(m.session.Draft())
		m.termCursor = 0
		m.setFocus(focusDraft)
		return tea.Batch(m.run(t), m.notify(fmt.Sprintf("Variant %d selected", m.variantCursor+1), ToastInfo))
	}
	return nil
}

func (m *Model) handlePreviewKey(msg tea.KeyMsg) tea.Cmd {
	linked := glossary.Linked(m.glossaryIndex().Annotate(m.previewText()))
	switch msg.String() {
	case "left", "h":
		m.termCursor = max(0, m.termCursor-1)
	case "right", "l":
		m.termCursor = max(0, min(len(linked)-1, m.termCursor+1))
	case "enter":
		if m.termCursor < len(linked) {
			tok := linked[m.termCursor]
			m.popover = newPopover(tok.Term, tok.Meaning, m.popoverStyle, m.width/2)
		}
	}
	return nil
}

func (m *Model) updateDraft(msg tea.Msg) tea.Cmd {
	// Keys are dropped while nothing is selected so the textarea never
	// holds text the session would refuse to save.
	if !m.session.State().HasSelection() {
		return nil
	}
	var cmd tea.Cmd
	m.draft, cmd = m.draft.Update(msg)
	if m.draft.Value() != m.session.Draft() {
		if err := m.session.EditDraft(m.draft.Value()); err != nil {
			m.logger.Debug("draft edit rejected", zap.Error(err))
		}
	}
	return cmd
}

// updateFocused forwards non-key messages such as cursor blinks.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	if m.tab != TabMaterial {
		return nil
	}
	switch m.focus {
	case focusForm:
		var cmd tea.Cmd
		m.form[m.formField], cmd = m.form[m.formField].Update(msg)
		return cmd
	case focusDraft:
		var cmd tea.Cmd
		m.draft, cmd = m.draft.Update(msg)
		return cmd
	}
	return nil
}

// previewText is the draft once a variant is selected, otherwise the
// variant under the cursor.
func (m *Model) previewText() string {
	if m.session.State().HasSelection() {
		return m.session.Draft()
	}
	variants := m.session.Variants()
	if m.variantCursor < len(variants) {
		return variants[m.variantCursor]
	}
	return ""
}

func (m *Model) panelStyle(f focus) lipgloss.Style {
	if m.focus == f {
		return styles.FocusedPanel
	}
	return styles.Panel
}

func (m *Model) renderMaterial() string {
	left := max(30, m.width/2-2)
	right := max(30, m.width-left-4)

	form := m.panelStyle(focusForm).Width(left).Render(m.renderForm())
	chapters := m.panelStyle(focusCatalog).Width(left).Render(m.renderCatalog(left - 4))
	variants := m.panelStyle(focusVariants).Width(right).Render(m.renderVariants(right - 4))
	preview := m.panelStyle(focusPreview).Width(right).Render(m.renderPreview(right - 4))

	rightCol := []string{variants, preview}
	if m.session.State().HasSelection() {
		draft := m.panelStyle(focusDraft).Width(right).Render(
			styles.Title.Render("Draft") + "\n" + m.draft.View() + "\n" +
				helpLine("ctrl+s", "save", "tab", "next panel"))
		rightCol = append(rightCol, draft)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left, form, chapters),
		lipgloss.JoinVertical(lipgloss.Left, rightCol...),
	)
}

func (m *Model) renderForm() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("New chapter"))
	sb.WriteString("\n")
	for i, in := range m.form {
		sb.WriteString(styles.Label.Render(formLabels[i]))
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	sb.WriteString(helpLine("enter", "next", "ctrl+g", "generate"))
	return sb.String()
}

func (m *Model) renderCatalog(width int) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Chapters"))
	sb.WriteString("\n")

	entries := m.catalog.Entries()
	switch {
	case !m.catalog.Loaded():
		sb.WriteString(styles.Muted.Render("Loading..."))
		return sb.String()
	case len(entries) == 0:
		sb.WriteString(styles.Muted.Render("No chapters yet."))
		return sb.String()
	}

	for i, e := range entries {
		line := truncateLine(catalog.Preview(e, 60), max(10, width-2))
		if i == m.catalogCursor && m.focus == focusCatalog {
			sb.WriteString(styles.Cursor.Render("> " + line))
		} else {
			sb.WriteString(styles.Row.Render(line))
		}
		if e.ID == m.session.ChapterID() {
			sb.WriteString(styles.Chosen.Render(" *"))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) renderVariants(width int) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Variants"))
	sb.WriteString("\n")

	variants := m.session.Variants()
	if len(variants) == 0 {
		if m.session.Pending() {
			sb.WriteString(m.spinner.View() + " Working...")
		} else {
			sb.WriteString(styles.Muted.Render("Generate or open a chapter."))
		}
		return sb.String()
	}

	_, selected, hasSel := m.session.Selected()
	for i, v := range variants {
		line := fmt.Sprintf("%d. %s", i+1, strings.Join(strings.Fields(v), " "))
		line = truncateLine(line, max(10, width-4))
		if hasSel && i == selected {
			line += styles.Chosen.Render(" [selected]")
		}
		if i == m.variantCursor && m.focus == focusVariants {
			sb.WriteString(styles.Cursor.Render("> " + line))
		} else {
			sb.WriteString(styles.Row.Render(line))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderPreview shows the preview text with glossary terms highlighted.
// Line breaks are kept; each line is annotated on its own.
func (m *Model) renderPreview(width int) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("Preview"))
	sb.WriteString("\n")

	text := m.previewText()
	if text == "" {
		sb.WriteString(styles.Muted.Render("Nothing to preview."))
		return sb.String()
	}

	ix := m.glossaryIndex()
	linked := 0
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		var words []string
		for tok := range ix.Annotate(line) {
			if !tok.Linked {
				words = append(words, tok.Text)
				continue
			}
			style := styles.Term
			if m.focus == focusPreview && linked == m.termCursor {
				style = styles.FocusedTerm
			}
			words = append(words, style.Render(tok.Text))
			linked++
		}
		lines = append(lines, wordwrap.String(strings.Join(words, " "), max(10, width)))
	}
	sb.WriteString(strings.Join(lines, "\n"))

	if linked > 0 {
		sb.WriteString("\n")
		sb.WriteString(helpLine("left/right", "term", "enter", "define"))
	}
	return sb.String()
}
