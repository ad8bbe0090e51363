package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/internal/recordstore"
	"github.com/azyu/chapterstudio/internal/tui/styles"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// storeMsg reports a finished store call for the panel on tab.
type storeMsg struct {
	tab Tab
	op  string
	err error
}

// panel is one collection tab.
type panel interface {
	refresh() tea.Cmd
	typing() bool
	handleKey(msg tea.KeyMsg) tea.Cmd
	applied(msg storeMsg)
	cancel() bool
	view(width int) string
}

// recordKind describes how a record type is listed and edited.
type recordKind[R recordstore.Record] struct {
	noun   string
	fields []string
	values func(R) []string
	build  func(id string, values []string) R
	line   func(R) string
}

var characterKind = recordKind[types.Character]{
	noun:   "character",
	fields: []string{"Name", "Role", "Notes"},
	values: func(c types.Character) []string { return []string{c.Name, c.Role, c.Notes} },
	build: func(id string, v []string) types.Character {
		return types.Character{ID: id, Name: v[0], Role: v[1], Notes: v[2]}
	},
	line: func(c types.Character) string { return fmt.Sprintf("%s (%s): %s", c.Name, c.Role, c.Notes) },
}

var timelineKind = recordKind[types.TimelineEvent]{
	noun:   "event",
	fields: []string{"Title", "Timestamp", "Description"},
	values: func(e types.TimelineEvent) []string { return []string{e.Title, e.Timestamp, e.Description} },
	build: func(id string, v []string) types.TimelineEvent {
		return types.TimelineEvent{ID: id, Title: v[0], Timestamp: v[1], Description: v[2]}
	},
	line: func(e types.TimelineEvent) string { return fmt.Sprintf("[%s] %s: %s", e.Timestamp, e.Title, e.Description) },
}

var glossaryKind = recordKind[types.GlossaryTerm]{
	noun:   "term",
	fields: []string{"Term", "Meaning"},
	values: func(g types.GlossaryTerm) []string { return []string{g.Term, g.Meaning} },
	build: func(id string, v []string) types.GlossaryTerm {
		return types.GlossaryTerm{ID: id, Term: v[0], Meaning: v[1]}
	},
	line: func(g types.GlossaryTerm) string { return g.Term + ": " + g.Meaning },
}

// recordPanel lists one collection with inline edit, add and delete.
type recordPanel[R recordstore.Record] struct {
	tab   Tab
	kind  recordKind[R]
	store *recordstore.Store[R]
	newID func() string

	cursor int

	// inputs is non-nil while the add or edit form is open.
	inputs []textinput.Model
	field  int
	adding bool

	// confirm holds the id of a record awaiting a second delete press.
	confirm string
}

func newRecordPanel[R recordstore.Record](tab Tab, kind recordKind[R], store *recordstore.Store[R], newID func() string) *recordPanel[R] {
	return &recordPanel[R]{tab: tab, kind: kind, store: store, newID: newID}
}

func (p *recordPanel[R]) do(op string, call func(context.Context) error) tea.Cmd {
	tab := p.tab
	return func() tea.Msg {
		return storeMsg{tab: tab, op: op, err: call(context.Background())}
	}
}

func (p *recordPanel[R]) refresh() tea.Cmd {
	return p.do("refresh", p.store.Refresh)
}

func (p *recordPanel[R]) typing() bool {
	return p.inputs != nil
}

func (p *recordPanel[R]) openForm(values []string) tea.Cmd {
	p.inputs = make([]textinput.Model, len(p.kind.fields))
	for i, name := range p.kind.fields {
		ti := textinput.New()
		ti.Placeholder = name
		ti.CharLimit = 2000
		if values != nil {
			ti.SetValue(values[i])
		}
		p.inputs[i] = ti
	}
	p.field = 0
	return p.inputs[0].Focus()
}

func (p *recordPanel[R]) closeForm() {
	p.inputs = nil
	p.adding = false
}

func (p *recordPanel[R]) formValues() []string {
	vals := make([]string, len(p.inputs))
	for i, in := range p.inputs {
		vals[i] = strings.TrimSpace(in.Value())
	}
	return vals
}

func (p *recordPanel[R]) moveField(delta int) tea.Cmd {
	p.inputs[p.field].Blur()
	p.field = (p.field + delta + len(p.inputs)) % len(p.inputs)
	return p.inputs[p.field].Focus()
}

// cancel closes an open form. It reports whether there was one.
func (p *recordPanel[R]) cancel() bool {
	if p.confirm != "" {
		p.confirm = ""
		return true
	}
	if p.inputs == nil {
		return false
	}
	if !p.adding {
		p.store.CancelEdit()
	}
	p.closeForm()
	return true
}

func (p *recordPanel[R]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if p.inputs != nil {
		return p.handleFormKey(msg)
	}

	records := p.store.Snapshot()
	if p.confirm != "" {
		return p.confirmDelete(msg)
	}
	switch msg.String() {
	case "up", "k":
		p.cursor = max(0, p.cursor-1)
	case "down", "j":
		p.cursor = min(len(records)-1, p.cursor+1)
		p.cursor = max(0, p.cursor)
	case "a":
		p.adding = true
		return p.openForm(nil)
	case "e", "enter":
		if p.cursor >= len(records) {
			return nil
		}
		rec, err := p.store.BeginEdit(records[p.cursor].RecordID())
		if err != nil {
			return p.do("edit", func(context.Context) error { return err })
		}
		return p.openForm(p.kind.values(rec))
	case "d", "delete":
		if p.cursor >= len(records) {
			return nil
		}
		p.confirm = records[p.cursor].RecordID()
	case "r":
		return p.refresh()
	}
	return nil
}

// confirmDelete deletes the armed record on a second d. Any other key
// disarms it and is otherwise ignored.
func (p *recordPanel[R]) confirmDelete(msg tea.KeyMsg) tea.Cmd {
	id := p.confirm
	p.confirm = ""
	switch msg.String() {
	case "d", "delete", "y":
		if _, ok := p.store.Find(id); !ok {
			return nil
		}
		return p.do("delete", func(ctx context.Context) error { return p.store.Delete(ctx, id) })
	}
	return nil
}

func (p *recordPanel[R]) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down":
		return p.moveField(1)
	case "shift+tab", "up":
		return p.moveField(-1)
	case "enter":
		if p.field < len(p.inputs)-1 {
			return p.moveField(1)
		}
		return p.submit()
	case "ctrl+s":
		return p.submit()
	}

	var cmd tea.Cmd
	p.inputs[p.field], cmd = p.inputs[p.field].Update(msg)
	return cmd
}

func (p *recordPanel[R]) submit() tea.Cmd {
	vals := p.formValues()
	if p.adding {
		rec := p.kind.build(p.newID(), vals)
		return p.do("create", func(ctx context.Context) error { return p.store.Create(ctx, rec) })
	}

	id, ok := p.store.EditMode().ID()
	if !ok {
		p.closeForm()
		return nil
	}
	rec := p.kind.build(id, vals)
	return p.do("update", func(ctx context.Context) error { return p.store.CommitEdit(ctx, rec) })
}

// applied closes the form once its write reached the backend, even when the
// resync afterwards failed.
func (p *recordPanel[R]) applied(msg storeMsg) {
	if msg.err != nil && !errors.Is(msg.err, recordstore.ErrResyncFailed) {
		return
	}
	switch msg.op {
	case "create", "update":
		p.closeForm()
	case "delete":
		p.cursor = max(0, min(p.cursor, len(p.store.Snapshot())-1))
	}
}

func (p *recordPanel[R]) view(width int) string {
	var sb strings.Builder
	records := p.store.Snapshot()
	edit := p.store.EditMode()

	title := strings.ToUpper(p.kind.noun[:1]) + p.kind.noun[1:] + "s"
	sb.WriteString(styles.Title.Render(title))
	if p.store.Stale() {
		sb.WriteString(styles.Muted.Render("  (refreshing)"))
	}
	sb.WriteString("\n\n")

	if !p.store.Loaded() {
		sb.WriteString(styles.Muted.Render("Loading..."))
		sb.WriteString("\n")
	} else if len(records) == 0 && !p.adding {
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("No %ss yet. Press a to add one.", p.kind.noun)))
		sb.WriteString("\n")
	}

	for i, rec := range records {
		if edit.Is(rec.RecordID()) && p.inputs != nil {
			sb.WriteString(p.formView())
			continue
		}
		line := p.kind.line(rec)
		if width > 6 {
			line = truncateLine(line, width-4)
		}
		if i == p.cursor && p.inputs == nil {
			sb.WriteString(styles.Cursor.Render("> " + line))
		} else {
			sb.WriteString(styles.Row.Render(line))
		}
		sb.WriteString("\n")
	}

	if p.adding && p.inputs != nil {
		sb.WriteString("\n")
		sb.WriteString(styles.Title.Render("New " + p.kind.noun))
		sb.WriteString("\n")
		sb.WriteString(p.formView())
	}

	sb.WriteString("\n")
	rec, confirming := p.store.Find(p.confirm)
	if confirming && p.confirm != "" {
		prompt := fmt.Sprintf("Delete %s %q?", p.kind.noun, truncateLine(p.kind.line(rec), 40))
		sb.WriteString(styles.Unsaved.Render(prompt))
		sb.WriteString("\n")
		sb.WriteString(helpLine("d", "confirm", "esc", "cancel"))
	} else if p.inputs != nil {
		sb.WriteString(helpLine("enter", "next/save", "tab", "field", "esc", "cancel"))
	} else {
		sb.WriteString(helpLine("a", "add", "e", "edit", "d", "delete", "r", "refresh"))
	}
	return sb.String()
}

func (p *recordPanel[R]) formView() string {
	var sb strings.Builder
	for i, in := range p.inputs {
		sb.WriteString("  ")
		sb.WriteString(styles.Label.Render(p.kind.fields[i]))
		sb.WriteString(in.View())
		sb.WriteString("\n")
	}
	return sb.String()
}
