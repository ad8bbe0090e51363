// Package tui provides the terminal user interface using Bubble Tea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/internal/catalog"
	"github.com/azyu/chapterstudio/internal/glossary"
	"github.com/azyu/chapterstudio/internal/recordstore"
	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/internal/tui/styles"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/truncate"
	"go.uber.org/zap"
)

// Tab is the active top-level view.
type Tab int

const (
	TabMaterial Tab = iota
	TabCharacters
	TabTimeline
	TabLore
)

var tabs = []Tab{TabMaterial, TabCharacters, TabTimeline, TabLore}

func (t Tab) String() string {
	switch t {
	case TabMaterial:
		return "Material"
	case TabCharacters:
		return "Characters"
	case TabTimeline:
		return "Timeline"
	case TabLore:
		return "Lore"
	default:
		return fmt.Sprintf("Tab(%d)", int(t))
	}
}

// Config is what the TUI drives.
type Config struct {
	Backend    session.Backend
	Session    *session.Session
	Catalog    *catalog.Catalog
	Characters *recordstore.Store[types.Character]
	Timeline   *recordstore.Store[types.TimelineEvent]
	Glossary   *recordstore.Store[types.GlossaryTerm]
	Logger     *zap.Logger

	// Title is shown in the header, usually the backend URL.
	Title string

	// MarkdownStyle is the glamour style for glossary popovers.
	// Defaults to "dark".
	MarkdownStyle string
}

// Model is the main TUI model.
type Model struct {
	backend  session.Backend
	session  *session.Session
	catalog  *catalog.Catalog
	glossary *recordstore.Store[types.GlossaryTerm]
	panels   map[Tab]panel
	logger   *zap.Logger
	title    string

	// View state
	tab    Tab
	focus  focus
	width  int
	height int
	ready  bool

	// Material tab
	form          []textinput.Model
	formField     int
	catalogCursor int
	variantCursor int
	termCursor    int
	draft         textarea.Model
	spinner       spinner.Model

	// index is rebuilt when the glossary store's version moves.
	index        *glossary.Index
	indexVersion uint64

	popover      *popover
	popoverStyle string

	toast    Toast
	toastSeq int
}

// New creates a new TUI model.
func New(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Select a variant to start editing..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(8)

	mdStyle := cfg.MarkdownStyle
	if mdStyle == "" {
		mdStyle = "dark"
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := &Model{
		backend:      cfg.Backend,
		session:      cfg.Session,
		catalog:      cfg.Catalog,
		glossary:     cfg.Glossary,
		logger:       logger,
		title:        cfg.Title,
		tab:          TabMaterial,
		form:         newGenerationForm(),
		draft:        ta,
		spinner:      sp,
		popoverStyle: mdStyle,
		index:        glossary.NewIndex(nil),
	}
	m.panels = map[Tab]panel{
		TabCharacters: newRecordPanel(TabCharacters, characterKind, cfg.Characters, uuid.NewString),
		TabTimeline:   newRecordPanel(TabTimeline, timelineKind, cfg.Timeline, uuid.NewString),
		TabLore:       newRecordPanel(TabLore, glossaryKind, cfg.Glossary, uuid.NewString),
	}
	m.setFocus(focusForm)
	return m
}

// Init loads the catalog and every collection.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, m.loadCatalog()}
	for _, t := range tabs {
		if p, ok := m.panels[t]; ok {
			cmds = append(cmds, p.refresh())
		}
	}
	return tea.Batch(cmds...)
}

// Messages

// sessionMsg carries the result of a session ticket back to the loop.
type sessionMsg struct {
	result session.Result
}

// catalogMsg reports a finished catalog reload.
type catalogMsg struct {
	err error
}

func (m *Model) run(t session.Ticket) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		return sessionMsg{result: session.Execute(context.Background(), b, t)}
	}
}

func (m *Model) loadCatalog() tea.Cmd {
	c := m.catalog
	return func() tea.Msg {
		_, err := c.ListAll(context.Background())
		return catalogMsg{err: err}
	}
}

func (m *Model) notify(msg string, level ToastLevel) tea.Cmd {
	m.toastSeq++
	var cmd tea.Cmd
	m.toast, cmd = showToast(m.toastSeq, msg, level)
	return cmd
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		return m, m.applySession(msg.result)

	case catalogMsg:
		if msg.err != nil {
			m.logger.Warn("catalog reload failed", zap.Error(msg.err))
			return m, m.notify("Could not load chapters: "+msg.err.Error(), ToastWarning)
		}
		m.catalogCursor = min(m.catalogCursor, max(0, len(m.catalog.Entries())-1))
		return m, nil

	case storeMsg:
		return m, m.applyStore(msg)

	case clearToastMsg:
		m.toast.Update(msg)
		return m, nil
	}

	return m, m.updateFocused(msg)
}

func (m *Model) applyStore(msg storeMsg) tea.Cmd {
	p := m.panels[msg.tab]
	p.applied(msg)

	name := strings.ToLower(msg.tab.String())
	switch {
	case msg.err == nil && msg.op == "refresh":
		return nil
	case msg.err == nil:
		return m.notify(fmt.Sprintf("%s: %s done", msg.tab, msg.op), ToastSuccess)
	case errors.Is(msg.err, recordstore.ErrResyncFailed):
		return m.notify(fmt.Sprintf("%s %s saved, but reload failed", name, msg.op), ToastWarning)
	case msg.op == "refresh":
		m.logger.Warn("refresh failed", zap.String("collection", name), zap.Error(msg.err))
		return m.notify("Could not load "+name+": "+msg.err.Error(), ToastWarning)
	default:
		m.logger.Warn("mutation failed", zap.String("collection", name), zap.String("op", msg.op), zap.Error(msg.err))
		return m.notify(fmt.Sprintf("%s %s failed: %v", name, msg.op, msg.err), ToastError)
	}
}

func (m *Model) applySession(r session.Result) tea.Cmd {
	err := m.session.Apply(r)
	switch {
	case errors.Is(err, session.ErrStale):
		m.logger.Debug("discarded stale response", zap.Stringer("kind", r.Ticket.Kind), zap.Uint64("seq", r.Ticket.Seq))
		return nil
	case session.IsWarning(err):
		return m.notify("Selection not recorded: "+errors.Unwrap(err).Error(), ToastWarning)
	case err != nil:
		m.logger.Warn("session call failed", zap.Stringer("kind", r.Ticket.Kind), zap.Error(err))
		if r.Ticket.Kind != session.KindSave {
			m.draft.SetValue(m.session.Draft())
		}
		return m.notify(fmt.Sprintf("%s failed: %v", capitalize(r.Ticket.Kind.String()), err), ToastError)
	}

	switch r.Ticket.Kind {
	case session.KindGeneration:
		m.chapterChanged()
		return tea.Batch(m.loadCatalog(), m.notify(fmt.Sprintf("%d variants ready", len(m.session.Variants())), ToastSuccess))
	case session.KindLoad:
		m.chapterChanged()
		return m.notify("Chapter loaded", ToastSuccess)
	case session.KindSave:
		return m.notify("Draft saved", ToastSuccess)
	}
	return nil
}

// chapterChanged resets the per-chapter cursors after the variants changed.
func (m *Model) chapterChanged() {
	m.variantCursor = 0
	m.termCursor = 0
	m.popover = nil
	m.draft.SetValue(m.session.Draft())
	m.setFocus(focusVariants)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "esc":
		if m.popover != nil {
			m.popover = nil
			return nil
		}
		if p, ok := m.panels[m.tab]; ok {
			p.cancel()
			return nil
		}
		if m.focus == focusForm || m.focus == focusDraft {
			m.setFocus(focusCatalog)
		}
		return nil
	case "f1", "f2", "f3", "f4":
		m.switchTab(tabs[msg.String()[1]-'1'])
		return nil
	}

	if m.popover != nil {
		return nil
	}

	if !m.typing() {
		switch msg.String() {
		case "q":
			return tea.Quit
		case "1", "2", "3", "4":
			m.switchTab(tabs[msg.String()[0]-'1'])
			return nil
		case "]":
			m.switchTab(tabs[(int(m.tab)+1)%len(tabs)])
			return nil
		case "[":
			m.switchTab(tabs[(int(m.tab)+len(tabs)-1)%len(tabs)])
			return nil
		}
	}

	if p, ok := m.panels[m.tab]; ok {
		return p.handleKey(msg)
	}
	return m.handleMaterialKey(msg)
}

// typing reports whether keys are going into a text field.
func (m *Model) typing() bool {
	if p, ok := m.panels[m.tab]; ok {
		return p.typing()
	}
	return m.focus == focusForm || m.focus == focusDraft
}

func (m *Model) switchTab(t Tab) {
	m.tab = t
	m.popover = nil
}

func (m *Model) resize() {
	half := max(20, m.width/2-4)
	for i := range m.form {
		m.form[i].Width = half - 16
	}
	m.draft.SetWidth(max(20, m.width-half-8))
}

// glossaryIndex returns the index for the current glossary snapshot.
func (m *Model) glossaryIndex() *glossary.Index {
	if m.glossary == nil {
		return m.index
	}
	if v := m.glossary.Version(); v != m.indexVersion {
		m.index = glossary.NewIndex(m.glossary.Snapshot())
		m.indexVersion = v
	}
	return m.index
}

// View renders the TUI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	if p, ok := m.panels[m.tab]; ok {
		sb.WriteString(styles.Panel.Width(styles.Width(m.width)).Render(p.view(styles.Width(m.width))))
	} else {
		sb.WriteString(m.renderMaterial())
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())

	out := sb.String()
	if m.popover != nil {
		out = renderCentered(m.popover.view(), out)
	}
	return renderToastTopRight(m.toast.View(m.width/2), out, 1)
}

func (m *Model) renderHeader() string {
	parts := []string{styles.Header.Render("CHAPTER STUDIO")}
	for _, t := range tabs {
		label := fmt.Sprintf("%d %s", int(t)+1, t)
		if t == m.tab {
			parts = append(parts, styles.ActiveTab.Render(label))
		} else {
			parts = append(parts, styles.Tab.Render(label))
		}
	}
	if m.title != "" {
		parts = append(parts, styles.Muted.Render("  "+m.title))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderStatus() string {
	state := m.session.State()
	status := styles.StatusKey.Render(state.String())
	if id := m.session.ChapterID(); id != "" {
		status += " " + styles.Muted.Render(id)
	}
	if m.session.Pending() {
		status += " " + m.spinner.View()
	}
	if m.session.Dirty() {
		status += " " + styles.Unsaved.Render("unsaved")
	}
	return styles.StatusBar.Render(status) + " " + helpLine("F1-F4", "tabs", "tab", "panel", "ctrl+c", "quit")
}

func helpLine(pairs ...string) string {
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, styles.HelpKey.Render(pairs[i])+" "+styles.HelpDesc.Render(pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

func truncateLine(s string, width int) string {
	return truncate.StringWithTail(s, uint(width), "...")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
