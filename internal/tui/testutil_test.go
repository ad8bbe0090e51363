package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/azyu/chapterstudio/internal/catalog"
	"github.com/azyu/chapterstudio/internal/recordstore"
	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/pkg/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Disable colors for consistent test output across environments
	lipgloss.SetColorProfile(termenv.Ascii)
}

// testConfig holds common test configuration values.
var testConfig = struct {
	Width   int
	Height  int
	Timeout time.Duration
}{
	Width:  120,
	Height: 40,
	// Commands slower than this are timers and are dropped.
	Timeout: 50 * time.Millisecond,
}

var errBoom = errors.New("boom")

// =============================================================================
// Fake backend
// =============================================================================

type fakeBackend struct {
	mu       sync.Mutex
	chapters []*types.ChapterResponse
	metas    []types.ChapterMeta
	variants []string
	requests []types.GenerationRequest
	selected []string
	saved    []string

	generateErr error
	selectErr   error
	saveErr     error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		variants: []string{
			"The Yantra hums beneath the keep.",
			"Kael waits. Kaal, the old time, waits with him.",
			"Rain on the Yantra.",
		},
	}
}

func (f *fakeBackend) Generate(ctx context.Context, req types.GenerationRequest) (*types.ChapterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	ch := &types.ChapterResponse{ID: fmt.Sprintf("ch-%d", len(f.chapters)+1), Variants: slices.Clone(f.variants)}
	f.chapters = append(f.chapters, ch)
	f.metas = append([]types.ChapterMeta{{ID: ch.ID, Summary: req.Summary, Tone: req.Tone, POV: req.POV}}, f.metas...)
	return ch, nil
}

func (f *fakeBackend) Chapter(ctx context.Context, id string) (*types.ChapterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.chapters {
		if ch.ID == id {
			return ch, nil
		}
	}
	return nil, errors.New("chapter not found")
}

func (f *fakeBackend) SelectVariant(ctx context.Context, chapterID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return f.selectErr
	}
	f.selected = append(f.selected, text)
	return nil
}

func (f *fakeBackend) SaveDraft(ctx context.Context, chapterID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, text)
	return nil
}

func (f *fakeBackend) Chapters(ctx context.Context) ([]types.ChapterMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.metas), nil
}

// addChapter stores a chapter as if it had been generated earlier.
func (f *fakeBackend) addChapter(id, summary string, variants ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapters = append(f.chapters, &types.ChapterResponse{ID: id, Variants: variants})
	f.metas = append(f.metas, types.ChapterMeta{ID: id, Summary: summary})
}

// =============================================================================
// Fake collection
// =============================================================================

type fakeSource[R recordstore.Record] struct {
	mu        sync.Mutex
	records   []R
	updates   int
	createErr error
	listErr   error
}

func (f *fakeSource[R]) List(ctx context.Context) ([]R, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.records), nil
}

func (f *fakeSource[R]) Create(ctx context.Context, r R) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, r)
	return nil
}

func (f *fakeSource[R]) Update(ctx context.Context, id string, r R) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	for i := range f.records {
		if f.records[i].RecordID() == id {
			f.records[i] = r
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeSource[R]) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = slices.DeleteFunc(f.records, func(r R) bool { return r.RecordID() == id })
	return nil
}

func (f *fakeSource[R]) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	m          *Model
	backend    *fakeBackend
	characters *fakeSource[types.Character]
	timeline   *fakeSource[types.TimelineEvent]
	glossary   *fakeSource[types.GlossaryTerm]
}

// newTestModel creates a sized model with everything loaded.
func newTestModel(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		backend: newFakeBackend(),
		characters: &fakeSource[types.Character]{records: []types.Character{
			{ID: "c1", Name: "Kael", Role: "exile", Notes: "scarred"},
		}},
		timeline: &fakeSource[types.TimelineEvent]{records: []types.TimelineEvent{
			{ID: "e1", Title: "The fall", Timestamp: "Year 0", Description: "The keep burns"},
		}},
		glossary: &fakeSource[types.GlossaryTerm]{records: []types.GlossaryTerm{
			{ID: "g1", Term: "Yantra", Meaning: "a mystical device"},
		}},
	}

	h.m = New(Config{
		Backend:       h.backend,
		Session:       session.New(),
		Catalog:       catalog.New(h.backend),
		Characters:    recordstore.New[types.Character](h.characters),
		Timeline:      recordstore.New[types.TimelineEvent](h.timeline),
		Glossary:      recordstore.New[types.GlossaryTerm](h.glossary),
		MarkdownStyle: "notty",
	})
	h.send(tea.WindowSizeMsg{Width: testConfig.Width, Height: testConfig.Height})
	h.drain(h.m.Init())
	return h
}

// send delivers msg and runs whatever it asks for.
func (h *harness) send(msg tea.Msg) {
	_, cmd := h.m.Update(msg)
	h.drain(cmd)
}

func (h *harness) key(k tea.KeyType) {
	h.send(tea.KeyMsg{Type: k})
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) runes(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// drain runs cmd and feeds its messages back into the model until nothing
// is left. Timers never fire within testConfig.Timeout and are dropped.
func (h *harness) drain(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 200; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}

		msg, ok := runCmd(c)
		if !ok {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
		default:
			_, next := h.m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func runCmd(c tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return msg, msg != nil
	case <-time.After(testConfig.Timeout):
		return nil, false
	}
}

// generate fills in a summary and runs a generation to completion.
func (h *harness) generate(summary string) {
	h.m.switchTab(TabMaterial)
	h.m.formField = fieldSummary
	h.m.setFocus(focusForm)
	h.runes(summary)
	h.key(tea.KeyCtrlG)
}
