// Package session implements the chapter lifecycle: generation, variant
// selection, draft editing and saving.
//
// Every backend call is split in two. A Begin operation performs the state
// transition and returns a Ticket describing the call; the caller performs
// the call however it likes and feeds the outcome to the matching Apply.
// Generation and load share one read sequence and save has its own; an
// Apply whose ticket is no longer the latest of its sequence returns
// ErrStale and changes nothing.
//
// A Session is not safe for concurrent use. It is owned by one event loop.
package session

import (
	"fmt"
	"slices"
	"strings"

	"github.com/azyu/chapterstudio/pkg/types"
)

// snapshot is the restorable part of a session.
type snapshot struct {
	state     State
	chapterID string
	request   types.GenerationRequest
	variants  []string
	selected  int
	draft     string
	dirty     bool
}

// Session is the state of the chapter being worked on.
type Session struct {
	snapshot

	// prior is the state a pending generation replaced.
	prior *snapshot

	readSeq uint64
	saveSeq uint64
	reading bool

	// epoch increases whenever variants are replaced; save tickets issued
	// against older variants are stale.
	epoch uint64
}

// New returns an idle session.
func New() *Session {
	return &Session{snapshot: snapshot{selected: -1}}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// ChapterID returns the current chapter id, or "" before any chapter.
func (s *Session) ChapterID() string { return s.chapterID }

// Request returns the generation request that produced the chapter.
// It is empty for chapters opened from the catalog.
func (s *Session) Request() types.GenerationRequest { return s.request }

// Variants returns a copy of the current variants.
func (s *Session) Variants() []string { return slices.Clone(s.variants) }

// Selected returns the selected variant text and its index.
func (s *Session) Selected() (string, int, bool) {
	if s.selected < 0 || s.selected >= len(s.variants) {
		return "", -1, false
	}
	return s.variants[s.selected], s.selected, true
}

// Draft returns the edit buffer.
func (s *Session) Draft() string { return s.draft }

// Dirty reports whether the edit buffer has changes not yet saved.
func (s *Session) Dirty() bool { return s.dirty }

// Pending reports whether a generation or load is in flight.
func (s *Session) Pending() bool { return s.reading }

// BeginGeneration starts a new chapter. Prior variants, selection and edit
// buffer are discarded once the response arrives.
func (s *Session) BeginGeneration(req types.GenerationRequest) (Ticket, error) {
	switch s.state {
	case Idle, Reviewing, Selected, Saved:
	default:
		return Ticket{}, invalid("generate", s.state)
	}
	if err := req.Validate(); err != nil {
		return Ticket{}, err
	}

	prior := s.snapshot
	prior.variants = slices.Clone(s.variants)
	s.prior = &prior

	s.readSeq++
	s.reading = true
	s.state = Generating
	return Ticket{Kind: KindGeneration, Seq: s.readSeq, Request: req}, nil
}

// ApplyGeneration applies the outcome of a generation ticket. On failure the
// state before BeginGeneration is restored and err is returned.
func (s *Session) ApplyGeneration(t Ticket, resp *types.ChapterResponse, err error) error {
	if t.Kind != KindGeneration || t.Seq != s.readSeq || s.state != Generating {
		return ErrStale
	}

	s.reading = false
	if err == nil && (resp == nil || resp.ID == "") {
		err = fmt.Errorf("generation returned no chapter")
	}
	if err != nil {
		s.restore()
		return err
	}

	s.replace(resp.ID, t.Request, resp.Variants)
	return nil
}

// BeginLoad opens an existing chapter by id. It is valid in every state and
// abandons a pending generation, restoring the state that preceded it.
func (s *Session) BeginLoad(id string) (Ticket, error) {
	if strings.TrimSpace(id) == "" {
		return Ticket{}, &types.ValidationError{Field: "chapter_id", Reason: "must not be blank"}
	}
	if s.state == Generating {
		s.restore()
	}

	s.readSeq++
	s.reading = true
	return Ticket{Kind: KindLoad, Seq: s.readSeq, ChapterID: id}, nil
}

// ApplyLoad applies the outcome of a load ticket. On failure the session is
// left untouched and err is returned.
func (s *Session) ApplyLoad(t Ticket, resp *types.ChapterResponse, err error) error {
	if t.Kind != KindLoad || t.Seq != s.readSeq {
		return ErrStale
	}
	s.reading = false
	if err == nil && resp == nil {
		err = fmt.Errorf("load %s returned no chapter", t.ChapterID)
	}
	if err != nil {
		return err
	}

	s.replace(t.ChapterID, types.GenerationRequest{}, resp.Variants)
	return nil
}

// SelectVariant chooses one of the variants and resets the edit buffer to
// it. The returned ticket records the choice on the backend; its failure is
// only a warning.
func (s *Session) SelectVariant(text string) (Ticket, error) {
	switch s.state {
	case Reviewing, Selected, Saved:
	default:
		return Ticket{}, invalid("select", s.state)
	}

	idx := slices.Index(s.variants, text)
	if idx < 0 {
		return Ticket{}, ErrUnknownVariant
	}
	return s.selectIndex(idx), nil
}

// SelectIndex is SelectVariant by position.
func (s *Session) SelectIndex(i int) (Ticket, error) {
	switch s.state {
	case Reviewing, Selected, Saved:
	default:
		return Ticket{}, invalid("select", s.state)
	}
	if i < 0 || i >= len(s.variants) {
		return Ticket{}, fmt.Errorf("%w: index %d of %d", ErrUnknownVariant, i, len(s.variants))
	}
	return s.selectIndex(i), nil
}

func (s *Session) selectIndex(i int) Ticket {
	s.selected = i
	s.draft = s.variants[i]
	s.dirty = false
	s.state = Selected
	return Ticket{Kind: KindSelection, ChapterID: s.chapterID, Text: s.draft, epoch: s.epoch}
}

// ApplySelection reports the outcome of a selection ticket. It never changes
// the session; a failure comes back as a *Warning.
func (s *Session) ApplySelection(t Ticket, err error) error {
	if t.Kind != KindSelection || t.ChapterID != s.chapterID {
		return ErrStale
	}
	if err != nil {
		return &Warning{Op: "record selection", Err: err}
	}
	return nil
}

// EditDraft replaces the edit buffer. The selected variant is untouched.
func (s *Session) EditDraft(text string) error {
	if !s.state.HasSelection() {
		return invalid("edit", s.state)
	}
	if text == s.draft {
		return nil
	}
	s.draft = text
	s.dirty = true
	s.state = Selected
	return nil
}

// BeginSave persists the edit buffer against the current chapter.
func (s *Session) BeginSave() (Ticket, error) {
	if !s.state.HasSelection() {
		return Ticket{}, invalid("save", s.state)
	}
	s.saveSeq++
	return Ticket{Kind: KindSave, Seq: s.saveSeq, ChapterID: s.chapterID, Text: s.draft, epoch: s.epoch}, nil
}

// ApplySave applies the outcome of a save ticket. Success marks the session
// Saved unless the buffer changed while the save was in flight. Failure
// leaves everything as it was, unsaved changes included.
func (s *Session) ApplySave(t Ticket, err error) error {
	if t.Kind != KindSave || t.Seq != s.saveSeq || t.epoch != s.epoch {
		return ErrStale
	}
	if err != nil {
		return err
	}
	if !s.state.HasSelection() || s.draft != t.Text {
		return nil
	}
	s.dirty = false
	s.state = Saved
	return nil
}

// Apply dispatches a Result to the matching Apply operation.
func (s *Session) Apply(r Result) error {
	switch r.Ticket.Kind {
	case KindGeneration:
		return s.ApplyGeneration(r.Ticket, r.Chapter, r.Err)
	case KindLoad:
		return s.ApplyLoad(r.Ticket, r.Chapter, r.Err)
	case KindSelection:
		return s.ApplySelection(r.Ticket, r.Err)
	case KindSave:
		return s.ApplySave(r.Ticket, r.Err)
	default:
		return ErrStale
	}
}

func (s *Session) replace(id string, req types.GenerationRequest, variants []string) {
	s.snapshot = snapshot{
		state:     Reviewing,
		chapterID: id,
		request:   req,
		variants:  slices.Clone(variants),
		selected:  -1,
	}
	s.prior = nil
	s.epoch++
}

func (s *Session) restore() {
	if s.prior != nil {
		s.snapshot = *s.prior
		s.prior = nil
	}
}
