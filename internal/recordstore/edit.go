package recordstore

import (
	"context"
	"fmt"
)

// EditMode is the inline-edit state of a collection: either no record or
// exactly one record is being edited. The zero value is not editing.
type EditMode struct {
	id string
}

// Editing returns the edit mode for the record with id.
func Editing(id string) EditMode {
	return EditMode{id: id}
}

// ID returns the record being edited, if any.
func (m EditMode) ID() (string, bool) {
	return m.id, m.id != ""
}

// Is reports whether the record with id is the one being edited.
func (m EditMode) Is(id string) bool {
	return m.id != "" && m.id == id
}

func (m EditMode) String() string {
	if m.id == "" {
		return "none"
	}
	return "editing(" + m.id + ")"
}

// EditMode returns the current inline-edit state.
func (s *Store[R]) EditMode() EditMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edit
}

// BeginEdit puts the record with id into edit mode, replacing any other
// record's edit mode.
func (s *Store[R]) BeginEdit(id string) (R, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.find(id)
	if !ok {
		return r, fmt.Errorf("begin edit %q: %w", id, ErrNotFound)
	}
	s.edit = Editing(id)
	return r, nil
}

// CancelEdit leaves edit mode without writing anything.
func (s *Store[R]) CancelEdit() {
	s.mu.Lock()
	s.edit = EditMode{}
	s.mu.Unlock()
}

// CommitEdit writes record over the one in edit mode. Edit mode is left only
// when the update itself succeeds; a failed resync still leaves it.
func (s *Store[R]) CommitEdit(ctx context.Context, record R) error {
	id, ok := s.EditMode().ID()
	if !ok {
		return ErrNotEditing
	}

	if err := s.source.Update(ctx, id, record); err != nil {
		return err
	}

	s.mu.Lock()
	if s.edit.Is(id) {
		s.edit = EditMode{}
	}
	s.mu.Unlock()
	s.invalidate()

	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrResyncFailed, err)
	}
	return nil
}
