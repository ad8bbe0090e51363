package session

import (
	"context"
	"fmt"

	"github.com/azyu/chapterstudio/pkg/types"
)

// Backend is the part of the backend client a session needs.
type Backend interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*types.ChapterResponse, error)
	Chapter(ctx context.Context, id string) (*types.ChapterResponse, error)
	SelectVariant(ctx context.Context, chapterID, text string) error
	SaveDraft(ctx context.Context, chapterID, text string) error
}

// Result is the outcome of executing a Ticket.
type Result struct {
	Ticket  Ticket
	Chapter *types.ChapterResponse
	Err     error
}

// Execute performs the backend call a ticket describes. It does not touch
// any session, so it can run off the event loop.
func Execute(ctx context.Context, b Backend, t Ticket) Result {
	r := Result{Ticket: t}
	switch t.Kind {
	case KindGeneration:
		r.Chapter, r.Err = b.Generate(ctx, t.Request)
	case KindLoad:
		r.Chapter, r.Err = b.Chapter(ctx, t.ChapterID)
	case KindSelection:
		r.Err = b.SelectVariant(ctx, t.ChapterID, t.Text)
	case KindSave:
		r.Err = b.SaveDraft(ctx, t.ChapterID, t.Text)
	default:
		r.Err = fmt.Errorf("unknown ticket kind %s", t.Kind)
	}
	return r
}

// Generate runs a generation to completion.
func (s *Session) Generate(ctx context.Context, b Backend, req types.GenerationRequest) error {
	t, err := s.BeginGeneration(req)
	if err != nil {
		return err
	}
	return s.Apply(Execute(ctx, b, t))
}

// Load opens a chapter and waits for it.
func (s *Session) Load(ctx context.Context, b Backend, id string) error {
	t, err := s.BeginLoad(id)
	if err != nil {
		return err
	}
	return s.Apply(Execute(ctx, b, t))
}

// Select chooses a variant and records the choice. A recording failure is
// returned as a *Warning; the selection itself stands.
func (s *Session) Select(ctx context.Context, b Backend, text string) error {
	t, err := s.SelectVariant(text)
	if err != nil {
		return err
	}
	return s.Apply(Execute(ctx, b, t))
}

// Save persists the edit buffer and waits for the backend.
func (s *Session) Save(ctx context.Context, b Backend) error {
	t, err := s.BeginSave()
	if err != nil {
		return err
	}
	return s.Apply(Execute(ctx, b, t))
}
