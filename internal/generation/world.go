package generation

import (
	"context"
	"fmt"

	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
	"golang.org/x/sync/errgroup"
)

// RecentEvents is how many timeline events a prompt carries.
const RecentEvents = 5

// World is the story state a chapter is written against.
type World struct {
	Characters []types.Character
	Timeline   []types.TimelineEvent // newest first
	Glossary   []types.GlossaryTerm
}

type lister[R any] interface {
	List(ctx context.Context) ([]R, error)
}

type recentLister[R any] interface {
	Recent(ctx context.Context, n int) ([]R, error)
}

// Source reads the world from its three collections.
type Source struct {
	Characters lister[types.Character]
	Timeline   recentLister[types.TimelineEvent]
	Glossary   lister[types.GlossaryTerm]
}

// SourceFrom reads the world from the SQLite store.
func SourceFrom(db *storage.SQLiteDB) Source {
	return Source{
		Characters: db.Characters(),
		Timeline:   db.Timeline(),
		Glossary:   db.Glossary(),
	}
}

// Load reads all three collections concurrently. The first failure cancels
// the other reads.
func (s Source) Load(ctx context.Context) (World, error) {
	var w World
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chars, err := s.Characters.List(ctx)
		if err != nil {
			return fmt.Errorf("characters: %w", err)
		}
		w.Characters = chars
		return nil
	})
	g.Go(func() error {
		events, err := s.Timeline.Recent(ctx, RecentEvents)
		if err != nil {
			return fmt.Errorf("timeline: %w", err)
		}
		w.Timeline = events
		return nil
	})
	g.Go(func() error {
		terms, err := s.Glossary.List(ctx)
		if err != nil {
			return fmt.Errorf("glossary: %w", err)
		}
		w.Glossary = terms
		return nil
	})

	if err := g.Wait(); err != nil {
		return World{}, err
	}
	return w, nil
}
