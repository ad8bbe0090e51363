// Package catalog lists previously generated chapters and opens them into a
// session.
package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/pkg/types"
)

// Lister fetches chapter metadata, newest first.
type Lister interface {
	Chapters(ctx context.Context) ([]types.ChapterMeta, error)
}

// Catalog holds the last good chapter listing. It is safe for concurrent use.
type Catalog struct {
	lister Lister

	mu      sync.RWMutex
	entries []types.ChapterMeta
	loaded  bool
}

// New creates an empty catalog.
func New(lister Lister) *Catalog {
	return &Catalog{lister: lister}
}

// ListAll refreshes the listing. On failure the prior listing is kept and
// the error is returned.
func (c *Catalog) ListAll(ctx context.Context) ([]types.ChapterMeta, error) {
	metas, err := c.lister.Chapters(ctx)
	if err != nil {
		return c.Entries(), err
	}

	c.mu.Lock()
	c.entries = slices.Clone(metas)
	c.loaded = true
	c.mu.Unlock()

	return slices.Clone(metas), nil
}

// Entries returns the last good listing.
func (c *Catalog) Entries() []types.ChapterMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

// Loaded reports whether any listing has succeeded.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Open starts loading chapter id into s. Run the returned ticket and feed
// its result to s.Apply.
func (c *Catalog) Open(s *session.Session, id string) (session.Ticket, error) {
	return s.BeginLoad(id)
}

// Preview returns the first n runes of a chapter summary, with "..."
// appended when it was cut.
func Preview(meta types.ChapterMeta, n int) string {
	summary := strings.Join(strings.Fields(meta.Summary), " ")
	if n <= 0 {
		return ""
	}
	runes := []rune(summary)
	if len(runes) <= n {
		return summary
	}
	return string(runes[:n]) + "..."
}
