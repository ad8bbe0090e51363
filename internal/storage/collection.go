package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/azyu/chapterstudio/pkg/types"
)

type scanner interface {
	Scan(dest ...any) error
}

// table maps one record type onto its SQLite table.
type table[R any] struct {
	name    string
	columns []string
	values  func(R) []any
	scan    func(scanner) (R, error)
}

// Collection is the CRUD view of one story table.
type Collection[R any] struct {
	db *SQLiteDB
	t  table[R]
}

var characterTable = table[types.Character]{
	name:    "characters",
	columns: []string{"name", "role", "notes"},
	values:  func(c types.Character) []any { return []any{c.Name, c.Role, c.Notes} },
	scan: func(sc scanner) (types.Character, error) {
		var c types.Character
		err := sc.Scan(&c.ID, &c.Name, &c.Role, &c.Notes)
		return c, err
	},
}

var timelineTable = table[types.TimelineEvent]{
	name:    "timeline",
	columns: []string{"title", "timestamp", "description"},
	values:  func(e types.TimelineEvent) []any { return []any{e.Title, e.Timestamp, e.Description} },
	scan: func(sc scanner) (types.TimelineEvent, error) {
		var e types.TimelineEvent
		err := sc.Scan(&e.ID, &e.Title, &e.Timestamp, &e.Description)
		return e, err
	},
}

var glossaryTable = table[types.GlossaryTerm]{
	name:    "glossary",
	columns: []string{"term", "meaning"},
	values:  func(g types.GlossaryTerm) []any { return []any{g.Term, g.Meaning} },
	scan: func(sc scanner) (types.GlossaryTerm, error) {
		var g types.GlossaryTerm
		err := sc.Scan(&g.ID, &g.Term, &g.Meaning)
		return g, err
	},
}

// Characters returns the character table.
func (s *SQLiteDB) Characters() *Collection[types.Character] {
	return &Collection[types.Character]{db: s, t: characterTable}
}

// Timeline returns the timeline table.
func (s *SQLiteDB) Timeline() *Collection[types.TimelineEvent] {
	return &Collection[types.TimelineEvent]{db: s, t: timelineTable}
}

// Glossary returns the glossary table.
func (s *SQLiteDB) Glossary() *Collection[types.GlossaryTerm] {
	return &Collection[types.GlossaryTerm]{db: s, t: glossaryTable}
}

// Name returns the table name.
func (c *Collection[R]) Name() string {
	return c.t.name
}

// List returns every record in insertion order.
func (c *Collection[R]) List(ctx context.Context) ([]R, error) {
	return c.query(ctx, "ORDER BY rowid ASC")
}

// Recent returns the n most recently inserted records, newest first.
func (c *Collection[R]) Recent(ctx context.Context, n int) ([]R, error) {
	return c.query(ctx, fmt.Sprintf("ORDER BY rowid DESC LIMIT %d", n))
}

func (c *Collection[R]) query(ctx context.Context, suffix string) ([]R, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s %s", strings.Join(c.t.columns, ", "), c.t.name, suffix)
	rows, err := c.db.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.t.name, err)
	}
	defer rows.Close()

	records := []R{}
	for rows.Next() {
		r, err := c.t.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", c.t.name, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Create inserts a record under id. A taken id fails with ErrConflict.
func (c *Collection[R]) Create(ctx context.Context, id string, r R) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(c.t.columns)+1), ", ")
	q := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s)",
		c.t.name, strings.Join(c.t.columns, ", "), placeholders)

	args := append([]any{id}, c.t.values(r)...)
	if _, err := c.db.db.ExecContext(ctx, q, args...); err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%s %s: %w", c.t.name, id, ErrConflict)
		}
		return fmt.Errorf("failed to insert into %s: %w", c.t.name, err)
	}
	return nil
}

// Update replaces the record stored under id. An unknown id fails with
// ErrNotFound.
func (c *Collection[R]) Update(ctx context.Context, id string, r R) error {
	sets := make([]string, len(c.t.columns))
	for i, col := range c.t.columns {
		sets[i] = col + " = ?"
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", c.t.name, strings.Join(sets, ", "))

	args := append(c.t.values(r), id)
	res, err := c.db.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.t.name, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("%s %s: %w", c.t.name, id, err)
	}
	return nil
}

// Delete removes the record stored under id. Deleting an unknown id is not
// an error.
func (c *Collection[R]) Delete(ctx context.Context, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ?", c.t.name)
	if _, err := c.db.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.t.name, err)
	}
	return nil
}
