// Package search finds chapters and story records by full-text query.
//
// The index is a SQLite FTS4 table kept current by triggers on the book
// tables, so nothing here writes to it except Rebuild.
package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/azyu/chapterstudio/internal/storage"
	"github.com/azyu/chapterstudio/pkg/types"
)

// Source types stored in the index.
const (
	SourceChapter   = "chapter"
	SourceCharacter = "character"
	SourceEvent     = "event"
	SourceTerm      = "term"
)

// SourceTypes lists every indexed source type.
var SourceTypes = []string{SourceChapter, SourceCharacter, SourceEvent, SourceTerm}

const (
	// DefaultLimit applies when Options.Limit is zero.
	DefaultLimit = 20

	maxLimit = 100

	snippetTokens = 12
)

// Options narrows a search.
type Options struct {
	// Limit is the maximum number of hits. Zero means DefaultLimit.
	Limit int

	// Type restricts hits to one source type. Empty matches all.
	Type string
}

// Engine queries the search index of a book database.
type Engine struct {
	db *storage.SQLiteDB
}

// NewEngine creates an engine over db.
func NewEngine(db *storage.SQLiteDB) *Engine {
	return &Engine{db: db}
}

// Search returns hits for query, most matches first. A query with no
// searchable words yields no hits.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]types.SearchHit, error) {
	if opts.Type != "" && !slices.Contains(SourceTypes, opts.Type) {
		return nil, &types.ValidationError{Field: "type", Reason: fmt.Sprintf("must be one of %s", strings.Join(SourceTypes, ", "))}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, maxLimit)

	match := sanitizeQuery(query)
	if match == "" {
		return []types.SearchHit{}, nil
	}

	sqlQuery := `
		SELECT source_type, source_id, title,
			snippet(search_index, '[', ']', '...', -1, ?),
			offsets(search_index)
		FROM search_index
		WHERE search_index MATCH ?`
	args := []any{snippetTokens, match}
	if opts.Type != "" {
		sqlQuery += ` AND source_type = ?`
		args = append(args, opts.Type)
	}

	rows, err := e.db.DB().QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	hits := []types.SearchHit{}
	for rows.Next() {
		var h types.SearchHit
		var offsets string
		if err := rows.Scan(&h.SourceType, &h.SourceID, &h.Title, &h.Snippet, &offsets); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		h.Matches = countMatches(offsets)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	slices.SortStableFunc(hits, func(a, b types.SearchHit) int {
		return cmp.Compare(b.Matches, a.Matches)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of indexed entries of sourceType, or of every
// type when sourceType is empty.
func (e *Engine) Count(ctx context.Context, sourceType string) (int, error) {
	query := `SELECT COUNT(*) FROM search_index`
	var args []any
	if sourceType != "" {
		query += ` WHERE source_type = ?`
		args = append(args, sourceType)
	}

	var n int
	if err := e.db.DB().QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index entries: %w", err)
	}
	return n, nil
}

// rebuildStatements repopulate the index from the book tables.
var rebuildStatements = []string{
	`DELETE FROM search_index`,
	`INSERT INTO search_index (source_type, source_id, title, content)
		SELECT 'chapter', id, summary,
			CASE WHEN edited_text != '' THEN edited_text ELSE selected_variant END
		FROM chapters`,
	`INSERT INTO search_index (source_type, source_id, title, content)
		SELECT 'character', id, name, role || ' ' || notes FROM characters`,
	`INSERT INTO search_index (source_type, source_id, title, content)
		SELECT 'event', id, title, timestamp || ' ' || description FROM timeline`,
	`INSERT INTO search_index (source_type, source_id, title, content)
		SELECT 'term', id, term, meaning FROM glossary`,
}

// Rebuild discards the index and repopulates it in one transaction. It
// returns the number of entries indexed.
func (e *Engine) Rebuild(ctx context.Context) (int, error) {
	tx, err := e.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range rebuildStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to rebuild index: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit index: %w", err)
	}
	return e.Count(ctx, "")
}

// sanitizeQuery turns free text into a MATCH expression of plain terms.
// Anything but letters and digits separates words, and words are lowercased
// so AND, OR, NOT and NEAR lose their operator meaning.
func sanitizeQuery(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, query)
	return strings.Join(strings.Fields(cleaned), " ")
}

// countMatches counts the phrase matches in an offsets() result, which
// holds four integers per match.
func countMatches(offsets string) int {
	return len(strings.Fields(offsets)) / 4
}
