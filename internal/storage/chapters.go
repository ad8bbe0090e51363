package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azyu/chapterstudio/pkg/types"
)

// ChapterRecord is a stored chapter with its generation request.
type ChapterRecord struct {
	ID              string
	Request         types.GenerationRequest
	Variants        []string
	SelectedVariant string
	EditedText      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Response converts the record to its wire form.
func (c *ChapterRecord) Response() types.ChapterResponse {
	return types.ChapterResponse{
		ID:              c.ID,
		Variants:        c.Variants,
		SelectedVariant: c.SelectedVariant,
		EditedText:      c.EditedText,
	}
}

// encodeVariants stores variants as a JSON array so paragraphs inside a
// variant survive the round trip.
func encodeVariants(variants []string) (string, error) {
	if variants == nil {
		variants = []string{}
	}
	data, err := json.Marshal(variants)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeVariants also reads rows written as blank-line separated text.
func decodeVariants(raw string) []string {
	var variants []string
	if strings.HasPrefix(raw, "[") && json.Unmarshal([]byte(raw), &variants) == nil {
		return variants
	}
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, "\n\n")
}

// InsertChapter stores a newly generated chapter.
func (s *SQLiteDB) InsertChapter(ctx context.Context, rec ChapterRecord) error {
	variants, err := encodeVariants(rec.Variants)
	if err != nil {
		return fmt.Errorf("failed to encode variants: %w", err)
	}
	now := time.Now().Unix()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chapters (id, summary, tone, pov, word_count, must_include,
			generated_variants, selected_variant, edited_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?, ?)
	`, rec.ID, rec.Request.Summary, rec.Request.Tone, rec.Request.POV, rec.Request.WordCount,
		rec.Request.MustInclude, variants, now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("chapter %s: %w", rec.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert chapter: %w", err)
	}
	return nil
}

// Chapter returns the chapter with id.
func (s *SQLiteDB) Chapter(ctx context.Context, id string) (*ChapterRecord, error) {
	var rec ChapterRecord
	var variants string
	var created, updated int64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, summary, tone, pov, word_count, must_include,
			generated_variants, selected_variant, edited_text, created_at, updated_at
		FROM chapters WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Request.Summary, &rec.Request.Tone, &rec.Request.POV,
		&rec.Request.WordCount, &rec.Request.MustInclude, &variants,
		&rec.SelectedVariant, &rec.EditedText, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chapter %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}

	rec.Variants = decodeVariants(variants)
	rec.CreatedAt = time.Unix(created, 0)
	rec.UpdatedAt = time.Unix(updated, 0)
	return &rec, nil
}

// ListChapters returns chapter metadata, newest first.
func (s *SQLiteDB) ListChapters(ctx context.Context) ([]types.ChapterMeta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, summary, tone, pov FROM chapters ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	defer rows.Close()

	metas := []types.ChapterMeta{}
	for rows.Next() {
		var m types.ChapterMeta
		if err := rows.Scan(&m.ID, &m.Summary, &m.Tone, &m.POV); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// SelectVariant records the chosen variant of a chapter.
func (s *SQLiteDB) SelectVariant(ctx context.Context, id, text string) error {
	return s.updateChapter(ctx, id, "selected_variant", text)
}

// SaveEdit records the edited text of a chapter.
func (s *SQLiteDB) SaveEdit(ctx context.Context, id, text string) error {
	return s.updateChapter(ctx, id, "edited_text", text)
}

func (s *SQLiteDB) updateChapter(ctx context.Context, id, column, value string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE chapters SET "+column+" = ?, updated_at = ? WHERE id = ?",
		value, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("chapter %s: %w", id, err)
	}
	return nil
}
