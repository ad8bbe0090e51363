package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chapter = types.ChapterResponse{
	ID:              "ch-1",
	Variants:        []string{"Ash fell.", "Rain fell."},
	SelectedVariant: "Rain fell.",
	EditedText:      "Rain fell on the *Yantra*.\n\nKael waited.",
}

// =============================================================================
// Format
// =============================================================================

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"md", FormatMarkdown, false},
		{"Markdown", FormatMarkdown, false},
		{" html ", FormatHTML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, FormatHTML, FormatForPath("out/ch.HTML"))
	assert.Equal(t, FormatMarkdown, FormatForPath("out/ch.txt"))
}

// =============================================================================
// Document
// =============================================================================

func TestNewDocument(t *testing.T) {
	t.Run("title from summary", func(t *testing.T) {
		doc, err := NewDocument(chapter, &types.ChapterMeta{Summary: "A duel at dawn"})
		require.NoError(t, err)
		assert.Equal(t, "A duel at dawn", doc.Title)
		assert.Equal(t, chapter.EditedText, doc.Body)
	})

	t.Run("title from heading", func(t *testing.T) {
		ch := chapter
		ch.EditedText = "# The *Long* Night\n\nDark."
		doc, err := NewDocument(ch, &types.ChapterMeta{Summary: "ignored"})
		require.NoError(t, err)
		assert.Equal(t, "The Long Night", doc.Title)
	})

	t.Run("falls back to selection and id", func(t *testing.T) {
		ch := chapter
		ch.EditedText = ""
		doc, err := NewDocument(ch, nil)
		require.NoError(t, err)
		assert.Equal(t, "Rain fell.", doc.Body)
		assert.Equal(t, "Chapter ch-1", doc.Title)
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, err := NewDocument(types.ChapterResponse{ID: "x", Variants: []string{"a"}}, nil)
		assert.ErrorIs(t, err, ErrNothingToExport)
	})
}

// =============================================================================
// Render
// =============================================================================

func TestRender(t *testing.T) {
	doc := Document{ID: "ch-1", Title: "Dawn & Dusk", Body: chapter.EditedText}

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, doc, FormatMarkdown))
		assert.Equal(t, "# Dawn & Dusk\n\nRain fell on the *Yantra*.\n\nKael waited.\n", buf.String())
	})

	t.Run("markdown keeps existing heading", func(t *testing.T) {
		var buf bytes.Buffer
		d := doc
		d.Body = "# Own\n\ntext"
		require.NoError(t, Render(&buf, d, FormatMarkdown))
		assert.Equal(t, "# Own\n\ntext\n", buf.String())
	})

	t.Run("html", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, doc, FormatHTML))
		out := buf.String()
		assert.Contains(t, out, "<title>Dawn &amp; Dusk</title>")
		assert.Contains(t, out, "<h1>Dawn &amp; Dusk</h1>")
		assert.Contains(t, out, "<p>Rain fell on the <em>Yantra</em>.</p>")
		assert.Contains(t, out, "<p>Kael waited.</p>")
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.ErrorIs(t, Render(&bytes.Buffer{}, doc, "pdf"), ErrUnknownFormat)
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ch-1.html")
	doc := Document{ID: "ch-1", Title: "T", Body: "Body."}

	require.NoError(t, WriteFile(path, doc, FormatForPath(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>Body.</p>")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
