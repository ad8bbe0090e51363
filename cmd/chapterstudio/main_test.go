package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/azyu/chapterstudio/internal/app"
	"github.com/azyu/chapterstudio/internal/glossary"
	"github.com/azyu/chapterstudio/internal/session"
	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// =============================================================================
// Output helpers
// =============================================================================

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestMasked_LeavesOriginalAlone(t *testing.T) {
	config := types.DefaultGlobalConfig()
	config.Providers["openai"] = &types.ProviderConfig{APIKey: "sk-abcdefghijklmnop"}

	out := masked(config)
	assert.Equal(t, "sk-a...mnop", out.Providers["openai"].APIKey)
	assert.Equal(t, "sk-abcdefghijklmnop", config.Providers["openai"].APIKey)
}

func TestPrintChapters(t *testing.T) {
	var buf bytes.Buffer
	err := printChapters(&buf, []types.ChapterMeta{
		{ID: "ch-2", Summary: "The keep burns", Tone: "grim", POV: "Kael"},
		{ID: "ch-1", Summary: "Arrival"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "ch-2")
	assert.Contains(t, out, "The keep burns")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ch-2")), bytes.Index(buf.Bytes(), []byte("ch-1")))
}

func TestPrintTokens(t *testing.T) {
	var buf bytes.Buffer
	tokens := glossary.Tokens("He drew the Yantra.", []types.GlossaryTerm{
		{ID: "g1", Term: "Yantra", Meaning: "a mystical device"},
	})
	require.NoError(t, printTokens(&buf, tokens))

	out := buf.String()
	assert.Contains(t, out, "Yantra.")
	assert.Contains(t, out, "a mystical device")
	assert.Contains(t, out, "drew")
}

func TestPrintHits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printHits(&buf, []types.SearchHit{
		{SourceType: "term", SourceID: "g1", Title: "Yantra", Snippet: "a [Yantra]\n device", Matches: 2},
	}))

	out := buf.String()
	assert.Contains(t, out, "SNIPPET")
	assert.Contains(t, out, "a [Yantra] device")
	assert.Contains(t, out, "g1")
}

// =============================================================================
// config init
// =============================================================================

func TestWriteInitialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cm := app.NewConfigManagerAt(path)

	err := writeInitialConfig(cm, types.DefaultGlobalConfig(), initChoice{
		BackendURL: "http://studio.local:9000",
		DBPath:     "novel.db",
		Provider:   "local",
		Model:      "llama3",
	})
	require.NoError(t, err)
	require.FileExists(t, path)

	loaded, err := app.NewConfigManagerAt(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "http://studio.local:9000", loaded.Backend.BaseURL)
	assert.Equal(t, "novel.db", loaded.Server.DBPath)
	assert.Equal(t, "local", loaded.Defaults.Provider)
	require.Contains(t, loaded.Providers, "local")
	assert.Equal(t, "llama3", loaded.Providers["local"].DefaultModel)
}

// =============================================================================
// generate --select
// =============================================================================

type stubBackend struct {
	selectErr error
	saved     []string
}

func (b *stubBackend) Generate(ctx context.Context, req types.GenerationRequest) (*types.ChapterResponse, error) {
	return &types.ChapterResponse{ID: "ch-1", Variants: []string{"one", "two", "three"}}, nil
}

func (b *stubBackend) Chapter(ctx context.Context, id string) (*types.ChapterResponse, error) {
	return nil, errors.New("not found")
}

func (b *stubBackend) SelectVariant(ctx context.Context, chapterID, text string) error {
	return b.selectErr
}

func (b *stubBackend) SaveDraft(ctx context.Context, chapterID, text string) error {
	b.saved = append(b.saved, text)
	return nil
}

func TestSelectAndSave(t *testing.T) {
	ctx := context.Background()
	generated := func(t *testing.T, b *stubBackend) *session.Session {
		t.Helper()
		s := session.New()
		require.NoError(t, s.Generate(ctx, b, types.GenerationRequest{Summary: "x"}))
		return s
	}

	t.Run("saves the chosen variant", func(t *testing.T) {
		b := &stubBackend{}
		s := generated(t, b)
		require.NoError(t, selectAndSave(ctx, s, b, 1))
		assert.Equal(t, []string{"two"}, b.saved)
		assert.Equal(t, session.Saved, s.State())
	})

	t.Run("out of range", func(t *testing.T) {
		b := &stubBackend{}
		s := generated(t, b)
		assert.Error(t, selectAndSave(ctx, s, b, 3))
		assert.Empty(t, b.saved)
	})

	t.Run("selection warning still saves", func(t *testing.T) {
		b := &stubBackend{selectErr: errors.New("down")}
		s := generated(t, b)

		stderr := os.Stderr
		devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		require.NoError(t, err)
		os.Stderr = devnull
		defer func() { os.Stderr = stderr; devnull.Close() }()

		require.NoError(t, selectAndSave(ctx, s, b, 0))
		assert.Equal(t, []string{"one"}, b.saved)
	})
}
