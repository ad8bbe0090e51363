package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorded is what the fake backend saw.
type recorded struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

func newFakeBackend(t *testing.T, status int, reply any) (*Client, *recorded) {
	t.Helper()

	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.query = r.URL.Query()
		rec.body, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)

	return NewClient(srv.URL + "/"), rec
}

func TestNewClient(t *testing.T) {
	t.Run("default base url", func(t *testing.T) {
		c := NewClient("")
		assert.Equal(t, DefaultBaseURL, c.BaseURL())
		assert.Equal(t, defaultTimeout, c.client.Timeout)
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		c := NewClient("http://example.test:9000/")
		assert.Equal(t, "http://example.test:9000", c.BaseURL())
	})

	t.Run("options", func(t *testing.T) {
		custom := &http.Client{}
		c := NewClient("http://x", WithHTTPClient(custom), WithTimeout(5*time.Second))
		assert.Same(t, custom, c.client)
		assert.Equal(t, 5*time.Second, c.client.Timeout)
	})
}

func TestGenerate(t *testing.T) {
	reply := types.ChapterResponse{ID: "c1", Variants: []string{"A", "B", "C"}}
	c, rec := newFakeBackend(t, http.StatusOK, reply)

	req := types.GenerationRequest{Summary: "A storm", Tone: "dark", POV: "first", WordCount: "800", MustInclude: "a lantern"}
	resp, err := c.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/generate", rec.path)
	assert.JSONEq(t,
		`{"summary":"A storm","tone":"dark","pov":"first","word_count":"800","must_include":"a lantern"}`,
		string(rec.body))
	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, []string{"A", "B", "C"}, resp.Variants)
}

func TestGenerate_MissingID(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusOK, map[string]any{"variants": []string{"A"}})

	_, err := c.Generate(context.Background(), types.GenerationRequest{Summary: "s"})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSelectAndSave(t *testing.T) {
	t.Run("select", func(t *testing.T) {
		c, rec := newFakeBackend(t, http.StatusOK, types.MessageResponse{Message: "Variant selected"})

		require.NoError(t, c.SelectVariant(context.Background(), "c1", "B"))
		assert.Equal(t, "/select", rec.path)
		assert.JSONEq(t, `{"chapter_id":"c1","variant_text":"B"}`, string(rec.body))
	})

	t.Run("save", func(t *testing.T) {
		c, rec := newFakeBackend(t, http.StatusOK, types.MessageResponse{Message: "Edit saved"})

		require.NoError(t, c.SaveDraft(context.Background(), "c1", "B revised"))
		assert.Equal(t, "/edit", rec.path)
		assert.JSONEq(t, `{"chapter_id":"c1","edited_text":"B revised"}`, string(rec.body))
	})
}

func TestChapter(t *testing.T) {
	reply := types.ChapterResponse{ID: "c 1", Variants: []string{"A"}, SelectedVariant: "A", EditedText: "A!"}
	c, rec := newFakeBackend(t, http.StatusOK, reply)

	resp, err := c.Chapter(context.Background(), "c 1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/chapter/c%201", rec.path)
	assert.Equal(t, "A!", resp.EditedText)
}

func TestChapters(t *testing.T) {
	reply := []types.ChapterMeta{{ID: "c2", Summary: "later"}, {ID: "c1", Summary: "earlier"}}
	c, rec := newFakeBackend(t, http.StatusOK, reply)

	metas, err := c.Chapters(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/all", rec.path)
	assert.Equal(t, reply, metas)
}

func TestSearch(t *testing.T) {
	reply := []types.SearchHit{{SourceType: "term", SourceID: "g1", Title: "Yantra", Snippet: "[Yantra]", Matches: 1}}
	c, rec := newFakeBackend(t, http.StatusOK, reply)

	hits, err := c.Search(context.Background(), "the yantra", "term", 5)
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/search", rec.path)
	assert.Equal(t, "the yantra", rec.query.Get("q"))
	assert.Equal(t, "term", rec.query.Get("type"))
	assert.Equal(t, "5", rec.query.Get("limit"))
	assert.Equal(t, reply, hits)

	t.Run("optional params omitted", func(t *testing.T) {
		_, err := c.Search(context.Background(), "keep", "", 0)
		require.NoError(t, err)
		assert.False(t, rec.query.Has("type"))
		assert.False(t, rec.query.Has("limit"))
	})
}

func TestReindex(t *testing.T) {
	c, rec := newFakeBackend(t, http.StatusOK, map[string]any{"message": "Search index rebuilt.", "entries": 7})

	n, err := c.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, rec.method)
	assert.Equal(t, "/search/reindex", rec.path)
	assert.Equal(t, 7, n)
}

func TestTransportErrors(t *testing.T) {
	t.Run("non-success status carries detail", func(t *testing.T) {
		c, _ := newFakeBackend(t, http.StatusNotFound, types.MessageResponse{Detail: "Chapter not found"})

		_, err := c.Chapter(context.Background(), "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.True(t, IsNotFound(err))

		var tErr *TransportError
		require.True(t, errors.As(err, &tErr))
		assert.Equal(t, http.StatusNotFound, tErr.StatusCode)
		assert.Equal(t, "Chapter not found", tErr.Detail)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Chapters(context.Background())
		assert.ErrorIs(t, err, ErrTransport)
		assert.False(t, IsNotFound(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		err := NewClient(url).SaveDraft(context.Background(), "c1", "x")
		assert.ErrorIs(t, err, ErrTransport)
	})

	t.Run("plain text detail", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := NewClient(srv.URL).SelectVariant(context.Background(), "c1", "A")
		var tErr *TransportError
		require.ErrorAs(t, err, &tErr)
		assert.Equal(t, "boom", tErr.Detail)
	})
}

func TestCancelledContext(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusOK, []types.ChapterMeta{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Chapters(ctx)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}
