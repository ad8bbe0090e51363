package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/azyu/chapterstudio/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_List(t *testing.T) {
	reply := []types.Character{{ID: "ch1", Name: "Mira", Role: "lead"}}
	c, rec := newFakeBackend(t, http.StatusOK, reply)

	chars, err := c.Characters().List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, rec.method)
	assert.Equal(t, "/characters", rec.path)
	assert.Equal(t, reply, chars)
}

func TestCollection_ListNull(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusOK, nil)

	terms, err := c.Glossary().List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, terms)
	assert.Empty(t, terms)
}

func TestCollection_Create(t *testing.T) {
	t.Run("posts the record", func(t *testing.T) {
		c, rec := newFakeBackend(t, http.StatusOK, types.MessageResponse{Message: "Event added"})

		ev := types.TimelineEvent{ID: "t1", Title: "The fall", Timestamp: "Year 3"}
		require.NoError(t, c.Timeline().Create(context.Background(), ev))

		assert.Equal(t, http.MethodPost, rec.method)
		assert.Equal(t, "/timeline", rec.path)
		assert.JSONEq(t, `{"id":"t1","title":"The fall","timestamp":"Year 3","description":""}`, string(rec.body))
	})

	t.Run("missing id is rejected locally", func(t *testing.T) {
		c, rec := newFakeBackend(t, http.StatusOK, nil)

		err := c.Glossary().Create(context.Background(), types.GlossaryTerm{Term: "Yantra"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.Empty(t, rec.method, "no request should be sent")
	})

	t.Run("missing required field", func(t *testing.T) {
		c, _ := newFakeBackend(t, http.StatusOK, nil)

		err := c.Characters().Create(context.Background(), types.Character{ID: "ch1"})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "name", vErr.Field)
	})

	t.Run("duplicate id surfaces as transport error", func(t *testing.T) {
		c, _ := newFakeBackend(t, http.StatusConflict, types.MessageResponse{Detail: "id already exists"})

		err := c.Characters().Create(context.Background(), types.Character{ID: "ch1", Name: "Mira"})
		assert.ErrorIs(t, err, ErrTransport)
	})
}

func TestCollection_Update(t *testing.T) {
	c, rec := newFakeBackend(t, http.StatusOK, types.MessageResponse{Message: "Character updated"})

	err := c.Characters().Update(context.Background(), "ch/1", types.Character{ID: "ch/1", Name: "Mira"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/characters/ch%2F1", rec.path)

	err = c.Characters().Update(context.Background(), " ", types.Character{Name: "Mira"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCollection_Delete(t *testing.T) {
	c, rec := newFakeBackend(t, http.StatusOK, types.MessageResponse{Message: "Term deleted"})

	require.NoError(t, c.Glossary().Delete(context.Background(), "g1"))
	assert.Equal(t, http.MethodDelete, rec.method)
	assert.Equal(t, "/glossary/g1", rec.path)
	assert.Empty(t, rec.body)
}

func TestCollection_Names(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, CollectionCharacters, c.Characters().Name())
	assert.Equal(t, CollectionTimeline, c.Timeline().Name())
	assert.Equal(t, CollectionGlossary, c.Glossary().Name())
}
