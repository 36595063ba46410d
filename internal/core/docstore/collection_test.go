package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/infrastructure/storage/memory"
)

type note struct {
	ID    string   `json:"id,omitempty"`
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	Pin   *int     `json:"pin,omitempty"`
}

func TestCollection_InsertAssignsID(t *testing.T) {
	ctx := context.Background()
	notes := docstore.NewCollection[note](memory.New(), "notes")

	n := &note{ID: "ignored", Title: "first"}
	require.NoError(t, notes.Insert(ctx, n))
	assert.NotEmpty(t, n.ID)
	assert.NotEqual(t, "ignored", n.ID)

	got, err := notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
}

func TestCollection_SaveDropsClearedFields(t *testing.T) {
	ctx := context.Background()
	notes := docstore.NewCollection[note](memory.New(), "notes")

	pin := 3
	n := &note{Title: "draft", Tags: []string{"a"}, Pin: &pin}
	require.NoError(t, notes.Insert(ctx, n))

	n.Title = "final"
	n.Tags = nil
	n.Pin = nil
	require.NoError(t, notes.Save(ctx, n.ID, n))

	got, err := notes.Get(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Empty(t, got.Tags)
	assert.Nil(t, got.Pin)
}

func TestCollection_ListWithFilters(t *testing.T) {
	ctx := context.Background()
	notes := docstore.NewCollection[note](memory.New(), "notes")

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, notes.Insert(ctx, &note{Title: title}))
	}

	found, err := notes.List(ctx, docstore.Where("title", "b"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].Title)

	found, err = notes.List(ctx, docstore.All().MatchExpr(`doc.title != "a"`))
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
