package anime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponzu-dev/ponzu-back/internal/catalog/media"
	"github.com/ponzu-dev/ponzu-back/pkg/repository/document"
)

func TestCreateDecodesFlatJSON(t *testing.T) {
	var c Create
	err := json.Unmarshal([]byte(`{"title":"Cowboy Bebop","episodes":26,"genres":[{"mal_id":1,"type":"anime","name":"Action"}]}`), &c)
	require.NoError(t, err)
	assert.Equal(t, "Cowboy Bebop", c.Title)
	require.NotNil(t, c.Episodes)
	assert.Equal(t, 26, *c.Episodes)
	assert.Equal(t, "Action", c.Genres[0].Name)
	assert.NoError(t, c.Validate())
}

func TestCreateValidate(t *testing.T) {
	assert.Error(t, Create{}.Validate())
	episodes := -1
	assert.Error(t, Create{Details: Details{Title: "x", Episodes: &episodes}}.Validate())
}

func TestViewJSONIsFlat(t *testing.T) {
	v := View{ID: "64b7f0c2a1e4d3b2c1a09f8e", Details: Details{Title: "Trigun"}}
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "64b7f0c2a1e4d3b2c1a09f8e", out["id"])
	assert.Equal(t, "Trigun", out["title"])
	assert.NotContains(t, out, "Details")
}

func TestStoredInline(t *testing.T) {
	ctx := context.Background()
	exec := document.NewMemoryExecutor()
	repo, err := document.NewRepository[Anime](exec, Collection)
	require.NoError(t, err)

	created, err := repo.InsertOne(ctx, Create{Details: Details{
		Title:     "Mushishi",
		Broadcast: &media.Broadcast{Day: "Saturdays"},
	}}.Entity())
	require.NoError(t, err)

	found, err := repo.Find(ctx, document.Filter{"title": "Mushishi"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)
	assert.Equal(t, "Saturdays", found[0].Broadcast.Day)

	airing := true
	updated, err := repo.UpdateByID(ctx, created.ID.Hex(), Patch{Airing: &airing}.Update())
	require.NoError(t, err)
	assert.True(t, updated.Airing)
	assert.Equal(t, "Mushishi", updated.Title)
}

func TestPatchValidate(t *testing.T) {
	blank := " "
	assert.Error(t, Patch{Title: &blank}.Validate())
	assert.NoError(t, Patch{}.Validate())
}
