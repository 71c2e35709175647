package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
)

func validCreate() Create {
	return Create{
		MalID:  7,
		Type:   "anime",
		Review: "A slow burn that pays off.",
		Score:  9,
		Entry:  primitive.NewObjectID().Hex(),
		User:   primitive.NewObjectID().Hex(),
	}
}

func TestCreateValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Create)
		field  string
	}{
		{name: "valid", mutate: func(*Create) {}},
		{name: "score too low", mutate: func(c *Create) { c.Score = 0 }, field: "score"},
		{name: "score too high", mutate: func(c *Create) { c.Score = 11 }, field: "score"},
		{name: "missing review", mutate: func(c *Create) { c.Review = " " }, field: "review"},
		{name: "bad entry id", mutate: func(c *Create) { c.Entry = "not-an-id" }, field: "entry"},
		{name: "missing user", mutate: func(c *Create) { c.User = "" }, field: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCreate()
			tt.mutate(&c)
			err := c.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var fe controller.FieldErrors
			require.ErrorAs(t, err, &fe)
			assert.Contains(t, fe, tt.field)
		})
	}
}

func TestCreateEntityDefaultsDate(t *testing.T) {
	before := time.Now().Add(-time.Second)
	r := validCreate().Entity()
	assert.True(t, r.Date.After(before))

	fixed := time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC)
	c := validCreate()
	c.Date = fixed
	assert.Equal(t, fixed, c.Entity().Date)
}

func TestPatchValidate(t *testing.T) {
	score := 12
	assert.Error(t, Patch{Score: &score}.Validate())
	entry := "zzz"
	assert.Error(t, Patch{Entry: &entry}.Validate())
	negative := int64(-1)
	err := Patch{EpisodesWatched: &negative}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "episodes_watched")
	zero := int64(0)
	assert.NoError(t, Patch{EpisodesWatched: &zero}.Validate())
	assert.NoError(t, Patch{}.Validate())
}

func TestPatchUpdate(t *testing.T) {
	spoiler := true
	reactions := Reactions{Overall: 3, Funny: 2}
	u := Patch{IsSpoiler: &spoiler, Reactions: &reactions}.Update()
	assert.Equal(t, []string{"reactions", "is_spoiler"}, u.Fields())
}
