package magazine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
)

func TestCreateRequiresName(t *testing.T) {
	assert.Error(t, controller.ValidateDTO(&Create{}))
	assert.NoError(t, controller.ValidateDTO(&Create{Name: "Shounen Jump (Weekly)"}))
}

func TestRoundTrip(t *testing.T) {
	m := Create{MalID: 83, Name: "Shounen Jump (Weekly)", Count: 1400}.Entity()
	v := ToView(m)
	assert.Equal(t, "", v.ID)
	assert.Equal(t, int64(83), v.MalID)
	assert.Equal(t, int64(1400), v.Count)
}

func TestPatchUpdate(t *testing.T) {
	count := int64(1401)
	u := Patch{Count: &count}.Update()
	v, ok := u.Value("count")
	assert.True(t, ok)
	assert.Equal(t, int64(1401), v)
	assert.Equal(t, []string{"count"}, u.Fields())
}
