package user

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ponzu-dev/ponzu-back/pkg/controller"
)

func init() {
	hashCost = bcrypt.MinCost
}

func TestRegisterValidate(t *testing.T) {
	tests := []struct {
		name  string
		dto   Register
		field string
	}{
		{name: "valid", dto: Register{Username: "spike", Email: "spike@bebop.example", Password: "swordfish2"}},
		{name: "missing username", dto: Register{Email: "spike@bebop.example", Password: "swordfish2"}, field: "username"},
		{name: "bad email", dto: Register{Username: "spike", Email: "spike", Password: "swordfish2"}, field: "email"},
		{name: "display name email", dto: Register{Username: "spike", Email: "Spike <spike@bebop.example>", Password: "swordfish2"}, field: "email"},
		{name: "short password", dto: Register{Username: "spike", Email: "spike@bebop.example", Password: "short"}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dto.Validate()
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

func TestRegisterEntity(t *testing.T) {
	ts := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	prev := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = prev })

	u := Register{Username: " faye ", Email: "faye@bebop.example", Password: "hash"}.Entity()
	assert.Equal(t, "faye", u.Username)
	assert.False(t, u.IsActive)
	assert.False(t, u.IsStaff)
	assert.False(t, u.IsSuperuser)
	assert.Equal(t, ts, u.CreatedAt)
	assert.Equal(t, ts, u.UpdatedAt)
	assert.Equal(t, ts, u.LastOnline)
	assert.Empty(t, u.Roles())
}

func TestViewHidesPassword(t *testing.T) {
	raw, err := json.Marshal(ToView(User{Username: "jet", Password: "$2a$10$secret"}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "secret")
}

func TestHashAndVerify(t *testing.T) {
	r := &Register{Password: "bebop-crew"}
	require.NoError(t, HashRegister(context.Background(), r))
	assert.NotEqual(t, "bebop-crew", r.Password)

	assert.NoError(t, VerifyPassword(r.Password, "bebop-crew"))
	assert.ErrorIs(t, VerifyPassword(r.Password, "wrong-password"), ErrInvalidCredentials)
	assert.ErrorIs(t, VerifyPassword("not-a-hash", "bebop-crew"), ErrInvalidCredentials)
}

func TestHashPatch(t *testing.T) {
	p := &Patch{}
	require.NoError(t, HashPatch(context.Background(), p))
	assert.Nil(t, p.Password)

	pw := "new-password"
	p.Password = &pw
	require.NoError(t, HashPatch(context.Background(), p))
	require.NotNil(t, p.Password)
	assert.NoError(t, VerifyPassword(*p.Password, "new-password"))
}

func TestPatchUpdate(t *testing.T) {
	assert.True(t, Patch{}.Update().IsEmpty())

	staff := true
	u := Patch{IsStaff: &staff}.Update()
	assert.Equal(t, []string{"is_staff", "updated_at"}, u.Fields())
}

func TestRoles(t *testing.T) {
	assert.Equal(t, []string{RoleStaff, RoleSuperuser}, User{IsStaff: true, IsSuperuser: true}.Roles())
	assert.Equal(t, []string{RoleSuperuser}, User{IsSuperuser: true}.Roles())
}
