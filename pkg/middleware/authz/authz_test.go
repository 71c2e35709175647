package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponzu-dev/ponzu-back/pkg/auth"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
	"github.com/ponzu-dev/ponzu-back/pkg/server/router/nethttp"
)

type stubValidator map[string]*auth.Claims

func (s stubValidator) Validate(_ context.Context, token string) (*auth.Claims, error) {
	switch token {
	case "expired":
		return nil, auth.ErrExpiredToken
	}
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

var validator = stubValidator{
	"member": {Subject: "u1", Username: "spike"},
	"staff":  {Subject: "u2", Username: "jet", Roles: []string{"staff"}},
}

func call(r http.Handler, method, authorization string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, "/api/anime", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func whoami(c router.Context) error {
	claims := auth.GetClaims(c.Request().Context())
	if claims == nil {
		return c.JSON(http.StatusOK, map[string]string{"user": ""})
	}
	if stored, _ := c.Get(ClaimsKey).(*auth.Claims); stored != claims {
		return c.String(http.StatusInternalServerError, "router and request claims differ")
	}
	return c.JSON(http.StatusOK, map[string]string{"user": claims.Username})
}

func TestAuthenticate(t *testing.T) {
	r := nethttp.NewRouter()
	r.Use(Authenticate(validator))
	r.GET("/api/anime", whoami)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
		user    string
	}{
		{name: "missing header", status: 401, message: "missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", status: 401, message: "invalid authorization header format"},
		{name: "empty token", header: "Bearer ", status: 401, message: "invalid authorization header format"},
		{name: "unknown token", header: "Bearer nope", status: 401, message: "invalid token"},
		{name: "expired token", header: "Bearer expired", status: 401, message: "token expired"},
		{name: "valid token", header: "Bearer member", status: 200, user: "spike"},
		{name: "case insensitive scheme", header: "bearer member", status: 200, user: "spike"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := call(r, http.MethodGet, tt.header)
			require.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "auth.unauthorized", body["code"])
				assert.Equal(t, tt.message, body["message"])
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
				return
			}
			assert.Equal(t, tt.user, body["user"])
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	r := nethttp.NewRouter()
	r.Use(OptionalAuthenticate(validator))
	r.GET("/api/anime", whoami)

	w, body := call(r, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", body["user"])

	w, body = call(r, http.MethodGet, "Bearer staff")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jet", body["user"])

	w, _ = call(r, http.MethodGet, "Bearer forged")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthenticatedWrites(t *testing.T) {
	r := nethttp.NewRouter()
	r.Use(OptionalAuthenticate(validator), RequireAuthenticatedWrites())
	r.GET("/api/anime", whoami)
	r.POST("/api/anime", whoami)
	r.DELETE("/api/anime", whoami)

	w, _ := call(r, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, w.Code, "reads stay anonymous")

	w, _ = call(r, http.MethodPost, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(r, http.MethodDelete, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := call(r, http.MethodPost, "Bearer member")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "spike", body["user"])
}

func TestRequireRole(t *testing.T) {
	r := nethttp.NewRouter()
	r.Use(OptionalAuthenticate(validator))
	r.DELETE("/api/anime", whoami, RequireRole("staff", "superuser"))

	w, _ := call(r, http.MethodDelete, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := call(r, http.MethodDelete, "Bearer member")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "auth.forbidden", body["code"])

	w, _ = call(r, http.MethodDelete, "Bearer staff")
	assert.Equal(t, http.StatusOK, w.Code)
}
