package router

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Title string `json:"title"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Mushishi"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	require.NoError(t, DecodeJSON(req, &out))
	assert.Equal(t, "Mushishi", out.Title)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Content-Type", "application/json")
	assert.ErrorIs(t, DecodeJSON(req, &out), ErrEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/jsonp")
	assert.ErrorContains(t, DecodeJSON(req, &out), "unsupported content type")
}

func TestWriteJSON_NoContentHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusNoContent, map[string]string{"ignored": "yes"}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewStatusWriter(rec)
	assert.False(t, w.Written())
	assert.Equal(t, http.StatusOK, w.Status())

	_, err := w.Write([]byte("x"))
	require.NoError(t, err)
	w.WriteHeader(http.StatusTeapot)
	assert.True(t, w.Written())
	assert.Equal(t, http.StatusOK, w.Status(), "only the first status counts")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, _, err = w.Hijack()
	assert.Error(t, err, "the recorder cannot be hijacked")
	assert.Same(t, http.ResponseWriter(rec), w.Unwrap())
}

type serveContext struct {
	Context
	w *StatusWriter
}

func (c *serveContext) Response() ResponseWriter { return c.w }

func TestServe_HidesErrorText(t *testing.T) {
	rec := httptest.NewRecorder()
	Serve(&serveContext{w: NewStatusWriter(rec)}, func(Context) error {
		return errors.New("dial tcp 10.0.0.3:27017: connection refused")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "27017")
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}
