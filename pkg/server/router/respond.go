package router

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
)

// ErrEmptyBody is returned by DecodeJSON for a request that carries no body.
var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON decodes the JSON body of req into v and closes it. Any media type other than
// application/json is refused.
func DecodeJSON(req *http.Request, v interface{}) error {
	if req.Body == nil || req.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer req.Body.Close()

	contentType := req.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("unsupported content type: %q", contentType)
	}
	return json.NewDecoder(req.Body).Decode(v)
}

// WriteJSON writes code and, unless code is 204, v encoded as JSON.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if code == http.StatusNoContent {
		return nil
	}
	return json.NewEncoder(w).Encode(v)
}

// WriteString writes code and s as plain text.
func WriteString(w http.ResponseWriter, code int, s string) error {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	_, err := io.WriteString(w, s)
	return err
}

// Serve runs handler for one request. An error returned before anything was written
// becomes a bare JSON 500; the error text never reaches the client.
func Serve(c Context, handler HandlerFunc) {
	if err := handler(c); err != nil && !c.Response().Written() {
		_ = WriteJSON(c.Response(), http.StatusInternalServerError, map[string]interface{}{
			"error":  http.StatusText(http.StatusInternalServerError),
			"status": http.StatusInternalServerError,
		})
	}
}

// Preflight answers OPTIONS with 204 unless middleware, usually CORS, already responded.
func Preflight(c Context) error {
	if !c.Response().Written() {
		c.Response().WriteHeader(http.StatusNoContent)
	}
	return nil
}

// StatusWriter records the status written through it. Adapters hand it to handlers as
// their ResponseWriter.
type StatusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

// NewStatusWriter wraps w.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w}
}

// WriteHeader forwards only the first status.
func (w *StatusWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Status is 200 until a header is written.
func (w *StatusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *StatusWriter) Written() bool {
	return w.written
}

func (w *StatusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *StatusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (w *StatusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
