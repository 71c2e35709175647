// Package compression encodes JSON responses with Brotli or gzip.
package compression

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/ponzu-dev/ponzu-back/pkg/server/router"
)

const (
	encodingBrotli = "br"
	encodingGzip   = "gzip"
)

// Config controls response compression behavior.
type Config struct {
	Enabled     bool
	GzipLevel   int
	BrotliLevel int
	// MinSize leaves smaller bodies uncompressed.
	MinSize              int
	ExcludedPathPrefixes []string
}

// DefaultConfig returns a sane default for HTTP response compression.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		GzipLevel:            gzip.DefaultCompression,
		BrotliLevel:          4,
		MinSize:              1024,
		ExcludedPathPrefixes: []string{"/metrics"},
	}
}

// Middleware buffers the response and compresses it once the handler returns, using the
// encoding the client prefers. Catalog payloads are bounded by pagination, so buffering the
// whole body is acceptable.
func Middleware(cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			if !cfg.Enabled || req.Method == http.MethodHead || excluded(req.URL.Path, cfg.ExcludedPathPrefixes) {
				return next(c)
			}

			encoding := negotiateEncoding(req.Header.Get("Accept-Encoding"))
			if encoding == "" {
				return next(c)
			}
			appendVary(c.Response().Header(), "Accept-Encoding")

			base := c.Response()
			wrapped := &compressWriter{base: base, encoding: encoding, cfg: cfg}
			c.SetResponse(wrapped)
			defer c.SetResponse(base)

			err := next(c)
			if closeErr := wrapped.Close(); err == nil {
				err = closeErr
			}
			return err
		}
	}
}

func excluded(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// negotiateEncoding picks br or gzip by q-value, preferring br on ties. "*" matches both.
func negotiateEncoding(acceptEncoding string) string {
	if acceptEncoding == "" {
		return ""
	}
	quality := map[string]float64{}
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := 1.0
		if value, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		quality[name] = q
	}

	best, bestQ := "", 0.0
	for _, encoding := range []string{encodingBrotli, encodingGzip} {
		q, ok := quality[encoding]
		if !ok {
			q, ok = quality["*"]
		}
		if ok && q > bestQ {
			best, bestQ = encoding, q
		}
	}
	return best
}

func appendVary(header http.Header, value string) {
	for _, existing := range header.Values("Vary") {
		for _, token := range strings.Split(existing, ",") {
			if strings.EqualFold(strings.TrimSpace(token), value) {
				return
			}
		}
	}
	header.Add("Vary", value)
}

// compressWriter holds the body until Close decides whether to encode it.
type compressWriter struct {
	base     router.ResponseWriter
	encoding string
	cfg      Config
	status   int
	buf      bytes.Buffer
	closed   bool
}

func (w *compressWriter) Header() http.Header {
	return w.base.Header()
}

func (w *compressWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *compressWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.buf.Write(p)
}

func (w *compressWriter) Status() int {
	if w.status == 0 {
		return w.base.Status()
	}
	return w.status
}

func (w *compressWriter) Written() bool {
	return w.status != 0 || w.base.Written()
}

// Close writes the buffered response to the underlying writer.
func (w *compressWriter) Close() error {
	if w.closed || w.status == 0 {
		return nil
	}
	w.closed = true

	header := w.base.Header()
	if !w.shouldCompress(header) {
		w.base.WriteHeader(w.status)
		_, err := w.base.Write(w.buf.Bytes())
		return err
	}

	header.Del("Content-Length")
	header.Set("Content-Encoding", w.encoding)
	w.base.WriteHeader(w.status)

	var encoder io.WriteCloser
	if w.encoding == encodingBrotli {
		encoder = brotli.NewWriterLevel(w.base, w.cfg.BrotliLevel)
	} else {
		gz, err := gzip.NewWriterLevel(w.base, w.cfg.GzipLevel)
		if err != nil {
			gz = gzip.NewWriter(w.base)
		}
		encoder = gz
	}
	if _, err := encoder.Write(w.buf.Bytes()); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}

func (w *compressWriter) shouldCompress(header http.Header) bool {
	if w.status < http.StatusOK || w.status == http.StatusNoContent || w.status == http.StatusNotModified {
		return false
	}
	if w.buf.Len() == 0 || w.buf.Len() < w.cfg.MinSize {
		return false
	}
	if header.Get("Content-Encoding") != "" {
		return false
	}
	contentType := strings.ToLower(header.Get("Content-Type"))
	return strings.HasPrefix(contentType, "application/json") || strings.HasPrefix(contentType, "text/")
}
