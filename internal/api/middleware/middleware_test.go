package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := CORSMiddleware([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/documents/c1/name", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	handler := CORSMiddleware([]string{"http://localhost:5173"})(jsonHandler(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSMiddleware_Wildcard(t *testing.T) {
	handler := CORSMiddleware(nil)(jsonHandler(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("Origin", "http://anything.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestETag_NotModified(t *testing.T) {
	handler := ETag(jsonHandler(`{"count":0}`))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, `{"count":0}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestETag_SkipsStreams(t *testing.T) {
	handler := ETag(jsonHandler("event: connected\n\n"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stream/documents", nil))
	assert.Empty(t, w.Header().Get("ETag"))
}

func TestCompression(t *testing.T) {
	handler := Compression(jsonHandler(`{"status":"running"}`))

	req := httptest.NewRequest(http.MethodGet, "/api/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, `{"status":"running"}`, string(body))

	req = httptest.NewRequest(http.MethodGet, "/api/pdf/c1", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestCacheControl(t *testing.T) {
	handler := CacheControl(jsonHandler(`{}`))

	tests := map[string]string{
		"/api/pdf/c1":           "private, max-age=300",
		"/api/stream/documents": "no-cache",
		"/api/documents":        "private, no-cache, must-revalidate",
	}
	for path, want := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, w.Header().Get("Cache-Control"), path)
	}
}

func TestLoggingMiddleware_PassesFlushAndStatus(t *testing.T) {
	var flushed bool
	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		flusher, ok := w.(http.Flusher)
		flushed = ok
		if ok {
			flusher.Flush()
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, flushed)
	assert.True(t, w.Flushed)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestObservabilityMiddleware_NilMetrics(t *testing.T) {
	handler := ObservabilityMiddleware(nil)(jsonHandler(`{}`))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
