package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/UthayakumarDevon/livechatapp/internal/storage"
	"github.com/UthayakumarDevon/livechatapp/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newUploadRouter(t *testing.T, maxBytes int64) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	blobs, err := storage.NewLocalStore(dir, "/uploads")
	require.NoError(t, err)

	h := NewUploadHandler(blobs, maxBytes, nil)
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }

	r := gin.New()
	r.POST("/upload", h.Upload)
	return r, dir
}

func TestUploadHandler_StoresFile(t *testing.T) {
	r, dir := newUploadRouter(t, 1024)
	body, contentType := multipartBody(t, "file", "cat.PNG", []byte("png-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp httpdto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.URL, "/uploads/1700000000000-"), resp.URL)
	assert.True(t, strings.HasSuffix(resp.URL, ".png"), resp.URL)

	stored, err := os.ReadFile(filepath.Join(dir, strings.TrimPrefix(resp.URL, "/uploads/")))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(stored))
}

func TestUploadHandler_MissingField(t *testing.T) {
	r, _ := newUploadRouter(t, 1024)
	body, contentType := multipartBody(t, "attachment", "a.txt", []byte("x"))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
}

func TestUploadHandler_TooLarge(t *testing.T) {
	r, _ := newUploadRouter(t, 8)
	body, contentType := multipartBody(t, "file", "big.bin", bytes.Repeat([]byte("a"), 64))

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_LARGE")
}

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestUploadHandler_StoreFailure(t *testing.T) {
	h := NewUploadHandler(failingBlobs{}, 0, nil)
	r := gin.New()
	r.POST("/upload", h.Upload)

	body, contentType := multipartBody(t, "file", "a.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedCount int

func (n fixedCount) GetClientCount() int { return int(n) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		ping     error
		wantCode int
		wantBody string
	}{
		{name: "healthy", wantCode: http.StatusOK, wantBody: `"status":"healthy"`},
		{name: "store down", ping: errors.New("closed"), wantCode: http.StatusServiceUnavailable, wantBody: "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(pingFunc(func(context.Context) error { return tt.ping }), fixedCount(3))
			r := gin.New()
			r.GET("/health", h.Health)
			r.GET("/ping", h.Ping)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Contains(t, rec.Body.String(), `"connections":3`)

			rec = httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), "pong")
		})
	}
}
