package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"你好世界你好世界", 5, "你好..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max), tt.in)
	}
}

func TestDownloadToFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "nested")
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/file.jpg", nil)
	require.NoError(t, err)

	path, err := DownloadToFile(context.Background(), srv.Client(), req, dir, "photo-*.jpg", 0)
	require.NoError(t, err)
	defer os.Remove(path)

	assert.Equal(t, dir, filepath.Dir(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestDownloadToFileHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := DownloadToFile(context.Background(), srv.Client(), req, dir, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDownloadToFileTooLargeLeavesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	dir := t.TempDir()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := DownloadToFile(context.Background(), srv.Client(), req, dir, "", 16)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "partial download must be removed")
}
