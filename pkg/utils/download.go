package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/zhaopengme/transclaw/pkg/logger"
)

// ErrTooLarge is returned when the body exceeds the maxBytes bound.
var ErrTooLarge = errors.New("download too large")

// DownloadToFile streams an HTTP response body into a new temporary file
// created in dir (os.TempDir when empty) with the given name pattern.
//
// maxBytes bounds the download; 0 means no limit. Non-2xx responses are
// errors. The caller owns the returned file and must remove it; on any error
// the partial file is removed here.
func DownloadToFile(ctx context.Context, client *http.Client, req *http.Request, dir, pattern string, maxBytes int64) (string, error) {
	req = req.WithContext(ctx)

	logger.DebugCF("download", "Starting download", map[string]interface{}{
		"host":      req.URL.Host,
		"max_bytes": maxBytes,
	})

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := make([]byte, 512)
		n, _ := io.ReadFull(resp.Body, errBody)
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(errBody[:n]))
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create temp dir: %w", err)
		}
	}
	if pattern == "" {
		pattern = "transclaw-dl-*"
	}
	tmpFile, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanup := func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}

	var src io.Reader = resp.Body
	if maxBytes > 0 {
		src = io.LimitReader(resp.Body, maxBytes+1) // +1 to detect overflow
	}

	written, err := io.Copy(tmpFile, src)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("download write failed: %w", err)
	}

	if maxBytes > 0 && written > maxBytes {
		cleanup()
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	logger.DebugCF("download", "Download complete", map[string]interface{}{
		"path":          tmpPath,
		"bytes_written": written,
	})

	return tmpPath, nil
}
