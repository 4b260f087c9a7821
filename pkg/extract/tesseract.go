package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/zhaopengme/transclaw/pkg/logger"
)

const (
	DefaultTesseractPath  = "tesseract"
	DefaultTesseractLangs = "chi_sim+eng"
)

// Tesseract runs the local tesseract binary. It only finds text; Description
// is always empty.
type Tesseract struct {
	path  string
	langs string
}

func NewTesseract(path, langs string) *Tesseract {
	if path == "" {
		path = DefaultTesseractPath
	}
	if langs == "" {
		langs = DefaultTesseractLangs
	}
	return &Tesseract{path: path, langs: langs}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Extract tries the configured language set first and falls back to the
// binary's default language when that fails, e.g. because a traineddata file
// is not installed.
func (t *Tesseract) Extract(ctx context.Context, image []byte) (Content, error) {
	if len(image) == 0 {
		return Content{}, ErrEmptyImage
	}

	text, err := t.run(ctx, image, "-l", t.langs)
	if err != nil {
		if ctx.Err() != nil {
			return Content{}, ctx.Err()
		}
		logger.WarnCF("tesseract", "Multi-language recognition failed, using default language", map[string]interface{}{
			"langs": t.langs,
			"error": err.Error(),
		})
		text, err = t.run(ctx, image)
		if err != nil {
			return Content{}, err
		}
	}
	return Content{Text: strings.TrimSpace(text)}, nil
}

func (t *Tesseract) run(ctx context.Context, image []byte, extra ...string) (string, error) {
	args := append([]string{"stdin", "stdout"}, extra...)
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
