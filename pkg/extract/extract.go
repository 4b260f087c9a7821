// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package extract pulls text and a short description out of an image and
// translates the text.
package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/translate"
)

var ErrEmptyImage = errors.New("image is empty")

// Content is what an Extractor found. Either field may be empty.
type Content struct {
	Text        string
	Description string
}

type Extractor interface {
	Name() string
	Extract(ctx context.Context, image []byte) (Content, error)
}

// Translator is the subset of translate.Service used here.
type Translator interface {
	Translate(ctx context.Context, text string) translate.Result
}

// Result of processing one image. When Success is false, Original and
// Translated are empty.
type Result struct {
	Success            bool
	Original           string
	Translated         string
	DetectedLanguage   string
	ContentDescription string
}

type Service struct {
	extractor  Extractor
	translator Translator
	timeout    time.Duration
}

func NewService(extractor Extractor, translator Translator) *Service {
	return &Service{extractor: extractor, translator: translator}
}

// WithTimeout bounds each extractor call. Zero means no bound.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

func (s *Service) Process(ctx context.Context, image []byte) Result {
	if len(image) == 0 {
		return Result{}
	}

	extractCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	content, err := s.extractor.Extract(extractCtx, image)
	if err != nil {
		logger.ErrorCF("extract", "Extraction failed", map[string]interface{}{
			"extractor": s.extractor.Name(),
			"bytes":     len(image),
			"error":     err.Error(),
		})
		return Result{}
	}

	text := strings.TrimSpace(content.Text)
	desc := strings.TrimSpace(content.Description)
	if text == "" && desc == "" {
		return Result{}
	}

	res := Result{Success: true, ContentDescription: desc}
	if text != "" {
		tr := s.translator.Translate(ctx, text)
		res.Original = tr.Original
		res.Translated = tr.Translated
		res.DetectedLanguage = tr.DetectedLanguage
	}
	return res
}

// mediaType sniffs the image format, defaulting to JPEG which is what
// Telegram serves for photos.
func mediaType(image []byte) string {
	ct := http.DetectContentType(image)
	switch ct {
	case "image/png", "image/gif", "image/webp", "image/jpeg":
		return ct
	default:
		return "image/jpeg"
	}
}
