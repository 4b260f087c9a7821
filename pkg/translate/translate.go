// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package translate detects the language of a text and translates it into
// the configured target language through a pluggable backend.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/utils"
)

const (
	LanguageAuto    = "auto"
	LanguageUnknown = "unknown"
)

// Result is what the relay shows the user. When DetectedLanguage belongs to
// the target language family, Translated equals Original.
type Result struct {
	Original         string `json:"original"`
	Translated       string `json:"translated"`
	DetectedLanguage string `json:"detected_language"`
}

// IsNoop reports whether no translation was needed.
func (r Result) IsNoop() bool {
	return r.Original == r.Translated
}

// Backend translates text. source may be LanguageAuto.
type Backend interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Detector returns a language code for text. It never fails; LanguageAuto
// means undetermined.
type Detector interface {
	Detect(text string) string
}

type Service struct {
	backend  Backend
	detector Detector
	target   string
}

func NewService(backend Backend, detector Detector, target string) *Service {
	if detector == nil {
		detector = NewWhatlangDetector()
	}
	return &Service{
		backend:  backend,
		detector: detector,
		target:   target,
	}
}

func (s *Service) Target() string {
	return s.target
}

// Translate never returns an error: backend failures are reported inside
// Result.Translated so that the caller can show them to the user as is.
func (s *Service) Translate(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Original: text, DetectedLanguage: LanguageUnknown}
	}

	detected := s.detector.Detect(text)
	if SameFamily(detected, s.target) {
		return Result{Original: text, Translated: text, DetectedLanguage: detected}
	}

	translated, err := s.backend.Translate(ctx, text, detected, s.target)
	if err != nil {
		logger.ErrorCF("translate", "Translation failed", map[string]interface{}{
			"backend": s.backend.Name(),
			"source":  detected,
			"target":  s.target,
			"error":   err.Error(),
		})
		return Result{
			Original:         text,
			Translated:       fmt.Sprintf("翻译出错: %v", err),
			DetectedLanguage: detected,
		}
	}

	translated = strings.TrimSpace(translated)
	logger.DebugCF("translate", "Translated text", map[string]interface{}{
		"backend": s.backend.Name(),
		"source":  detected,
		"preview": utils.Truncate(translated, 40),
	})
	return Result{Original: text, Translated: translated, DetectedLanguage: detected}
}
