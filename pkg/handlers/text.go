package handlers

import (
	"context"
	"fmt"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/translate"
	"github.com/zhaopengme/transclaw/pkg/utils"
)

// TextTranslator is satisfied by *translate.Service.
type TextTranslator interface {
	Translate(ctx context.Context, text string) translate.Result
}

type TextHandler struct {
	messenger  Messenger
	translator TextTranslator
	target     string
}

func NewTextHandler(messenger Messenger, translator TextTranslator, target string) *TextHandler {
	return &TextHandler{messenger: messenger, translator: translator, target: target}
}

// Handle translates text and sends exactly one reply. Translation failures
// are part of the reply, so the only error is a failed send.
func (h *TextHandler) Handle(ctx context.Context, ev bus.InboundEvent, text string) error {
	res := h.translator.Translate(ctx, text)

	logger.InfoCF("text", "Translated message", map[string]interface{}{
		"chat_id":  ev.ChatID,
		"event_id": ev.EventID,
		"language": res.DetectedLanguage,
		"noop":     res.IsNoop(),
		"preview":  utils.Truncate(text, 40),
	})

	if _, err := h.messenger.Send(ctx, ev.ChatID, FormatTextReply(res, h.target)); err != nil {
		return fmt.Errorf("send translation: %w", err)
	}
	return nil
}
