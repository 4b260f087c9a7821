package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/dedup"
	"github.com/zhaopengme/transclaw/pkg/extract"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/metrics"
	"github.com/zhaopengme/transclaw/pkg/utils"
)

var (
	ErrFileInfo = errors.New("could not resolve image file")
	ErrDownload = errors.New("could not download image")
)

// ImageProcessor is satisfied by *extract.Service.
type ImageProcessor interface {
	Process(ctx context.Context, image []byte) extract.Result
}

type ImageHandler struct {
	transport Transport
	store     *dedup.Store
	processor ImageProcessor
	target    string
	flights   singleflight.Group
}

func NewImageHandler(transport Transport, store *dedup.Store, processor ImageProcessor, target string) *ImageHandler {
	return &ImageHandler{
		transport: transport,
		store:     store,
		processor: processor,
		target:    target,
	}
}

// Handle answers a photo with its extracted and translated text. Every path
// sends one final reply and deletes the status messages it created. The
// returned error is non-nil only when that final reply could not be sent.
func (h *ImageHandler) Handle(ctx context.Context, ev bus.InboundEvent, photo bus.PhotoPayload) error {
	if reply, ok := h.store.CachedFile(photo.FileID); ok {
		metrics.FileCacheHits.Inc()
		logger.InfoCF("image", "Answering from file cache", map[string]interface{}{
			"chat_id": ev.ChatID,
			"file_id": photo.FileID,
		})
		return h.reply(ctx, ev.ChatID, reply)
	}

	var status []bus.MessageHandle
	defer func() { h.cleanup(ctx, status) }()

	processing, err := h.transport.Send(ctx, ev.ChatID, MsgImageProcessing)
	if err != nil {
		logger.WarnCF("image", "Could not send processing notice", map[string]interface{}{
			"chat_id": ev.ChatID,
			"error":   err.Error(),
		})
	} else if !processing.IsZero() {
		status = append(status, processing)
	}

	reply, err := h.resolve(ctx, ev, photo, processing)
	if err != nil {
		logger.ErrorCF("image", "Image processing failed", map[string]interface{}{
			"chat_id":  ev.ChatID,
			"event_id": ev.EventID,
			"file_id":  photo.FileID,
			"error":    err.Error(),
		})
		return h.reply(ctx, ev.ChatID, failureReply(err))
	}

	if done, err := h.transport.Send(ctx, ev.ChatID, MsgImageDone); err == nil && !done.IsZero() {
		status = append(status, done)
	}
	return h.reply(ctx, ev.ChatID, reply)
}

// resolve runs download and extraction once per file id, however many events
// for that file are in flight.
func (h *ImageHandler) resolve(ctx context.Context, ev bus.InboundEvent, photo bus.PhotoPayload, processing bus.MessageHandle) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing image: %v", r)
		}
	}()

	v, err, shared := h.flights.Do(photo.FileID, func() (interface{}, error) {
		return h.process(ctx, ev, photo, processing)
	})
	if err != nil {
		return "", err
	}
	if shared {
		logger.DebugCF("image", "Shared in-flight result", map[string]interface{}{"file_id": photo.FileID})
	}
	return v.(string), nil
}

func (h *ImageHandler) process(ctx context.Context, ev bus.InboundEvent, photo bus.PhotoPayload, processing bus.MessageHandle) (string, error) {
	if reply, ok := h.store.CachedFile(photo.FileID); ok {
		metrics.FileCacheHits.Inc()
		return reply, nil
	}

	location, err := h.transport.FileLocation(ctx, photo.FileID)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileInfo, err)
	}

	path, err := h.transport.Download(ctx, location)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnCF("image", "Failed to remove temp file", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
	}()

	if !processing.IsZero() {
		if err := h.transport.Edit(ctx, processing, MsgImageRecognizing); err != nil {
			logger.DebugCF("image", "Could not update processing notice", map[string]interface{}{"error": err.Error()})
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read downloaded image: %w", err)
	}

	res := h.processor.Process(ctx, data)
	outcome := "failed"
	switch {
	case res.Success && res.Original != "":
		outcome = "text"
	case res.Success:
		outcome = "description"
	}
	metrics.Extractions.WithLabelValues(outcome).Inc()

	logger.InfoCF("image", "Image processed", map[string]interface{}{
		"chat_id":  ev.ChatID,
		"file_id":  photo.FileID,
		"bytes":    len(data),
		"outcome":  outcome,
		"language": res.DetectedLanguage,
	})

	reply := FormatImageReply(res, h.target)
	h.store.CacheFile(photo.FileID, reply)
	return reply, nil
}

func (h *ImageHandler) reply(ctx context.Context, chatID int64, text string) error {
	if _, err := h.transport.Send(ctx, chatID, text); err != nil {
		return fmt.Errorf("send image reply: %w", err)
	}
	return nil
}

func (h *ImageHandler) cleanup(ctx context.Context, status []bus.MessageHandle) {
	for _, m := range status {
		if err := h.transport.Delete(ctx, m); err != nil {
			logger.WarnCF("image", "Failed to delete status message", map[string]interface{}{
				"chat_id":    m.ChatID,
				"message_id": m.MessageID,
				"error":      err.Error(),
			})
		}
	}
}

func failureReply(err error) string {
	switch {
	case errors.Is(err, ErrFileInfo):
		return MsgImageInfoFailed
	case errors.Is(err, ErrDownload):
		return MsgDownloadFailed
	default:
		return MsgImageError + "错误信息: " + utils.Truncate(err.Error(), 100)
	}
}
