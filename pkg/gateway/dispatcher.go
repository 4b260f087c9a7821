// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

package gateway

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/dedup"
	"github.com/zhaopengme/transclaw/pkg/handlers"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/metrics"
)

type Route string

const (
	RouteDuplicate  Route = "duplicate"
	RouteNotAllowed Route = "not_allowed"
	RouteCommand    Route = "command"
	RouteText       Route = "text"
	RoutePhoto      Route = "photo"
	RouteOther      Route = "other"
)

type TextHandler interface {
	Handle(ctx context.Context, ev bus.InboundEvent, text string) error
}

type ImageHandler interface {
	Handle(ctx context.Context, ev bus.InboundEvent, photo bus.PhotoPayload) error
}

// Dispatcher classifies one event and hands it to the matching handler.
type Dispatcher struct {
	store     *dedup.Store
	messenger handlers.Messenger
	text      TextHandler
	image     ImageHandler
	allow     func(id int64) bool
}

type DispatcherOption func(*Dispatcher)

// WithAllowlist admits an event when allow accepts its chat id or its
// sender id. Without it every event is admitted.
func WithAllowlist(allow func(id int64) bool) DispatcherOption {
	return func(d *Dispatcher) { d.allow = allow }
}

func NewDispatcher(store *dedup.Store, messenger handlers.Messenger, text TextHandler, image ImageHandler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		messenger: messenger,
		text:      text,
		image:     image,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles ev. A handler error or panic is answered with a generic
// reply and returned, so the caller can pause. No generic reply follows a
// reply that was partially delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, ev bus.InboundEvent) (route Route, err error) {
	if !d.store.MarkEvent(ev.EventID) {
		metrics.DuplicateEvents.Inc()
		logger.DebugCF("dispatch", "Skipping duplicate event", map[string]interface{}{
			"event_id": ev.EventID,
		})
		return RouteDuplicate, nil
	}

	if !d.allowed(ev) {
		logger.DebugCF("dispatch", "Event rejected by allowlist", map[string]interface{}{
			"event_id":  ev.EventID,
			"chat_id":   ev.ChatID,
			"sender_id": ev.Sender.ID,
		})
		return RouteNotAllowed, nil
	}

	route = classify(ev)
	metrics.EventsTotal.WithLabelValues(string(route)).Inc()

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("dispatch", "Handler panicked", map[string]interface{}{
				"event_id": ev.EventID,
				"route":    string(route),
				"panic":    fmt.Sprint(r),
				"stack":    string(debug.Stack()),
			})
			err = fmt.Errorf("%s handler panicked: %v", route, r)
		}
		if err != nil {
			metrics.HandlerFailures.WithLabelValues(string(route)).Inc()
			if !errors.Is(err, bus.ErrPartialDelivery) {
				d.sendGenericError(ctx, ev)
			}
		}
	}()

	switch route {
	case RouteCommand:
		err = d.handleCommand(ctx, ev)
	case RouteText:
		p := ev.Payload.(bus.TextPayload)
		err = d.text.Handle(ctx, ev, p.RawText)
	case RoutePhoto:
		err = d.image.Handle(ctx, ev, ev.Payload.(bus.PhotoPayload))
	default:
		_, err = d.messenger.Send(ctx, ev.ChatID, handlers.MsgUnsupported)
	}
	return route, err
}

func (d *Dispatcher) allowed(ev bus.InboundEvent) bool {
	if d.allow == nil || d.allow(ev.ChatID) {
		return true
	}
	return ev.Sender.ID != 0 && d.allow(ev.Sender.ID)
}

func classify(ev bus.InboundEvent) Route {
	switch p := ev.Payload.(type) {
	case bus.TextPayload:
		text := strings.TrimSpace(p.RawText)
		switch {
		case text == "":
			return RouteOther
		case strings.HasPrefix(text, "/"):
			return RouteCommand
		default:
			return RouteText
		}
	case bus.PhotoPayload:
		if p.FileID == "" {
			return RouteOther
		}
		return RoutePhoto
	default:
		return RouteOther
	}
}

// parseCommand splits "/name@bot arg1 arg2" into the lower-cased name and
// its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev bus.InboundEvent) error {
	name, _ := parseCommand(ev.Payload.(bus.TextPayload).RawText)

	var reply string
	switch name {
	case "start":
		reply = handlers.MsgWelcome
	case "help":
		reply = handlers.MsgHelp
	default:
		reply = handlers.MsgUnknownCommand
	}

	logger.InfoCF("dispatch", "Command", map[string]interface{}{
		"chat_id": ev.ChatID,
		"command": name,
	})
	_, err := d.messenger.Send(ctx, ev.ChatID, reply)
	return err
}

func (d *Dispatcher) sendGenericError(ctx context.Context, ev bus.InboundEvent) {
	reply := handlers.MsgGenericError
	if ev.Kind() == bus.KindPhoto {
		reply = handlers.MsgImageError
	}
	if _, err := d.messenger.Send(ctx, ev.ChatID, reply); err != nil {
		logger.ErrorCF("dispatch", "Failed to send error reply", map[string]interface{}{
			"event_id": ev.EventID,
			"chat_id":  ev.ChatID,
			"error":    err.Error(),
		})
	}
}
