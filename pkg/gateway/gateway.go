// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package gateway runs the poll loop and routes each event to its handler.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhaopengme/transclaw/pkg/bus"
	"github.com/zhaopengme/transclaw/pkg/logger"
	"github.com/zhaopengme/transclaw/pkg/metrics"
	"github.com/zhaopengme/transclaw/pkg/retry"
)

// confirmTimeout bounds the final cursor confirmation on shutdown.
const confirmTimeout = 10 * time.Second

// Poller fetches events after cursor and returns the next cursor. Passing a
// cursor to Poll confirms every event before it to the platform.
type Poller interface {
	Poll(ctx context.Context, cursor int64) ([]bus.InboundEvent, int64, error)
}

// Confirmer is implemented by pollers that can confirm a cursor without
// waiting for new events.
type Confirmer interface {
	Confirm(ctx context.Context, cursor int64) error
}

type Options struct {
	Workers      int
	QueueSize    int
	ErrorPause   time.Duration
	NetworkPause time.Duration
}

type Gateway struct {
	poller     Poller
	dispatcher *Dispatcher
	opts       Options
}

func New(poller Poller, dispatcher *Dispatcher, opts Options) *Gateway {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Gateway{poller: poller, dispatcher: dispatcher, opts: opts}
}

// Run polls until ctx is cancelled. Each batch is handled completely before
// the next poll confirms it to the platform. On cancel the batch in progress
// finishes on a context detached from ctx and its cursor is confirmed before
// Run returns.
func (g *Gateway) Run(ctx context.Context) error {
	queue := bus.NewEventQueue(g.opts.QueueSize)

	var wg, pending sync.WaitGroup
	for i := 0; i < g.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			g.work(ctx, worker, queue, &pending)
		}(i)
	}

	logger.InfoCF("gateway", "Poll loop started", map[string]interface{}{
		"workers": g.opts.Workers,
	})

	var cursor int64
	for ctx.Err() == nil {
		events, next, err := g.poller.Poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			metrics.PollFailures.Inc()
			logger.ErrorCF("gateway", "Polling failed, pausing", map[string]interface{}{
				"error": err.Error(),
				"pause": g.opts.NetworkPause.String(),
			})
			_ = retry.Sleep(ctx, g.opts.NetworkPause)
			continue
		}
		cursor = next

		detached := context.WithoutCancel(ctx)
		for _, ev := range events {
			pending.Add(1)
			if !queue.Publish(detached, ev) {
				pending.Done()
			}
		}
		pending.Wait()
	}

	queue.Close()
	wg.Wait()
	g.confirm(ctx, cursor)
	logger.InfoC("gateway", "Poll loop stopped")
	return nil
}

func (g *Gateway) confirm(ctx context.Context, cursor int64) {
	c, ok := g.poller.(Confirmer)
	if !ok || cursor <= 0 {
		return
	}
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), confirmTimeout)
	defer cancel()
	if err := c.Confirm(confirmCtx, cursor); err != nil {
		logger.WarnCF("gateway", "Could not confirm last cursor, events may be redelivered", map[string]interface{}{
			"cursor": cursor,
			"error":  err.Error(),
		})
	}
}

func (g *Gateway) work(ctx context.Context, worker int, queue *bus.EventQueue, pending *sync.WaitGroup) {
	for {
		ev, ok := queue.Consume(context.WithoutCancel(ctx))
		if !ok {
			return
		}
		g.handle(ctx, worker, ev)
		pending.Done()
	}
}

func (g *Gateway) handle(ctx context.Context, worker int, ev bus.InboundEvent) {
	traceID := uuid.NewString()
	start := time.Now()
	route, err := g.dispatcher.Dispatch(context.WithoutCancel(ctx), ev)

	fields := map[string]interface{}{
		"trace_id": traceID,
		"worker":   worker,
		"event_id": ev.EventID,
		"chat_id":  ev.ChatID,
		"route":    string(route),
		"elapsed":  time.Since(start).String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorCF("gateway", "Event handling failed, pausing", fields)
		_ = retry.Sleep(ctx, g.opts.ErrorPause)
		return
	}
	logger.DebugCF("gateway", "Event handled", fields)
}
